package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"
)

// NewServer creates an HTTP server with all routes configured. The
// tenant id is taken from the X-Tenant-ID header, supplied by the
// authenticating reverse proxy and trusted as-is.
func NewServer(port string, handler *Handler, adminAPIKey string) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/portfolios", handler.CreatePortfolio)
	mux.HandleFunc("GET /api/v1/portfolios", handler.ListPortfolios)
	mux.HandleFunc("GET /api/v1/portfolios/{id}", handler.GetPortfolio)

	deleteHandler := http.HandlerFunc(handler.DeletePortfolio)
	if adminAPIKey != "" {
		mux.Handle("DELETE /api/v1/portfolios/{id}", requireAuth(adminAPIKey, deleteHandler))
	} else {
		mux.Handle("DELETE /api/v1/portfolios/{id}", deleteHandler)
	}

	mux.HandleFunc("POST /api/v1/portfolios/{id}/transactions", handler.CommitTransaction)
	mux.HandleFunc("POST /api/v1/portfolios/{id}/transfers", handler.CommitTransfer)
	mux.HandleFunc("POST /api/v1/portfolios/{id}/transactions/{entryID}/void", handler.VoidTransaction)
	mux.HandleFunc("POST /api/v1/portfolios/{id}/transfers/{entryID}/void", handler.VoidTransfer)

	mux.HandleFunc("GET /api/v1/portfolios/{id}/projection", handler.GetProjection)

	mux.HandleFunc("POST /api/v1/portfolios/{id}/snapshots", handler.BuildSnapshot)
	mux.HandleFunc("GET /api/v1/portfolios/{id}/snapshots/latest", handler.GetLatestSnapshot)
	mux.HandleFunc("GET /api/v1/portfolios/{id}/snapshots", handler.ListSnapshots)

	mux.HandleFunc("POST /api/v1/portfolios/{id}/quickentry", handler.QuickEntry)

	return &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func requireAuth(apiKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token := strings.TrimPrefix(auth, "Bearer ")
		if !strings.HasPrefix(auth, "Bearer ") || subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
