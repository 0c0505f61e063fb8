package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/folioapp/folio/internal/domain"
	"github.com/folioapp/folio/internal/ledger"
	"github.com/folioapp/folio/internal/portfolio"
	"github.com/folioapp/folio/internal/quickentry"
	"github.com/folioapp/folio/internal/snapshot"
)

// Handler provides the portfolio ledger HTTP endpoints.
type Handler struct {
	portfolios *portfolio.Service
	ledgers    *ledger.Service
	snapshots  *snapshot.Service
	parser     *quickentry.Parser
}

// NewHandler creates a new API handler.
func NewHandler(portfolios *portfolio.Service, ledgers *ledger.Service, snapshots *snapshot.Service, parser *quickentry.Parser) *Handler {
	return &Handler{
		portfolios: portfolios,
		ledgers:    ledgers,
		snapshots:  snapshots,
		parser:     parser,
	}
}

// tenantID extracts the pre-authenticated tenant. Empty means the
// request bypassed the identity layer and is refused.
func tenantID(w http.ResponseWriter, r *http.Request) (string, bool) {
	tenant := r.Header.Get("X-Tenant-ID")
	if tenant == "" {
		writeError(w, http.StatusUnauthorized, "missing tenant identity")
		return "", false
	}
	return tenant, true
}

// ownedPortfolio resolves the {id} path segment to a portfolio the
// tenant owns, or writes the appropriate error.
func (h *Handler) ownedPortfolio(w http.ResponseWriter, r *http.Request) (domain.Portfolio, bool) {
	tenant, ok := tenantID(w, r)
	if !ok {
		return domain.Portfolio{}, false
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid portfolio id")
		return domain.Portfolio{}, false
	}

	p, err := h.portfolios.Get(r.Context(), tenant, id)
	if err != nil {
		if errors.Is(err, portfolio.ErrNotFound) {
			writeError(w, http.StatusNotFound, "portfolio not found")
			return domain.Portfolio{}, false
		}
		slog.Error("failed to load portfolio", "portfolio", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return domain.Portfolio{}, false
	}
	return p, true
}

// CreatePortfolio handles POST /api/v1/portfolios.
func (h *Handler) CreatePortfolio(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantID(w, r)
	if !ok {
		return
	}

	var req struct {
		Name         string `json:"name"`
		BaseCurrency string `json:"baseCurrency"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.portfolios.Create(r.Context(), tenant, req.Name, req.BaseCurrency)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// ListPortfolios handles GET /api/v1/portfolios.
func (h *Handler) ListPortfolios(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantID(w, r)
	if !ok {
		return
	}

	portfolios, err := h.portfolios.List(r.Context(), tenant)
	if err != nil {
		slog.Error("failed to list portfolios", "tenant", tenant, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, portfolios)
}

// GetPortfolio handles GET /api/v1/portfolios/{id}.
func (h *Handler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	p, ok := h.ownedPortfolio(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// DeletePortfolio handles DELETE /api/v1/portfolios/{id}. Ledger rows
// and snapshots go with the portfolio by cascade.
func (h *Handler) DeletePortfolio(w http.ResponseWriter, r *http.Request) {
	p, ok := h.ownedPortfolio(w, r)
	if !ok {
		return
	}

	if err := h.portfolios.Delete(r.Context(), p.TenantID, p.ID); err != nil {
		slog.Error("failed to delete portfolio", "portfolio", p.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CommitTransaction handles POST /api/v1/portfolios/{id}/transactions.
// A draft that fails validation is reported with 422 and the violated
// invariant named; the ledger is unchanged.
func (h *Handler) CommitTransaction(w http.ResponseWriter, r *http.Request) {
	p, ok := h.ownedPortfolio(w, r)
	if !ok {
		return
	}

	var draft domain.Transaction
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	draft.PortfolioID = p.ID

	res, err := h.ledgers.CommitTransaction(r.Context(), draft)
	if err != nil {
		slog.Error("commit failed", "portfolio", p.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeCommitResult(w, res)
}

// CommitTransfer handles POST /api/v1/portfolios/{id}/transfers.
func (h *Handler) CommitTransfer(w http.ResponseWriter, r *http.Request) {
	p, ok := h.ownedPortfolio(w, r)
	if !ok {
		return
	}

	var draft domain.Transfer
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	draft.PortfolioID = p.ID

	res, err := h.ledgers.CommitTransfer(r.Context(), draft)
	if err != nil {
		slog.Error("commit failed", "portfolio", p.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeCommitResult(w, res)
}

// VoidTransaction handles POST …/transactions/{entryID}/void.
func (h *Handler) VoidTransaction(w http.ResponseWriter, r *http.Request) {
	h.void(w, r, h.ledgers.VoidTransaction)
}

// VoidTransfer handles POST …/transfers/{entryID}/void.
func (h *Handler) VoidTransfer(w http.ResponseWriter, r *http.Request) {
	h.void(w, r, h.ledgers.VoidTransfer)
}

func (h *Handler) void(w http.ResponseWriter, r *http.Request, voidFn func(ctx context.Context, portfolioID, id uuid.UUID) error) {
	p, ok := h.ownedPortfolio(w, r)
	if !ok {
		return
	}

	entryID, err := uuid.Parse(r.PathValue("entryID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid entry id")
		return
	}

	if err := voidFn(r.Context(), p.ID, entryID); err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			writeError(w, http.StatusNotFound, "committed entry not found")
			return
		}
		slog.Error("void failed", "portfolio", p.ID, "entry", entryID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetProjection handles GET /api/v1/portfolios/{id}/projection.
// Optional asOf query bounds the replayed ledger prefix.
func (h *Handler) GetProjection(w http.ResponseWriter, r *http.Request) {
	p, ok := h.ownedPortfolio(w, r)
	if !ok {
		return
	}

	asOf := time.Now().UTC()
	if s := r.URL.Query().Get("asOf"); s != "" {
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid asOf, expected RFC 3339")
			return
		}
		asOf = parsed
	}

	proj, err := h.ledgers.Project(r.Context(), p.ID, asOf)
	if err != nil {
		if errors.Is(err, domain.ErrLedgerInconsistency) {
			slog.Error("ledger inconsistency detected", "portfolio", p.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "ledger inconsistency detected")
			return
		}
		slog.Error("projection failed", "portfolio", p.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, proj)
}

// BuildSnapshot handles POST /api/v1/portfolios/{id}/snapshots.
func (h *Handler) BuildSnapshot(w http.ResponseWriter, r *http.Request) {
	p, ok := h.ownedPortfolio(w, r)
	if !ok {
		return
	}

	asOf := time.Now().UTC()
	if s := r.URL.Query().Get("asOf"); s != "" {
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid asOf, expected RFC 3339")
			return
		}
		asOf = parsed
	}

	snap, err := h.snapshots.Build(r.Context(), p.ID, asOf)
	if err != nil {
		slog.Error("snapshot build failed", "portfolio", p.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to build snapshot")
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

// GetLatestSnapshot handles GET /api/v1/portfolios/{id}/snapshots/latest.
func (h *Handler) GetLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	p, ok := h.ownedPortfolio(w, r)
	if !ok {
		return
	}

	snap, err := h.snapshots.GetLatest(r.Context(), p.ID)
	if err != nil {
		if errors.Is(err, snapshot.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no snapshots found")
			return
		}
		slog.Error("failed to get latest snapshot", "portfolio", p.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// ListSnapshots handles GET /api/v1/portfolios/{id}/snapshots.
func (h *Handler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	p, ok := h.ownedPortfolio(w, r)
	if !ok {
		return
	}

	const maxLimit = 365
	limit := 30
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = min(n, maxLimit)
		}
	}

	snaps, err := h.snapshots.List(r.Context(), p.ID, limit)
	if err != nil {
		slog.Error("failed to list snapshots", "portfolio", p.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, snaps)
}

func writeCommitResult(w http.ResponseWriter, res ledger.CommitResult) {
	if !res.Validation.Valid {
		writeJSON(w, http.StatusUnprocessableEntity, res)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.Warn("failed to write HTTP response body", "error", err)
		return
	}
	_, _ = w.Write([]byte("\n"))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
