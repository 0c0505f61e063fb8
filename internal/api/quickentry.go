package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/folioapp/folio/internal/ledger"
	"github.com/folioapp/folio/internal/quickentry"
)

// quickEntryResponse reports per-row outcomes for one batch. CommitResults
// is present only when the caller asked for commit and holds one entry
// per accepted row, in row order.
type quickEntryResponse struct {
	Results       []quickentry.RowResult `json:"results"`
	Accepted      int                    `json:"accepted"`
	Rejected      int                    `json:"rejected"`
	CommitResults []rowCommitResult      `json:"commitResults,omitempty"`
}

type rowCommitResult struct {
	Row    int                 `json:"row"`
	Result ledger.CommitResult `json:"result"`
}

// QuickEntry handles POST /api/v1/portfolios/{id}/quickentry. Rows are
// parsed independently; a malformed row never blocks its neighbours.
// With ?commit=true each accepted draft is committed individually and
// re-validated against the live projection at its own commit time.
func (h *Handler) QuickEntry(w http.ResponseWriter, r *http.Request) {
	p, ok := h.ownedPortfolio(w, r)
	if !ok {
		return
	}

	var req struct {
		Rows []string `json:"rows"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Rows) == 0 {
		writeError(w, http.StatusBadRequest, "rows must not be empty")
		return
	}

	batch := h.parser.ParseBatch(req.Rows)
	resp := quickEntryResponse{
		Results:  batch.Results,
		Accepted: len(batch.Accepted),
		Rejected: len(batch.Rejected),
	}

	if r.URL.Query().Get("commit") == "true" {
		for _, row := range batch.Results {
			if !row.Accepted() {
				continue
			}

			var res ledger.CommitResult
			var err error
			switch {
			case row.Draft.Transaction != nil:
				draft := *row.Draft.Transaction
				draft.PortfolioID = p.ID
				res, err = h.ledgers.CommitTransaction(r.Context(), draft)
			case row.Draft.Transfer != nil:
				draft := *row.Draft.Transfer
				draft.PortfolioID = p.ID
				res, err = h.ledgers.CommitTransfer(r.Context(), draft)
			}
			if err != nil {
				slog.Error("quick entry commit failed", "portfolio", p.ID, "row", row.Index, "error", err)
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			resp.CommitResults = append(resp.CommitResults, rowCommitResult{Row: row.Index, Result: res})
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
