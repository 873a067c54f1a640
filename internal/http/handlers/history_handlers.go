package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"rentaldesk/internal/ledger"
	"rentaldesk/internal/models"
)

const dayLayout = "2006-01-02"

// HistoryHandlers serves transaction history projections and sale entry.
type HistoryHandlers struct {
	ledger *ledger.Engine
	logger *zap.Logger
}

// NewHistoryHandlers returns handlers over the ledger engine.
func NewHistoryHandlers(lg *ledger.Engine, logger *zap.Logger) *HistoryHandlers {
	return &HistoryHandlers{ledger: lg, logger: logger}
}

// List handles GET /history?type=&filter=&start=&end=.
func (h *HistoryHandlers) List(w http.ResponseWriter, r *http.Request) {
	kind, filter, start, end, ok := historyQuery(w, r)
	if !ok {
		return
	}
	txs := h.ledger.FilterHistory(kind, filter, start, end)
	if txs == nil {
		txs = []models.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

// Stats handles GET /stats?filter=&start=&end=.
func (h *HistoryHandlers) Stats(w http.ResponseWriter, r *http.Request) {
	_, filter, start, end, ok := historyQuery(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.ledger.Stats(filter, start, end))
}

// MonthlySales handles GET /sales/monthly.
func (h *HistoryHandlers) MonthlySales(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ledger.MonthlySales())
}

// WalkInSale handles POST /sales/walk-in.
func (h *HistoryHandlers) WalkInSale(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount float64 `json:"amount"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	tx, err := h.ledger.WalkInSale(r.Context(), req.Amount)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

// HistoricalSale handles POST /sales/historical.
func (h *HistoryHandlers) HistoricalSale(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date   string  `json:"date"`
		Amount float64 `json:"amount"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	day, err := time.Parse(dayLayout, req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}
	if err := h.ledger.AddHistoricalSale(r.Context(), day, req.Amount); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, nil)
}

func historyQuery(w http.ResponseWriter, r *http.Request) (models.TransactionType, ledger.DateFilter, time.Time, time.Time, bool) {
	q := r.URL.Query()

	kind := models.TransactionType(q.Get("type"))
	switch kind {
	case "", models.TransactionAdd, models.TransactionRedeem, models.TransactionAdjust, models.TransactionRestore:
	default:
		writeError(w, http.StatusBadRequest, "unknown transaction type")
		return "", "", time.Time{}, time.Time{}, false
	}

	filter := ledger.DateFilter(q.Get("filter"))
	if filter == "" {
		filter = ledger.FilterAll
	}

	var start, end time.Time
	if filter == ledger.FilterCustom {
		var err error
		if start, err = time.Parse(dayLayout, q.Get("start")); err != nil {
			writeError(w, http.StatusBadRequest, "invalid start date, expected YYYY-MM-DD")
			return "", "", time.Time{}, time.Time{}, false
		}
		if end, err = time.Parse(dayLayout, q.Get("end")); err != nil {
			writeError(w, http.StatusBadRequest, "invalid end date, expected YYYY-MM-DD")
			return "", "", time.Time{}, time.Time{}, false
		}
	}
	return kind, filter, start, end, true
}
