package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"rentaldesk/internal/ledger"
)

// CustomersHandlers serves the loyalty ledger's customer operations.
type CustomersHandlers struct {
	ledger *ledger.Engine
	logger *zap.Logger
}

// NewCustomersHandlers returns handlers over the ledger engine.
func NewCustomersHandlers(lg *ledger.Engine, logger *zap.Logger) *CustomersHandlers {
	return &CustomersHandlers{ledger: lg, logger: logger}
}

// List handles GET /customers.
func (h *CustomersHandlers) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ledger.Customers())
}

// Deleted handles GET /customers/deleted.
func (h *CustomersHandlers) Deleted(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ledger.DeletedCustomers())
}

// Add handles POST /customers.
func (h *CustomersHandlers) Add(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.ledger.AddCustomer(r.Context(), req.Name); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"name": req.Name})
}

// Purchase handles POST /customers/purchase.
func (h *CustomersHandlers) Purchase(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name   string  `json:"name"`
		Amount float64 `json:"amount"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	customer, tx, err := h.ledger.AddPurchase(r.Context(), req.Name, req.Amount)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"customer":    customer,
		"transaction": tx,
	})
}

// Adjust handles POST /customers/adjust.
func (h *CustomersHandlers) Adjust(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name   string  `json:"name"`
		Points float64 `json:"points"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.ledger.AdjustPoints(r.Context(), req.Name, req.Points); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// Redeem handles POST /customers/redeem (points for discount).
func (h *CustomersHandlers) Redeem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name   string  `json:"name"`
		Points float64 `json:"points"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	discount, err := h.ledger.RedeemPoints(r.Context(), req.Name, req.Points)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"discount": discount})
}

// Delete handles POST /customers/delete.
func (h *CustomersHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.ledger.DeleteCustomer(r.Context(), req.Name); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// Restore handles POST /customers/restore.
func (h *CustomersHandlers) Restore(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.ledger.RestoreCustomer(r.Context(), req.Name); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// Rename handles POST /customers/rename.
func (h *CustomersHandlers) Rename(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OldName string `json:"oldName"`
		NewName string `json:"newName"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.ledger.RenameCustomer(r.Context(), req.OldName, req.NewName); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// Undo handles POST /customers/undo (single-slot add undo).
func (h *CustomersHandlers) Undo(w http.ResponseWriter, r *http.Request) {
	undone := h.ledger.UndoLastAdd(r.Context())
	writeJSON(w, http.StatusOK, map[string]bool{"undone": undone})
}

// Leaderboard handles GET /leaderboard?sort=points|redeemed.
func (h *CustomersHandlers) Leaderboard(w http.ResponseWriter, r *http.Request) {
	key := ledger.SortByPoints
	if r.URL.Query().Get("sort") == string(ledger.SortByRedeemed) {
		key = ledger.SortByRedeemed
	}
	writeJSON(w, http.StatusOK, h.ledger.Leaderboard(key))
}
