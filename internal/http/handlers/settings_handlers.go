package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"rentaldesk/internal/models"
	"rentaldesk/internal/settings"
)

// SettingsHandlers serves the rental rates and promo configuration.
type SettingsHandlers struct {
	provider *settings.Provider
	logger   *zap.Logger
}

// NewSettingsHandlers returns handlers over the settings provider.
func NewSettingsHandlers(provider *settings.Provider, logger *zap.Logger) *SettingsHandlers {
	return &SettingsHandlers{provider: provider, logger: logger}
}

// Get handles GET /settings.
func (h *SettingsHandlers) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.provider.Current())
}

// Update handles POST /settings.
func (h *SettingsHandlers) Update(w http.ResponseWriter, r *http.Request) {
	var req models.RentalSettings
	if !decodeBody(w, r, &req) {
		return
	}
	if req.MinutesPerPeso <= 0 || req.PointsPerPeso <= 0 || req.MinutesPerPoint <= 0 {
		writeError(w, http.StatusBadRequest, "rates must be greater than zero")
		return
	}
	if err := h.provider.Update(r.Context(), req); err != nil {
		h.logger.Warn("settings update failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// NewHealthHandler returns GET /health handler.
func NewHealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
