package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"rentaldesk/internal/ledger"
	"rentaldesk/internal/stations"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeEngineError maps the engine error taxonomy onto HTTP statuses and
// surfaces the specific message.
func writeEngineError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, ledger.ErrUnknownCustomer),
		errors.Is(err, stations.ErrStationNotFound),
		errors.Is(err, stations.ErrUnknownParkedSession):
		status = http.StatusNotFound
	case errors.Is(err, ledger.ErrDuplicateName),
		errors.Is(err, stations.ErrStationNotAvailable),
		errors.Is(err, stations.ErrStationNotOccupied):
		status = http.StatusConflict
	}
	writeError(w, status, err.Error())
}

func decodeBody(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
