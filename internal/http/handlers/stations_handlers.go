package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"rentaldesk/internal/stations"
)

// StationsHandlers serves the station engine's operations.
type StationsHandlers struct {
	engine *stations.Engine
	logger *zap.Logger
}

// NewStationsHandlers returns handlers over the station engine.
func NewStationsHandlers(engine *stations.Engine, logger *zap.Logger) *StationsHandlers {
	return &StationsHandlers{engine: engine, logger: logger}
}

// List handles GET /stations: live views with formatted remaining time.
func (h *StationsHandlers) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Snapshot(time.Now().UTC()))
}

// Parked handles GET /parked-sessions.
func (h *StationsHandlers) Parked(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.ParkedSessions())
}

// Add handles POST /stations.
func (h *StationsHandlers) Add(w http.ResponseWriter, r *http.Request) {
	station := h.engine.AddStation(r.Context())
	writeJSON(w, http.StatusCreated, station)
}

// Delete handles POST /stations/delete.
func (h *StationsHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StationID int `json:"stationId"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.engine.DeleteStation(r.Context(), req.StationID); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// Start handles POST /stations/start.
func (h *StationsHandlers) Start(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StationID    int     `json:"stationId"`
		CustomerName string  `json:"customerName"`
		Amount       float64 `json:"amount"`
		Minutes      int     `json:"minutes"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.engine.Start(r.Context(), req.StationID, req.CustomerName, req.Amount, req.Minutes); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// Extend handles POST /stations/extend.
func (h *StationsHandlers) Extend(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StationID    int     `json:"stationId"`
		CustomerName string  `json:"customerName"`
		Amount       float64 `json:"amount"`
		Minutes      int     `json:"minutes"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.engine.ExtendTime(r.Context(), req.StationID, req.CustomerName, req.Amount, req.Minutes); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// RedeemTime handles POST /stations/redeem-time.
func (h *StationsHandlers) RedeemTime(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StationID    int     `json:"stationId"`
		CustomerName string  `json:"customerName"`
		Points       float64 `json:"points"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.engine.RedeemForTime(r.Context(), req.StationID, req.CustomerName, req.Points); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// Reduce handles POST /stations/reduce.
func (h *StationsHandlers) Reduce(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StationID int `json:"stationId"`
		Minutes   int `json:"minutes"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.engine.ReduceTime(r.Context(), req.StationID, req.Minutes); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// Pause handles POST /stations/pause.
func (h *StationsHandlers) Pause(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StationID int `json:"stationId"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.engine.Pause(r.Context(), req.StationID); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// Unpause handles POST /stations/unpause.
func (h *StationsHandlers) Unpause(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StationID int `json:"stationId"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.engine.Unpause(r.Context(), req.StationID); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// Park handles POST /stations/park. An expired session reports stopped
// instead of parked.
func (h *StationsHandlers) Park(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StationID    int    `json:"stationId"`
		CustomerName string `json:"customerName"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	parked, err := h.engine.Park(r.Context(), req.StationID, req.CustomerName)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if parked == nil {
		writeJSON(w, http.StatusOK, map[string]bool{"stopped": true})
		return
	}
	writeJSON(w, http.StatusOK, parked)
}

// Resume handles POST /stations/resume.
func (h *StationsHandlers) Resume(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StationID       int    `json:"stationId"`
		ParkedSessionID string `json:"parkedSessionId"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.engine.Resume(r.Context(), req.StationID, req.ParkedSessionID); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// Stop handles POST /stations/stop.
func (h *StationsHandlers) Stop(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StationID int `json:"stationId"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.engine.Stop(r.Context(), req.StationID); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// Transfer handles POST /stations/transfer. Zero minutes moves the whole
// session; positive minutes splits off part of it.
func (h *StationsHandlers) Transfer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FromStationID int `json:"fromStationId"`
		ToStationID   int `json:"toStationId"`
		Minutes       int `json:"minutes"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	var err error
	if req.Minutes > 0 {
		err = h.engine.TransferMinutes(r.Context(), req.FromStationID, req.ToStationID, req.Minutes)
	} else {
		err = h.engine.Transfer(r.Context(), req.FromStationID, req.ToStationID)
	}
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// Raw handles GET /stations/raw: the persisted station records, for export
// flows that need the stored shape rather than the live view.
func (h *StationsHandlers) Raw(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Stations())
}
