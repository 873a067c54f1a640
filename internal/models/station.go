package models

import "time"

// StationStatus enumerates station occupancy states.
type StationStatus string

const (
	StationAvailable StationStatus = "available"
	StationOccupied  StationStatus = "occupied"
)

// Session is a timed occupancy of a station. EndTime is the authoritative
// expiry instant. While PausedAt is set the countdown is frozen: effective
// remaining time is EndTime - PausedAt instead of EndTime - now.
type Session struct {
	CustomerName string     `json:"customerName"`
	StartTime    time.Time  `json:"startTime"`
	EndTime      time.Time  `json:"endTime"`
	AmountPaid   float64    `json:"amountPaid"`
	PausedAt     *time.Time `json:"pausedAt,omitempty"`
}

// Remaining returns the session's effective remaining time at now.
func (s *Session) Remaining(now time.Time) time.Duration {
	if s.PausedAt != nil {
		return s.EndTime.Sub(*s.PausedAt)
	}
	return s.EndTime.Sub(now)
}

// Station is a rental terminal slot. Status is occupied exactly when
// CurrentSession is present.
type Station struct {
	ID             int           `json:"id"`
	Name           string        `json:"name"`
	Status         StationStatus `json:"status"`
	CurrentSession *Session      `json:"currentSession,omitempty"`
}

// Remaining returns the station's effective remaining time at now,
// or zero for an available station.
func (s *Station) Remaining(now time.Time) time.Duration {
	if s.Status != StationOccupied || s.CurrentSession == nil {
		return 0
	}
	return s.CurrentSession.Remaining(now)
}

// ParkedSession is a session lifted out of its station to free it without
// losing remaining time. It exists only while detached and is consumed
// exactly once by a resume. Remaining time is stored in milliseconds to
// round-trip the persisted JSON unchanged.
type ParkedSession struct {
	ID                  string    `json:"id"`
	CustomerName        string    `json:"customerName"`
	RemainingMS         int64     `json:"remainingTime"`
	AmountPaid          float64   `json:"amountPaid"`
	OriginalStationName string    `json:"originalStationName"`
	ParkedAt            time.Time `json:"parkedAt"`
}

// Remaining returns the preserved remaining time as a duration.
func (p ParkedSession) Remaining() time.Duration {
	return time.Duration(p.RemainingMS) * time.Millisecond
}
