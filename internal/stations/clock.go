package stations

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"rentaldesk/internal/events"
	"rentaldesk/internal/models"
)

const (
	// alertWindow is the near-expiry band that raises the tick alert.
	alertWindow = 5 * time.Second
	// nearExpiryWindow drives the visual warning state on views.
	nearExpiryWindow = 5 * time.Minute

	defaultTickPeriod = time.Second
)

// StationView is the per-tick read projection of one station.
type StationView struct {
	ID           int                  `json:"id"`
	Name         string               `json:"name"`
	Status       models.StationStatus `json:"status"`
	CustomerName string               `json:"customerName,omitempty"`
	Remaining    string               `json:"remaining,omitempty"`
	RemainingMS  int64                `json:"remainingMs"`
	Paused       bool                 `json:"paused"`
	Overdue      bool                 `json:"overdue"`
	NearExpiry   bool                 `json:"nearExpiry"`
}

// TickResult is the outcome of one clock sample.
type TickResult struct {
	Time     time.Time     `json:"time"`
	Expired  []int         `json:"expired,omitempty"`
	Alert    bool          `json:"alert"`
	Occupied int           `json:"occupied"`
	Stations []StationView `json:"stations"`
}

// Tick samples every station at now: running sessions at or past expiry are
// auto-stopped, and sessions inside the alert window raise a single
// tick-level alert. Paused stations do not advance and are skipped for
// both checks.
func (e *Engine) Tick(ctx context.Context, now time.Time) TickResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	result := TickResult{Time: now}
	stopped := false

	for i := range e.stations {
		station := &e.stations[i]
		if station.Status != models.StationOccupied || station.CurrentSession == nil {
			continue
		}
		if station.CurrentSession.PausedAt != nil {
			continue
		}
		remaining := station.CurrentSession.EndTime.Sub(now)
		if remaining <= 0 {
			result.Expired = append(result.Expired, station.ID)
			e.clear(station)
			stopped = true
			continue
		}
		if remaining <= alertWindow {
			result.Alert = true
		}
	}

	if stopped {
		e.persistStations(ctx)
	}
	if result.Alert {
		events.Emit(e.sink, "Station time about to expire", events.SeverityInfo, events.CategoryRental)
	}

	for _, station := range e.stations {
		view := StationView{
			ID:     station.ID,
			Name:   station.Name,
			Status: station.Status,
		}
		if station.Status == models.StationOccupied && station.CurrentSession != nil {
			session := station.CurrentSession
			remaining := session.Remaining(now)
			view.CustomerName = session.CustomerName
			view.Remaining = FormatRemaining(remaining)
			view.RemainingMS = remaining.Milliseconds()
			view.Paused = session.PausedAt != nil
			view.Overdue = remaining < 0
			view.NearExpiry = remaining > 0 && remaining <= nearExpiryWindow
			result.Occupied++
		}
		result.Stations = append(result.Stations, view)
	}
	return result
}

// Snapshot returns the current station views without advancing anything.
func (e *Engine) Snapshot(now time.Time) []StationView {
	e.mu.Lock()
	defer e.mu.Unlock()

	views := make([]StationView, 0, len(e.stations))
	for _, station := range e.stations {
		view := StationView{ID: station.ID, Name: station.Name, Status: station.Status}
		if station.Status == models.StationOccupied && station.CurrentSession != nil {
			session := station.CurrentSession
			remaining := session.Remaining(now)
			view.CustomerName = session.CustomerName
			view.Remaining = FormatRemaining(remaining)
			view.RemainingMS = remaining.Milliseconds()
			view.Paused = session.PausedAt != nil
			view.Overdue = remaining < 0
			view.NearExpiry = remaining > 0 && remaining <= nearExpiryWindow
		}
		views = append(views, view)
	}
	return views
}

// TickObserver receives each tick outcome after the engine has applied it.
type TickObserver func(TickResult)

// Clock is the 1 Hz sampler driving auto-stop and expiry alerts. It holds
// no state of its own; each tick is an ordinary engine operation.
type Clock struct {
	engine    *Engine
	logger    *zap.Logger
	period    time.Duration
	observers []TickObserver
}

// NewClock builds a clock over the engine. A non-positive period falls back
// to one second.
func NewClock(engine *Engine, period time.Duration, logger *zap.Logger) *Clock {
	if period <= 0 {
		period = defaultTickPeriod
	}
	return &Clock{engine: engine, period: period, logger: logger}
}

// Observe registers an observer for every tick. Must be called before Run.
func (c *Clock) Observe(fn TickObserver) {
	c.observers = append(c.observers, fn)
}

// Run samples until ctx is done.
func (c *Clock) Run(ctx context.Context) {
	ticker := time.NewTicker(c.period)
	defer ticker.Stop()

	c.logger.Info("timer clock started", zap.Duration("period", c.period))
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("timer clock stopped")
			return
		case <-ticker.C:
			result := c.engine.Tick(ctx, time.Now().UTC())
			for _, id := range result.Expired {
				c.logger.Debug("station auto-stopped", zap.Int("station", id))
			}
			for _, fn := range c.observers {
				fn(result)
			}
		}
	}
}

// FormatRemaining renders a duration as HH:MM:SS with hours wrapped at 24;
// overdue (negative) durations carry a leading minus.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		return "-" + FormatRemaining(-d)
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", (total/3600)%24, (total/60)%60, total%60)
}
