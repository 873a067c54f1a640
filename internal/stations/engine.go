package stations

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rentaldesk/internal/events"
	"rentaldesk/internal/ledger"
	"rentaldesk/internal/models"
	"rentaldesk/internal/settings"
	"rentaldesk/internal/store"
)

// Station state and transfer errors. Amount and minutes validation reuses
// the ledger's ErrInvalidAmount so callers handle one taxonomy.
var (
	ErrStationNotFound       = errors.New("station not found")
	ErrStationNotOccupied    = errors.New("station has no active session")
	ErrStationNotAvailable   = errors.New("station is already occupied")
	ErrUnknownParkedSession  = errors.New("parked session not found")
	ErrInvalidTransferAmount = errors.New("invalid transfer amount")
)

// WalkInOccupant is the session name used when no customer is given.
const WalkInOccupant = "Walk-in"

const defaultStationCount = 12

// Ledger is the capability the station engine needs from the loyalty
// ledger. Station operations with a monetary or point consequence go
// through it; the engine never touches ledger collections directly.
type Ledger interface {
	HasCustomer(name string) bool
	AddPurchase(ctx context.Context, name string, amount float64) (models.Customer, models.Transaction, error)
	WalkInSale(ctx context.Context, amount float64) (models.Transaction, error)
	RedeemPointsForTime(ctx context.Context, name string, points float64) error
}

// Engine owns the station list and the parked-session pool. Operations are
// run-to-completion critical sections; any ledger side effect is applied
// before the station-side mutation so a ledger failure leaves the stations
// untouched.
type Engine struct {
	mu       sync.Mutex
	store    store.Store
	sink     events.Sink
	ledger   Ledger
	settings *settings.Provider
	logger   *zap.Logger

	stations []models.Station
	parked   []models.ParkedSession

	now   func() time.Time
	newID func() string
}

// New builds a station engine seeded from the store, bootstrapping the
// default station set on first run.
func New(ctx context.Context, st store.Store, sink events.Sink, lg Ledger, sp *settings.Provider, logger *zap.Logger) *Engine {
	e := &Engine{
		store:    st,
		sink:     sink,
		ledger:   lg,
		settings: sp,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
	loaded := false
	if st != nil {
		loaded = st.Get(ctx, store.KeyStations, &e.stations)
		st.Get(ctx, store.KeyParkedSessions, &e.parked)
	}
	if !loaded {
		e.stations = models.DefaultStations(defaultStationCount)
	}
	return e
}

// Start begins a new session on an available station. Minutes come from the
// caller (rate-derived or promo-selected); the engine does not re-derive
// them. A registered customer earns purchase points; any other occupant is
// recorded as a walk-in sale when cash changed hands.
func (e *Engine) Start(ctx context.Context, stationID int, customerName string, amount float64, minutes int) error {
	if minutes <= 0 {
		return fmt.Errorf("%w: minutes", ledger.ErrInvalidAmount)
	}
	if amount < 0 {
		return fmt.Errorf("%w: amount", ledger.ErrInvalidAmount)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	station := e.find(stationID)
	if station == nil {
		return fmt.Errorf("%w: %d", ErrStationNotFound, stationID)
	}
	if station.Status != models.StationAvailable {
		return ErrStationNotAvailable
	}

	occupant, err := e.applyPayment(ctx, customerName, amount)
	if err != nil {
		return err
	}

	now := e.now()
	station.Status = models.StationOccupied
	station.CurrentSession = &models.Session{
		CustomerName: occupant,
		StartTime:    now,
		EndTime:      now.Add(time.Duration(minutes) * time.Minute),
		AmountPaid:   amount,
	}
	e.persistStations(ctx)

	events.Emit(e.sink, fmt.Sprintf("Time added to %s", station.Name), events.SeveritySuccess, events.CategoryRental)
	return nil
}

// ExtendTime adds minutes to an occupied station. The new end time is
// anchored at max(now, current end): extending an overdue session restarts
// the countdown from now instead of the stale past end.
func (e *Engine) ExtendTime(ctx context.Context, stationID int, customerName string, amount float64, minutes int) error {
	if minutes <= 0 {
		return fmt.Errorf("%w: minutes", ledger.ErrInvalidAmount)
	}
	if amount < 0 {
		return fmt.Errorf("%w: amount", ledger.ErrInvalidAmount)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	station := e.find(stationID)
	if station == nil {
		return fmt.Errorf("%w: %d", ErrStationNotFound, stationID)
	}
	if station.Status != models.StationOccupied || station.CurrentSession == nil {
		return ErrStationNotOccupied
	}

	if _, err := e.applyPayment(ctx, customerName, amount); err != nil {
		return err
	}

	session := station.CurrentSession
	session.EndTime = extendClamped(session.EndTime, e.now(), time.Duration(minutes)*time.Minute)
	session.AmountPaid += amount
	e.persistStations(ctx)

	events.Emit(e.sink, fmt.Sprintf("Time added to %s", station.Name), events.SeveritySuccess, events.CategoryRental)
	return nil
}

// RedeemForTime converts a customer's points into station time at the
// configured minutes-per-point rate: an occupied station is extended with
// the overdue clamp, an available one starts a zero-cash session with the
// redeeming customer as occupant.
func (e *Engine) RedeemForTime(ctx context.Context, stationID int, customerName string, points float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	station := e.find(stationID)
	if station == nil {
		return fmt.Errorf("%w: %d", ErrStationNotFound, stationID)
	}

	// Ledger validates the customer and balance; nothing station-side may
	// change if it fails.
	if err := e.ledger.RedeemPointsForTime(ctx, customerName, points); err != nil {
		return err
	}

	duration := time.Duration(points * e.settings.Current().MinutesPerPoint * float64(time.Minute))
	now := e.now()

	if station.Status == models.StationOccupied && station.CurrentSession != nil {
		station.CurrentSession.EndTime = extendClamped(station.CurrentSession.EndTime, now, duration)
	} else {
		station.Status = models.StationOccupied
		station.CurrentSession = &models.Session{
			CustomerName: customerName,
			StartTime:    now,
			EndTime:      now.Add(duration),
			AmountPaid:   0,
		}
	}
	e.persistStations(ctx)

	events.Emit(e.sink, fmt.Sprintf("%s redeemed %.2f points for %.0f mins on %s",
		customerName, points, duration.Minutes(), station.Name), events.SeveritySuccess, events.CategoryRental)
	return nil
}

// ReduceTime subtracts minutes from an occupied station's end time without
// clamping; the operator may deliberately drive the session overdue.
func (e *Engine) ReduceTime(ctx context.Context, stationID int, minutes int) error {
	if minutes <= 0 {
		return fmt.Errorf("%w: minutes", ledger.ErrInvalidAmount)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	station := e.find(stationID)
	if station == nil {
		return fmt.Errorf("%w: %d", ErrStationNotFound, stationID)
	}
	if station.Status != models.StationOccupied || station.CurrentSession == nil {
		return ErrStationNotOccupied
	}

	station.CurrentSession.EndTime = station.CurrentSession.EndTime.Add(-time.Duration(minutes) * time.Minute)
	e.persistStations(ctx)

	events.Emit(e.sink, fmt.Sprintf("Reduced %d minutes from %s", minutes, station.Name), events.SeverityInfo, events.CategoryRental)
	return nil
}

// Park lifts the session out of the station, preserving its remaining time
// in the parked pool, and frees the station. A session that has already
// expired cannot be parked: it is stopped instead and nil is returned.
// nameOverride, when non-empty, names the parked entry (used to tag
// anonymous walk-ins before parking).
func (e *Engine) Park(ctx context.Context, stationID int, nameOverride string) (*models.ParkedSession, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	station := e.find(stationID)
	if station == nil {
		return nil, fmt.Errorf("%w: %d", ErrStationNotFound, stationID)
	}
	if station.Status != models.StationOccupied || station.CurrentSession == nil {
		return nil, ErrStationNotOccupied
	}

	session := station.CurrentSession
	now := e.now()
	remaining := session.Remaining(now)

	if remaining <= 0 {
		e.clear(station)
		e.persistStations(ctx)
		events.Emit(e.sink, "Time already expired, stopping instead of parking.", events.SeverityInfo, events.CategoryRental)
		return nil, nil
	}

	name := session.CustomerName
	if nameOverride != "" {
		name = nameOverride
	}
	parked := models.ParkedSession{
		ID:                  e.newID(),
		CustomerName:        name,
		RemainingMS:         remaining.Milliseconds(),
		AmountPaid:          session.AmountPaid,
		OriginalStationName: station.Name,
		ParkedAt:            now,
	}
	e.parked = append([]models.ParkedSession{parked}, e.parked...)
	e.clear(station)

	e.persistStations(ctx)
	e.persistParked(ctx)

	events.Emit(e.sink, fmt.Sprintf("Session for %s parked.", parked.CustomerName), events.SeverityInfo, events.CategoryRental)
	return &parked, nil
}

// Resume re-attaches a parked session to an available station with a fresh
// end time computed from the preserved remaining duration, consuming the
// pool entry.
func (e *Engine) Resume(ctx context.Context, stationID int, parkedID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	station := e.find(stationID)
	if station == nil {
		return fmt.Errorf("%w: %d", ErrStationNotFound, stationID)
	}
	if station.Status != models.StationAvailable {
		return ErrStationNotAvailable
	}

	idx := -1
	for i, p := range e.parked {
		if p.ID == parkedID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrUnknownParkedSession
	}
	parked := e.parked[idx]

	now := e.now()
	station.Status = models.StationOccupied
	station.CurrentSession = &models.Session{
		CustomerName: parked.CustomerName,
		StartTime:    now,
		EndTime:      now.Add(parked.Remaining()),
		AmountPaid:   parked.AmountPaid,
	}
	e.parked = append(e.parked[:idx], e.parked[idx+1:]...)

	e.persistStations(ctx)
	e.persistParked(ctx)

	events.Emit(e.sink, fmt.Sprintf("Resumed session for %s on %s", parked.CustomerName, station.Name),
		events.SeveritySuccess, events.CategoryRental)
	return nil
}

// Pause freezes an occupied station's countdown. Pausing an already paused
// session is a no-op.
func (e *Engine) Pause(ctx context.Context, stationID int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	station := e.find(stationID)
	if station == nil {
		return fmt.Errorf("%w: %d", ErrStationNotFound, stationID)
	}
	if station.Status != models.StationOccupied || station.CurrentSession == nil {
		return ErrStationNotOccupied
	}
	if station.CurrentSession.PausedAt != nil {
		return nil
	}

	now := e.now()
	station.CurrentSession.PausedAt = &now
	e.persistStations(ctx)

	events.Emit(e.sink, fmt.Sprintf("%s paused", station.Name), events.SeverityInfo, events.CategoryRental)
	return nil
}

// Unpause restarts a paused countdown, shifting the end time forward by the
// paused span so the remaining time picks up where it froze.
func (e *Engine) Unpause(ctx context.Context, stationID int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	station := e.find(stationID)
	if station == nil {
		return fmt.Errorf("%w: %d", ErrStationNotFound, stationID)
	}
	if station.Status != models.StationOccupied || station.CurrentSession == nil {
		return ErrStationNotOccupied
	}
	session := station.CurrentSession
	if session.PausedAt == nil {
		return nil
	}

	session.EndTime = session.EndTime.Add(e.now().Sub(*session.PausedAt))
	session.PausedAt = nil
	e.persistStations(ctx)

	events.Emit(e.sink, fmt.Sprintf("%s resumed", station.Name), events.SeveritySuccess, events.CategoryRental)
	return nil
}

// Stop clears an occupied station, discarding the session.
func (e *Engine) Stop(ctx context.Context, stationID int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	station := e.find(stationID)
	if station == nil {
		return fmt.Errorf("%w: %d", ErrStationNotFound, stationID)
	}
	if station.Status != models.StationOccupied {
		return ErrStationNotOccupied
	}

	e.clear(station)
	e.persistStations(ctx)

	events.Emit(e.sink, fmt.Sprintf("%s stopped", station.Name), events.SeverityInfo, events.CategoryRental)
	return nil
}

// AutoStop clears the station when its time has run out. Unlike Stop it is
// idempotent: an already-available or unknown station is a no-op, since the
// clock may race a manual stop.
func (e *Engine) AutoStop(ctx context.Context, stationID int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	station := e.find(stationID)
	if station == nil || station.Status != models.StationOccupied {
		return
	}
	e.clear(station)
	e.persistStations(ctx)
}

// Transfer moves the entire remaining duration of the source session. An
// available destination receives the whole session (occupant and amount
// paid, unpaused); an occupied destination is extended with the overdue
// clamp and absorbs the source's amount paid. The source becomes available.
func (e *Engine) Transfer(ctx context.Context, fromID, toID int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	from, to, remaining, err := e.transferEndpoints(fromID, toID)
	if err != nil {
		return err
	}

	now := e.now()
	source := from.CurrentSession

	if to.Status == models.StationOccupied && to.CurrentSession != nil {
		dest := to.CurrentSession
		dest.EndTime = extendClamped(dest.EndTime, now, remaining)
		dest.AmountPaid += source.AmountPaid
	} else {
		to.Status = models.StationOccupied
		to.CurrentSession = &models.Session{
			CustomerName: source.CustomerName,
			StartTime:    now,
			EndTime:      now.Add(remaining),
			AmountPaid:   source.AmountPaid,
		}
	}
	e.clear(from)
	e.persistStations(ctx)

	events.Emit(e.sink, fmt.Sprintf("Moved session from %s to %s", from.Name, to.Name),
		events.SeveritySuccess, events.CategoryRental)
	return nil
}

// TransferMinutes moves part of the source's remaining time. The source
// session continues with its end time reduced; an available destination
// gets a new zero-cash session tagged as a split, an occupied one is
// extended. Revenue attribution stays with the source.
func (e *Engine) TransferMinutes(ctx context.Context, fromID, toID int, minutes int) error {
	if minutes <= 0 {
		return ErrInvalidTransferAmount
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	from, to, remaining, err := e.transferEndpoints(fromID, toID)
	if err != nil {
		return err
	}
	duration := time.Duration(minutes) * time.Minute
	if duration > remaining {
		return ErrInvalidTransferAmount
	}

	now := e.now()
	source := from.CurrentSession
	source.EndTime = source.EndTime.Add(-duration)

	if to.Status == models.StationOccupied && to.CurrentSession != nil {
		dest := to.CurrentSession
		dest.EndTime = extendClamped(dest.EndTime, now, duration)
	} else {
		to.Status = models.StationOccupied
		to.CurrentSession = &models.Session{
			CustomerName: source.CustomerName + " (Split)",
			StartTime:    now,
			EndTime:      now.Add(duration),
			AmountPaid:   0,
		}
	}
	e.persistStations(ctx)

	events.Emit(e.sink, fmt.Sprintf("Transferred %d mins from %s to %s", minutes, from.Name, to.Name),
		events.SeveritySuccess, events.CategoryRental)
	return nil
}

// AddStation appends a new available station with the next free id.
func (e *Engine) AddStation(ctx context.Context) models.Station {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := 1
	for _, s := range e.stations {
		if s.ID >= id {
			id = s.ID + 1
		}
	}
	station := models.Station{ID: id, Name: models.StationName(id), Status: models.StationAvailable}
	e.stations = append(e.stations, station)
	e.persistStations(ctx)

	events.Emit(e.sink, fmt.Sprintf("%s added", station.Name), events.SeveritySuccess, events.CategoryRental)
	return station
}

// DeleteStation removes the station. An occupied station's session is
// discarded; confirming that is the caller's concern.
func (e *Engine) DeleteStation(ctx context.Context, stationID int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, s := range e.stations {
		if s.ID == stationID {
			name := s.Name
			e.stations = append(e.stations[:i], e.stations[i+1:]...)
			e.persistStations(ctx)
			events.Emit(e.sink, fmt.Sprintf("%s deleted", name), events.SeverityInfo, events.CategoryRental)
			return nil
		}
	}
	return fmt.Errorf("%w: %d", ErrStationNotFound, stationID)
}

// Stations returns a deep copy of the station list.
func (e *Engine) Stations() []models.Station {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.copyStations()
}

// ParkedSessions returns a copy of the parked pool, newest first.
func (e *Engine) ParkedSessions() []models.ParkedSession {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.ParkedSession, len(e.parked))
	copy(out, e.parked)
	return out
}

// applyPayment routes the cash side of a start/extend to the ledger.
// Registered customers earn points; anyone else is a walk-in sale. A zero
// amount records nothing.
func (e *Engine) applyPayment(ctx context.Context, customerName string, amount float64) (string, error) {
	occupant := customerName
	if occupant == "" {
		occupant = WalkInOccupant
	}
	if amount == 0 {
		return occupant, nil
	}
	if customerName != "" && customerName != WalkInOccupant && e.ledger.HasCustomer(customerName) {
		if _, _, err := e.ledger.AddPurchase(ctx, customerName, amount); err != nil {
			return "", err
		}
		return occupant, nil
	}
	if _, err := e.ledger.WalkInSale(ctx, amount); err != nil {
		return "", err
	}
	return occupant, nil
}

// transferEndpoints validates a transfer pair and returns the source's
// effective remaining time, which must be positive.
func (e *Engine) transferEndpoints(fromID, toID int) (*models.Station, *models.Station, time.Duration, error) {
	from := e.find(fromID)
	if from == nil {
		return nil, nil, 0, fmt.Errorf("%w: %d", ErrStationNotFound, fromID)
	}
	to := e.find(toID)
	if to == nil {
		return nil, nil, 0, fmt.Errorf("%w: %d", ErrStationNotFound, toID)
	}
	if fromID == toID {
		return nil, nil, 0, ErrInvalidTransferAmount
	}
	if from.Status != models.StationOccupied || from.CurrentSession == nil {
		return nil, nil, 0, ErrStationNotOccupied
	}
	remaining := from.CurrentSession.Remaining(e.now())
	if remaining <= 0 {
		return nil, nil, 0, ErrInvalidTransferAmount
	}
	return from, to, remaining, nil
}

func (e *Engine) find(stationID int) *models.Station {
	for i := range e.stations {
		if e.stations[i].ID == stationID {
			return &e.stations[i]
		}
	}
	return nil
}

func (e *Engine) clear(station *models.Station) {
	station.Status = models.StationAvailable
	station.CurrentSession = nil
}

func (e *Engine) copyStations() []models.Station {
	out := make([]models.Station, len(e.stations))
	copy(out, e.stations)
	for i := range out {
		if out[i].CurrentSession != nil {
			session := *out[i].CurrentSession
			out[i].CurrentSession = &session
		}
	}
	return out
}

func (e *Engine) persistStations(ctx context.Context) {
	e.persist(ctx, store.KeyStations, e.stations)
}

func (e *Engine) persistParked(ctx context.Context) {
	e.persist(ctx, store.KeyParkedSessions, e.parked)
}

func (e *Engine) persist(ctx context.Context, key string, value any) {
	if e.store == nil {
		return
	}
	if err := e.store.Set(ctx, key, value); err != nil {
		e.logger.Warn("state write failed, in-memory copy remains authoritative",
			zap.String("key", key), zap.Error(err))
		events.Emit(e.sink, "Failed to save changes.", events.SeverityError, events.CategoryRental)
	}
}

// extendClamped anchors an extension at the later of now and the current
// end, so extending an overdue session never yields less than the added
// duration.
func extendClamped(end, now time.Time, add time.Duration) time.Time {
	if now.After(end) {
		end = now
	}
	return end.Add(add)
}
