package stations

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"rentaldesk/internal/ledger"
	"rentaldesk/internal/models"
	"rentaldesk/internal/settings"
	"rentaldesk/internal/store"
)

var testBase = time.Date(2024, time.May, 15, 10, 0, 0, 0, time.UTC)

// fakeLedger records the payment and redemption calls the engine makes.
type fakeLedger struct {
	customers map[string]float64 // name -> point balance

	purchases []float64
	walkIns   []float64
	redeems   []float64
	failNext  error
}

func newFakeLedger(customers ...string) *fakeLedger {
	f := &fakeLedger{customers: make(map[string]float64)}
	for _, name := range customers {
		f.customers[name] = 100
	}
	return f
}

func (f *fakeLedger) HasCustomer(name string) bool {
	_, ok := f.customers[name]
	return ok
}

func (f *fakeLedger) AddPurchase(_ context.Context, name string, amount float64) (models.Customer, models.Transaction, error) {
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return models.Customer{}, models.Transaction{}, err
	}
	if _, ok := f.customers[name]; !ok {
		return models.Customer{}, models.Transaction{}, fmt.Errorf("%w: %s", ledger.ErrUnknownCustomer, name)
	}
	f.purchases = append(f.purchases, amount)
	return models.Customer{Purchase: amount}, models.Transaction{}, nil
}

func (f *fakeLedger) WalkInSale(_ context.Context, amount float64) (models.Transaction, error) {
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return models.Transaction{}, err
	}
	f.walkIns = append(f.walkIns, amount)
	return models.Transaction{}, nil
}

func (f *fakeLedger) RedeemPointsForTime(_ context.Context, name string, points float64) error {
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return err
	}
	balance, ok := f.customers[name]
	if !ok {
		return fmt.Errorf("%w: %s", ledger.ErrUnknownCustomer, name)
	}
	if points <= 0 {
		return ledger.ErrInvalidAmount
	}
	if points > balance {
		return ledger.ErrInsufficientPoints
	}
	f.customers[name] = balance - points
	f.redeems = append(f.redeems, points)
	return nil
}

func newTestEngine(t *testing.T, lg Ledger) *Engine {
	t.Helper()
	logger := zap.NewNop()
	provider := settings.NewProvider(context.Background(), nil, logger)
	e := New(context.Background(), store.NewMemoryStore(), nil, lg, provider, logger)
	e.now = func() time.Time { return testBase }
	ids := 0
	e.newID = func() string {
		ids++
		return fmt.Sprintf("parked-%d", ids)
	}
	return e
}

func occupiedSession(t *testing.T, e *Engine, id int) *models.Session {
	t.Helper()
	for _, s := range e.Stations() {
		if s.ID == id {
			if s.CurrentSession == nil {
				t.Fatalf("station %d has no session", id)
			}
			return s.CurrentSession
		}
	}
	t.Fatalf("station %d not found", id)
	return nil
}

func stationByID(t *testing.T, e *Engine, id int) models.Station {
	t.Helper()
	for _, s := range e.Stations() {
		if s.ID == id {
			return s
		}
	}
	t.Fatalf("station %d not found", id)
	return models.Station{}
}

func TestBootstrapDefaultStations(t *testing.T) {
	e := newTestEngine(t, newFakeLedger())
	stations := e.Stations()
	if len(stations) != 12 {
		t.Fatalf("expected 12 default stations, got %d", len(stations))
	}
	if stations[0].Name != "Station 1" || stations[0].Status != models.StationAvailable {
		t.Fatalf("unexpected first station: %+v", stations[0])
	}
}

func TestStartRegisteredCustomerEarnsPoints(t *testing.T) {
	lg := newFakeLedger("Ana")
	e := newTestEngine(t, lg)
	ctx := context.Background()

	if err := e.Start(ctx, 1, "Ana", 10, 60); err != nil {
		t.Fatalf("start: %v", err)
	}
	session := occupiedSession(t, e, 1)
	if session.CustomerName != "Ana" || session.AmountPaid != 10 {
		t.Fatalf("unexpected session: %+v", session)
	}
	if got := session.EndTime.Sub(testBase); got != time.Hour {
		t.Fatalf("expected 60 minutes, got %v", got)
	}
	if len(lg.purchases) != 1 || lg.purchases[0] != 10 {
		t.Fatalf("registered customer must earn through a purchase: %+v", lg.purchases)
	}
	if len(lg.walkIns) != 0 {
		t.Fatalf("no walk-in sale expected: %+v", lg.walkIns)
	}
}

func TestStartAnonymousIsWalkIn(t *testing.T) {
	lg := newFakeLedger()
	e := newTestEngine(t, lg)
	ctx := context.Background()

	if err := e.Start(ctx, 1, "", 5, 30); err != nil {
		t.Fatalf("start: %v", err)
	}
	session := occupiedSession(t, e, 1)
	if session.CustomerName != WalkInOccupant {
		t.Fatalf("expected walk-in occupant, got %q", session.CustomerName)
	}
	if len(lg.walkIns) != 1 || lg.walkIns[0] != 5 {
		t.Fatalf("expected a walk-in sale: %+v", lg.walkIns)
	}
}

func TestStartZeroAmountSkipsLedger(t *testing.T) {
	lg := newFakeLedger("Ana")
	e := newTestEngine(t, lg)

	if err := e.Start(context.Background(), 1, "Ana", 0, 30); err != nil {
		t.Fatalf("start: %v", err)
	}
	if len(lg.purchases) != 0 || len(lg.walkIns) != 0 {
		t.Fatal("zero amount must not touch the ledger")
	}
}

func TestStartValidation(t *testing.T) {
	e := newTestEngine(t, newFakeLedger())
	ctx := context.Background()

	if err := e.Start(ctx, 1, "", 5, 0); !errors.Is(err, ledger.ErrInvalidAmount) {
		t.Fatalf("expected invalid amount for zero minutes, got %v", err)
	}
	if err := e.Start(ctx, 99, "", 5, 30); !errors.Is(err, ErrStationNotFound) {
		t.Fatalf("expected station not found, got %v", err)
	}
	if err := e.Start(ctx, 1, "", 5, 30); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := e.Start(ctx, 1, "", 5, 30); !errors.Is(err, ErrStationNotAvailable) {
		t.Fatalf("expected station not available, got %v", err)
	}
}

func TestStartLedgerFailureLeavesStationUntouched(t *testing.T) {
	lg := newFakeLedger("Ana")
	lg.failNext = ledger.ErrInvalidAmount
	e := newTestEngine(t, lg)

	if err := e.Start(context.Background(), 1, "Ana", 10, 30); err == nil {
		t.Fatal("expected the ledger failure to surface")
	}
	if stationByID(t, e, 1).Status != models.StationAvailable {
		t.Fatal("a failed payment must leave the station available")
	}
}

func TestExtendOverdueSessionRestartsFromNow(t *testing.T) {
	e := newTestEngine(t, newFakeLedger())
	ctx := context.Background()

	if err := e.Start(ctx, 1, "", 5, 30); err != nil {
		t.Fatalf("start: %v", err)
	}
	// Jump past expiry, then extend by 10 minutes.
	later := testBase.Add(45 * time.Minute)
	e.now = func() time.Time { return later }

	if err := e.ExtendTime(ctx, 1, "", 2, 10); err != nil {
		t.Fatalf("extend: %v", err)
	}
	session := occupiedSession(t, e, 1)
	if got := session.EndTime.Sub(later); got != 10*time.Minute {
		t.Fatalf("overdue extension must anchor at now, got %v remaining", got)
	}
	if session.AmountPaid != 7 {
		t.Fatalf("expected amount paid 7, got %v", session.AmountPaid)
	}
}

func TestReduceTimeMayGoOverdue(t *testing.T) {
	e := newTestEngine(t, newFakeLedger())
	ctx := context.Background()

	e.Start(ctx, 1, "", 5, 10)
	if err := e.ReduceTime(ctx, 1, 30); err != nil {
		t.Fatalf("reduce: %v", err)
	}
	session := occupiedSession(t, e, 1)
	if got := session.EndTime.Sub(testBase); got != -20*time.Minute {
		t.Fatalf("reduction is unclamped, got %v", got)
	}
}

func TestRedeemForTimeOnAvailableStation(t *testing.T) {
	lg := newFakeLedger("Ana")
	e := newTestEngine(t, lg)

	if err := e.RedeemForTime(context.Background(), 1, "Ana", 5); err != nil {
		t.Fatalf("redeem for time: %v", err)
	}
	session := occupiedSession(t, e, 1)
	if session.CustomerName != "Ana" || session.AmountPaid != 0 {
		t.Fatalf("redeemed session must be zero-cash for the customer: %+v", session)
	}
	// 5 points at 6 minutes per point.
	if got := session.EndTime.Sub(testBase); got != 30*time.Minute {
		t.Fatalf("expected 30 minutes, got %v", got)
	}
}

func TestRedeemForTimeExtendsOccupiedStation(t *testing.T) {
	lg := newFakeLedger("Ana")
	e := newTestEngine(t, lg)
	ctx := context.Background()

	e.Start(ctx, 1, "", 5, 30)
	if err := e.RedeemForTime(ctx, 1, "Ana", 5); err != nil {
		t.Fatalf("redeem for time: %v", err)
	}
	session := occupiedSession(t, e, 1)
	if got := session.EndTime.Sub(testBase); got != time.Hour {
		t.Fatalf("expected 30+30 minutes, got %v", got)
	}
	// Occupant stays the original walk-in.
	if session.CustomerName != WalkInOccupant {
		t.Fatalf("occupant must not change, got %q", session.CustomerName)
	}
}

func TestRedeemForTimeFailureLeavesStationUntouched(t *testing.T) {
	lg := newFakeLedger("Ana")
	e := newTestEngine(t, lg)

	if err := e.RedeemForTime(context.Background(), 1, "Ana", 500); !errors.Is(err, ledger.ErrInsufficientPoints) {
		t.Fatalf("expected insufficient points, got %v", err)
	}
	if stationByID(t, e, 1).Status != models.StationAvailable {
		t.Fatal("a failed redemption must leave the station available")
	}
}

func TestPauseFreezesCountdown(t *testing.T) {
	e := newTestEngine(t, newFakeLedger())
	ctx := context.Background()

	e.Start(ctx, 1, "", 5, 30)
	if err := e.Pause(ctx, 1); err != nil {
		t.Fatalf("pause: %v", err)
	}

	// Time passes; the frozen remaining must not move.
	later := testBase.Add(20 * time.Minute)
	session := occupiedSession(t, e, 1)
	if got := session.Remaining(later); got != 30*time.Minute {
		t.Fatalf("paused remaining must be frozen at 30m, got %v", got)
	}

	e.now = func() time.Time { return later }
	if err := e.Unpause(ctx, 1); err != nil {
		t.Fatalf("unpause: %v", err)
	}
	session = occupiedSession(t, e, 1)
	if session.PausedAt != nil {
		t.Fatal("unpause must clear the pause mark")
	}
	if got := session.Remaining(later); got != 30*time.Minute {
		t.Fatalf("unpause must resume from the frozen remaining, got %v", got)
	}
}

func TestParkAndResumePreserveRemaining(t *testing.T) {
	e := newTestEngine(t, newFakeLedger("Ana"))
	ctx := context.Background()

	e.Start(ctx, 1, "Ana", 10, 30)
	later := testBase.Add(10 * time.Minute)
	e.now = func() time.Time { return later }

	parked, err := e.Park(ctx, 1, "")
	if err != nil {
		t.Fatalf("park: %v", err)
	}
	if parked == nil {
		t.Fatal("expected a parked session")
	}
	if parked.ID != "parked-1" || parked.CustomerName != "Ana" {
		t.Fatalf("unexpected parked entry: %+v", parked)
	}
	if parked.Remaining() != 20*time.Minute {
		t.Fatalf("expected 20 minutes preserved, got %v", parked.Remaining())
	}
	if parked.AmountPaid != 10 || parked.OriginalStationName != "Station 1" {
		t.Fatalf("parked entry must carry amount and origin: %+v", parked)
	}
	if stationByID(t, e, 1).Status != models.StationAvailable {
		t.Fatal("parking must free the station")
	}

	if err := e.Resume(ctx, 3, parked.ID); err != nil {
		t.Fatalf("resume: %v", err)
	}
	session := occupiedSession(t, e, 3)
	if got := session.EndTime.Sub(later); got != 20*time.Minute {
		t.Fatalf("resume must restore the preserved remaining, got %v", got)
	}
	if session.AmountPaid != 10 {
		t.Fatalf("resume must carry the amount paid, got %v", session.AmountPaid)
	}
	if len(e.ParkedSessions()) != 0 {
		t.Fatal("resume must consume the pool entry")
	}
}

func TestParkExpiredSessionStopsInstead(t *testing.T) {
	e := newTestEngine(t, newFakeLedger())
	ctx := context.Background()

	e.Start(ctx, 1, "", 5, 10)
	e.now = func() time.Time { return testBase.Add(15 * time.Minute) }

	parked, err := e.Park(ctx, 1, "")
	if err != nil {
		t.Fatalf("park: %v", err)
	}
	if parked != nil {
		t.Fatalf("expired session must stop, not park: %+v", parked)
	}
	if stationByID(t, e, 1).Status != models.StationAvailable {
		t.Fatal("expired session must be cleared")
	}
	if len(e.ParkedSessions()) != 0 {
		t.Fatal("nothing must enter the parked pool")
	}
}

func TestParkNameOverrideTagsWalkIn(t *testing.T) {
	e := newTestEngine(t, newFakeLedger())
	ctx := context.Background()

	e.Start(ctx, 1, "", 5, 30)
	parked, err := e.Park(ctx, 1, "Red Cap")
	if err != nil {
		t.Fatalf("park: %v", err)
	}
	if parked.CustomerName != "Red Cap" {
		t.Fatalf("expected the override name, got %q", parked.CustomerName)
	}
}

func TestResumeValidation(t *testing.T) {
	e := newTestEngine(t, newFakeLedger())
	ctx := context.Background()

	if err := e.Resume(ctx, 1, "missing"); !errors.Is(err, ErrUnknownParkedSession) {
		t.Fatalf("expected unknown parked session, got %v", err)
	}

	e.Start(ctx, 1, "", 5, 30)
	parked, _ := e.Park(ctx, 1, "")
	e.Start(ctx, 2, "", 5, 30)
	if err := e.Resume(ctx, 2, parked.ID); !errors.Is(err, ErrStationNotAvailable) {
		t.Fatalf("expected station not available, got %v", err)
	}
}

func TestTransferWholeSessionConservesAmountPaid(t *testing.T) {
	e := newTestEngine(t, newFakeLedger())
	ctx := context.Background()

	e.Start(ctx, 1, "", 10, 30)
	if err := e.Transfer(ctx, 1, 2); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if stationByID(t, e, 1).Status != models.StationAvailable {
		t.Fatal("source must become available")
	}
	session := occupiedSession(t, e, 2)
	if session.AmountPaid != 10 {
		t.Fatalf("whole transfer must carry the amount paid, got %v", session.AmountPaid)
	}
	if got := session.EndTime.Sub(testBase); got != 30*time.Minute {
		t.Fatalf("whole transfer must carry the remaining time, got %v", got)
	}
}

func TestTransferToOccupiedAbsorbsAmountPaid(t *testing.T) {
	e := newTestEngine(t, newFakeLedger())
	ctx := context.Background()

	e.Start(ctx, 1, "", 10, 30)
	e.Start(ctx, 2, "", 5, 20)
	if err := e.Transfer(ctx, 1, 2); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	session := occupiedSession(t, e, 2)
	if session.AmountPaid != 15 {
		t.Fatalf("destination must absorb the source amount, got %v", session.AmountPaid)
	}
	if got := session.EndTime.Sub(testBase); got != 50*time.Minute {
		t.Fatalf("expected 20+30 minutes, got %v", got)
	}
}

func TestTransferMinutesSplitsSession(t *testing.T) {
	e := newTestEngine(t, newFakeLedger("Ana"))
	ctx := context.Background()

	e.Start(ctx, 1, "Ana", 10, 30)
	if err := e.TransferMinutes(ctx, 1, 2, 10); err != nil {
		t.Fatalf("transfer minutes: %v", err)
	}

	source := occupiedSession(t, e, 1)
	if got := source.EndTime.Sub(testBase); got != 20*time.Minute {
		t.Fatalf("source must lose the moved minutes, got %v", got)
	}
	split := occupiedSession(t, e, 2)
	if split.CustomerName != "Ana (Split)" {
		t.Fatalf("split session must be tagged, got %q", split.CustomerName)
	}
	if split.AmountPaid != 0 {
		t.Fatalf("revenue stays with the source, got %v", split.AmountPaid)
	}
	if got := split.EndTime.Sub(testBase); got != 10*time.Minute {
		t.Fatalf("expected 10 minutes on the split, got %v", got)
	}
}

func TestTransferMinutesValidation(t *testing.T) {
	e := newTestEngine(t, newFakeLedger())
	ctx := context.Background()

	e.Start(ctx, 1, "", 10, 30)
	if err := e.TransferMinutes(ctx, 1, 2, 45); !errors.Is(err, ErrInvalidTransferAmount) {
		t.Fatalf("expected invalid transfer for more than remaining, got %v", err)
	}
	if err := e.TransferMinutes(ctx, 1, 1, 10); !errors.Is(err, ErrInvalidTransferAmount) {
		t.Fatalf("expected invalid transfer to self, got %v", err)
	}
	if err := e.Transfer(ctx, 2, 1); !errors.Is(err, ErrStationNotOccupied) {
		t.Fatalf("expected not occupied source, got %v", err)
	}
}

func TestAutoStopIsIdempotent(t *testing.T) {
	e := newTestEngine(t, newFakeLedger())
	ctx := context.Background()

	e.Start(ctx, 1, "", 5, 10)
	e.AutoStop(ctx, 1)
	if stationByID(t, e, 1).Status != models.StationAvailable {
		t.Fatal("auto-stop must clear the station")
	}
	e.AutoStop(ctx, 1) // no-op
	e.AutoStop(ctx, 99)
}

func TestAddAndDeleteStation(t *testing.T) {
	e := newTestEngine(t, newFakeLedger())
	ctx := context.Background()

	station := e.AddStation(ctx)
	if station.ID != 13 || station.Name != "Station 13" {
		t.Fatalf("expected the next free id, got %+v", station)
	}

	if err := e.DeleteStation(ctx, 5); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(e.Stations()) != 12 {
		t.Fatalf("expected 12 stations after delete, got %d", len(e.Stations()))
	}
	if err := e.DeleteStation(ctx, 5); !errors.Is(err, ErrStationNotFound) {
		t.Fatalf("expected station not found, got %v", err)
	}

	// A new station after a gap still takes max+1.
	station = e.AddStation(ctx)
	if station.ID != 14 {
		t.Fatalf("expected id 14, got %d", station.ID)
	}
}
