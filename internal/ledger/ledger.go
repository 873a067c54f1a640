package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"rentaldesk/internal/events"
	"rentaldesk/internal/models"
	"rentaldesk/internal/settings"
	"rentaldesk/internal/store"
)

// Ledger identity and amount errors.
var (
	ErrInvalidAmount      = errors.New("amount must be greater than zero")
	ErrInsufficientPoints = errors.New("not enough points to redeem")
	ErrUnknownCustomer    = errors.New("customer not found")
	ErrDuplicateName      = errors.New("a customer with this name already exists")
	ErrInvalidName        = errors.New("invalid customer name")
)

// WalkInName is the ledger name recorded for sales without a customer record.
const WalkInName = "Walk-in Customer"

// ManualSaleName is the ledger name recorded for back-dated sale entries.
const ManualSaleName = "Manual Sale Entry"

// Engine owns the customer map, the transaction history and the archive of
// deleted customers. Every operation is atomic: it either completes with
// all invariants intact or fails without touching state, and writes through
// to the store before returning.
type Engine struct {
	mu       sync.Mutex
	store    store.Store
	sink     events.Sink
	settings *settings.Provider
	logger   *zap.Logger

	customers map[string]models.Customer
	order     []string // customer insertion order, for stable leaderboard ties
	history   []models.Transaction
	deleted   map[string]models.DeletedCustomer
	undoable  *models.Transaction

	now func() time.Time
}

// New builds a ledger engine seeded from the store.
func New(ctx context.Context, st store.Store, sink events.Sink, sp *settings.Provider, logger *zap.Logger) *Engine {
	e := &Engine{
		store:     st,
		sink:      sink,
		settings:  sp,
		logger:    logger,
		customers: make(map[string]models.Customer),
		deleted:   make(map[string]models.DeletedCustomer),
		now:       func() time.Time { return time.Now().UTC() },
	}
	if st != nil {
		st.Get(ctx, store.KeyCustomers, &e.customers)
		st.Get(ctx, store.KeyHistory, &e.history)
		st.Get(ctx, store.KeyDeletedCustomers, &e.deleted)
	}
	e.order = make([]string, 0, len(e.customers))
	for name := range e.customers {
		e.order = append(e.order, name)
	}
	sort.Strings(e.order)
	return e
}

// AddCustomer creates an empty loyalty account under the given name.
func (e *Engine) AddCustomer(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.customers[name]; ok {
		return ErrDuplicateName
	}
	e.customers[name] = models.Customer{}
	e.order = append(e.order, name)
	e.undoable = nil
	e.persistCustomers(ctx)

	events.Emit(e.sink, fmt.Sprintf("New customer added: %s", name), events.SeveritySuccess, events.CategoryRental)
	return nil
}

// AddPurchase records a purchase for a registered customer and accrues
// points at the configured earn rate. The created transaction is retained
// as the single undo slot.
func (e *Engine) AddPurchase(ctx context.Context, name string, amount float64) (models.Customer, models.Transaction, error) {
	if amount <= 0 {
		return models.Customer{}, models.Transaction{}, ErrInvalidAmount
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	customer, ok := e.customers[name]
	if !ok {
		return models.Customer{}, models.Transaction{}, fmt.Errorf("%w: %s", ErrUnknownCustomer, name)
	}

	points := amount * e.settings.Current().PointsPerPeso
	customer.Purchase += amount
	customer.Points += points
	e.customers[name] = customer

	tx := models.Transaction{
		Type:      models.TransactionAdd,
		Name:      name,
		Amount:    amount,
		Points:    points,
		Timestamp: e.now(),
	}
	e.history = append([]models.Transaction{tx}, e.history...)
	e.undoable = &tx

	e.persistCustomers(ctx)
	e.persistHistory(ctx)

	events.Emit(e.sink, fmt.Sprintf("%s spent ₱%.2f", name, amount), events.SeveritySuccess, events.CategoryRental)
	return customer, tx, nil
}

// AdjustPoints grants points manually, without a purchase. Not reachable by
// the quick-undo mechanism.
func (e *Engine) AdjustPoints(ctx context.Context, name string, points float64) error {
	if points <= 0 {
		return ErrInvalidAmount
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	customer, ok := e.customers[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCustomer, name)
	}
	customer.Points += points
	e.customers[name] = customer

	e.history = append([]models.Transaction{{
		Type:      models.TransactionAdjust,
		Name:      name,
		Points:    points,
		Timestamp: e.now(),
	}}, e.history...)
	e.undoable = nil

	e.persistCustomers(ctx)
	e.persistHistory(ctx)

	events.Emit(e.sink, fmt.Sprintf("%.2f points adjusted for %s", points, name), events.SeveritySuccess, events.CategoryRental)
	return nil
}

// RedeemPoints converts points into a purchase discount at the fixed
// pesos-per-point rate. The cumulative purchase never drops below zero.
func (e *Engine) RedeemPoints(ctx context.Context, name string, points float64) (float64, error) {
	if points <= 0 {
		return 0, ErrInvalidAmount
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	customer, ok := e.customers[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownCustomer, name)
	}
	if points > customer.Points {
		return 0, ErrInsufficientPoints
	}

	discount := points * settings.PesosPerPoint
	customer.Points -= points
	customer.Redeemed += points
	customer.Purchase = math.Max(0, customer.Purchase-discount)
	e.customers[name] = customer

	e.history = append([]models.Transaction{{
		Type:      models.TransactionRedeem,
		Name:      name,
		Amount:    discount,
		Points:    points,
		Timestamp: e.now(),
	}}, e.history...)
	e.undoable = nil

	e.persistCustomers(ctx)
	e.persistHistory(ctx)

	events.Emit(e.sink, fmt.Sprintf("%s redeemed %.2f points for a ₱%.2f discount", name, points, discount),
		events.SeveritySuccess, events.CategoryRental)
	return discount, nil
}

// RedeemPointsForTime spends points without a cash-equivalent discount; the
// redeem transaction is recorded with a zero amount and the cumulative
// purchase is untouched. Used when points pay for rental time.
func (e *Engine) RedeemPointsForTime(ctx context.Context, name string, points float64) error {
	if points <= 0 {
		return ErrInvalidAmount
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	customer, ok := e.customers[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCustomer, name)
	}
	if points > customer.Points {
		return ErrInsufficientPoints
	}

	customer.Points -= points
	customer.Redeemed += points
	e.customers[name] = customer

	e.history = append([]models.Transaction{{
		Type:      models.TransactionRedeem,
		Name:      name,
		Amount:    0,
		Points:    points,
		Timestamp: e.now(),
	}}, e.history...)
	e.undoable = nil

	e.persistCustomers(ctx)
	e.persistHistory(ctx)

	events.Emit(e.sink, fmt.Sprintf("%s redeemed %.2f pts for time", name, points), events.SeveritySuccess, events.CategoryRental)
	return nil
}

// WalkInSale records a cash sale with no customer record and no points.
// The created transaction occupies the undo slot.
func (e *Engine) WalkInSale(ctx context.Context, amount float64) (models.Transaction, error) {
	if amount <= 0 {
		return models.Transaction{}, ErrInvalidAmount
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	tx := models.Transaction{
		Type:      models.TransactionAdd,
		Name:      WalkInName,
		Amount:    amount,
		Points:    0,
		Timestamp: e.now(),
	}
	e.history = append([]models.Transaction{tx}, e.history...)
	e.undoable = &tx
	e.persistHistory(ctx)

	events.Emit(e.sink, fmt.Sprintf("Walk-in sale: ₱%.2f", amount), events.SeveritySuccess, events.CategoryRental)
	return tx, nil
}

// AddHistoricalSale records a back-dated walk-in sale at noon of the given
// day, keeping history in newest-first order. The undo slot is untouched.
func (e *Engine) AddHistoricalSale(ctx context.Context, day time.Time, amount float64) error {
	if amount <= 0 || day.IsZero() {
		return ErrInvalidAmount
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	tx := models.Transaction{
		Type:      models.TransactionAdd,
		Name:      ManualSaleName,
		Amount:    amount,
		Points:    0,
		Timestamp: time.Date(day.Year(), day.Month(), day.Day(), 12, 0, 0, 0, day.Location()),
	}
	e.history = append(e.history, tx)
	sortNewestFirst(e.history)
	e.persistHistory(ctx)

	events.Emit(e.sink, fmt.Sprintf("Manual sale added: ₱%.2f", amount), events.SeveritySuccess, events.CategoryRental)
	return nil
}

// DeleteCustomer archives the customer and their full transaction slice and
// removes both from the active collections.
func (e *Engine) DeleteCustomer(ctx context.Context, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	customer, ok := e.customers[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCustomer, name)
	}

	var kept, archived []models.Transaction
	for _, tx := range e.history {
		if tx.Name == name {
			archived = append(archived, tx)
		} else {
			kept = append(kept, tx)
		}
	}

	e.deleted[name] = models.DeletedCustomer{Data: customer, History: archived}
	delete(e.customers, name)
	e.removeFromOrder(name)
	e.history = kept
	e.undoable = nil

	e.persistCustomers(ctx)
	e.persistHistory(ctx)
	e.persistDeleted(ctx)

	events.Emit(e.sink, fmt.Sprintf("Customer %q has been deleted.", name), events.SeverityInfo, events.CategoryRental)
	return nil
}

// RestoreCustomer reinserts an archived customer, merges their history back
// into the main log and marks the re-activation with a restore entry.
func (e *Engine) RestoreCustomer(ctx context.Context, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.customers[name]; ok {
		return ErrDuplicateName
	}
	archived, ok := e.deleted[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCustomer, name)
	}

	e.customers[name] = archived.Data
	e.order = append(e.order, name)
	delete(e.deleted, name)

	e.history = append(e.history, archived.History...)
	e.history = append(e.history, models.Transaction{
		Type:      models.TransactionRestore,
		Name:      name,
		Timestamp: e.now(),
	})
	sortNewestFirst(e.history)
	e.undoable = nil

	e.persistCustomers(ctx)
	e.persistHistory(ctx)
	e.persistDeleted(ctx)

	events.Emit(e.sink, fmt.Sprintf("Customer %q restored.", name), events.SeveritySuccess, events.CategoryRental)
	return nil
}

// RenameCustomer re-keys the customer record and rewrites the name on every
// historical transaction referencing it, as one logical update.
func (e *Engine) RenameCustomer(ctx context.Context, oldName, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" || newName == oldName {
		return ErrInvalidName
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	customer, ok := e.customers[oldName]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCustomer, oldName)
	}
	if _, taken := e.customers[newName]; taken {
		return ErrDuplicateName
	}

	delete(e.customers, oldName)
	e.customers[newName] = customer
	for i, n := range e.order {
		if n == oldName {
			e.order[i] = newName
		}
	}
	for i := range e.history {
		if e.history[i].Name == oldName {
			e.history[i].Name = newName
		}
	}
	e.undoable = nil

	e.persistCustomers(ctx)
	e.persistHistory(ctx)

	events.Emit(e.sink, fmt.Sprintf("Customer %q renamed to %q.", oldName, newName), events.SeveritySuccess, events.CategoryRental)
	return nil
}

// UndoLastAdd reverses the retained add transaction, if any, and removes it
// from history. Reports whether anything was undone; an empty slot is a
// no-op.
func (e *Engine) UndoLastAdd(ctx context.Context) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.undoable == nil || e.undoable.Type != models.TransactionAdd {
		return false
	}
	tx := *e.undoable

	if customer, ok := e.customers[tx.Name]; ok {
		customer.Purchase -= tx.Amount
		customer.Points -= tx.Points
		e.customers[tx.Name] = customer
		e.persistCustomers(ctx)
	}

	kept := e.history[:0]
	for _, t := range e.history {
		if !t.Timestamp.Equal(tx.Timestamp) {
			kept = append(kept, t)
		}
	}
	e.history = kept
	e.undoable = nil
	e.persistHistory(ctx)

	events.Emit(e.sink, fmt.Sprintf("Last transaction for %s was undone.", tx.Name), events.SeverityInfo, events.CategoryRental)
	return true
}

// HasCustomer reports whether a registered customer holds the name.
func (e *Engine) HasCustomer(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.customers[name]
	return ok
}

// Customer returns the named customer's current balances.
func (e *Engine) Customer(name string) (models.Customer, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.customers[name]
	return c, ok
}

// Customers returns a copy of the active customer map.
func (e *Engine) Customers() map[string]models.Customer {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]models.Customer, len(e.customers))
	for name, c := range e.customers {
		out[name] = c
	}
	return out
}

// DeletedCustomers returns a copy of the archive.
func (e *Engine) DeletedCustomers() map[string]models.DeletedCustomer {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]models.DeletedCustomer, len(e.deleted))
	for name, d := range e.deleted {
		out[name] = d
	}
	return out
}

// History returns a copy of the full transaction log, newest first.
func (e *Engine) History() []models.Transaction {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.Transaction, len(e.history))
	copy(out, e.history)
	return out
}

func (e *Engine) removeFromOrder(name string) {
	for i, n := range e.order {
		if n == name {
			e.order = append(e.order[:i], e.order[i+1:]...)
			return
		}
	}
}

func sortNewestFirst(history []models.Transaction) {
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].Timestamp.After(history[j].Timestamp)
	})
}

// Store writes happen under the operation lock so a snapshot is never
// interleaved with another mutation. A failed write keeps the in-memory
// state authoritative and surfaces a generic warning.
func (e *Engine) persistCustomers(ctx context.Context) {
	e.persist(ctx, store.KeyCustomers, e.customers)
}

func (e *Engine) persistHistory(ctx context.Context) {
	e.persist(ctx, store.KeyHistory, e.history)
}

func (e *Engine) persistDeleted(ctx context.Context) {
	e.persist(ctx, store.KeyDeletedCustomers, e.deleted)
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
