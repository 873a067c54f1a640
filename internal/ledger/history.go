package ledger

import (
	"sort"
	"time"

	"rentaldesk/internal/models"
)

// DateFilter selects the period a history query covers.
type DateFilter string

const (
	FilterAll   DateFilter = "all"
	FilterToday DateFilter = "today"
	FilterWeek  DateFilter = "week"
	FilterMonth DateFilter = "month"
	// FilterCustom uses the start and end days passed alongside it; the end
	// day is included in full.
	FilterCustom DateFilter = "custom"
)

// Stats is the aggregate projection over customers and history.
type Stats struct {
	TotalCustomers       int     `json:"totalCustomers"`
	TotalPoints          float64 `json:"totalPointsInCirculation"`
	TotalRevenue         float64 `json:"totalRevenue"`
	PeriodSales          float64 `json:"periodSales"`
	PeriodPointsAdded    float64 `json:"periodPointsAdded"`
	PeriodPointsRedeemed float64 `json:"periodPointsRedeemed"`
}

// LeaderboardEntry is one customer row of the leaderboard projection.
type LeaderboardEntry struct {
	Name     string  `json:"name"`
	Points   float64 `json:"points"`
	Redeemed float64 `json:"redeemed"`
	Purchase float64 `json:"purchase"`
}

// LeaderboardSort selects the leaderboard ranking key.
type LeaderboardSort string

const (
	SortByPoints   LeaderboardSort = "points"
	SortByRedeemed LeaderboardSort = "redeemed"
)

// MonthlyBucket aggregates add-transaction revenue for one calendar month.
type MonthlyBucket struct {
	Month string          `json:"month"` // YYYY-MM
	Total float64         `json:"total"`
	Days  map[int]float64 `json:"days"`
}

// FilterHistory returns the transactions matching a kind (empty for all)
// and a date filter, newest first.
func (e *Engine) FilterHistory(kind models.TransactionType, filter DateFilter, start, end time.Time) []models.Transaction {
	e.mu.Lock()
	defer e.mu.Unlock()

	inRange := e.rangeFor(filter, start, end)
	var out []models.Transaction
	for _, tx := range e.history {
		if kind != "" && tx.Type != kind {
			continue
		}
		if !inRange(tx.Timestamp) {
			continue
		}
		out = append(out, tx)
	}
	return out
}

// Stats computes lifetime totals plus period sums over the date filter.
func (e *Engine) Stats(filter DateFilter, start, end time.Time) Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	var s Stats
	s.TotalCustomers = len(e.customers)
	for _, c := range e.customers {
		s.TotalPoints += c.Points
	}

	inRange := e.rangeFor(filter, start, end)
	for _, tx := range e.history {
		if tx.Type == models.TransactionAdd {
			s.TotalRevenue += tx.Amount
		}
		if !inRange(tx.Timestamp) {
			continue
		}
		switch tx.Type {
		case models.TransactionAdd:
			s.PeriodSales += tx.Amount
			s.PeriodPointsAdded += tx.Points
		case models.TransactionRedeem:
			s.PeriodPointsRedeemed += tx.Points
		}
	}
	return s
}

// Leaderboard ranks customers by the given key, descending. Ties keep the
// customers' insertion order.
func (e *Engine) Leaderboard(key LeaderboardSort) []LeaderboardEntry {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]LeaderboardEntry, 0, len(e.order))
	for _, name := range e.order {
		c := e.customers[name]
		out = append(out, LeaderboardEntry{Name: name, Points: c.Points, Redeemed: c.Redeemed, Purchase: c.Purchase})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if key == SortByRedeemed {
			return out[i].Redeemed > out[j].Redeemed
		}
		return out[i].Points > out[j].Points
	})
	return out
}

// MonthlySales groups add-transaction revenue by calendar month with a
// per-day breakdown, newest month first.
func (e *Engine) MonthlySales() []MonthlyBucket {
	e.mu.Lock()
	defer e.mu.Unlock()

	byMonth := make(map[string]*MonthlyBucket)
	for _, tx := range e.history {
		if tx.Type != models.TransactionAdd || tx.Amount == 0 {
			continue
		}
		month := tx.Timestamp.Format("2006-01")
		bucket, ok := byMonth[month]
		if !ok {
			bucket = &MonthlyBucket{Month: month, Days: make(map[int]float64)}
			byMonth[month] = bucket
		}
		bucket.Total += tx.Amount
		bucket.Days[tx.Timestamp.Day()] += tx.Amount
	}

	out := make([]MonthlyBucket, 0, len(byMonth))
	for _, bucket := range byMonth {
		out = append(out, *bucket)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month > out[j].Month })
	return out
}

// rangeFor builds the timestamp predicate for a date filter. Week starts on
// Sunday; the custom range includes the whole end day.
func (e *Engine) rangeFor(filter DateFilter, start, end time.Time) func(time.Time) bool {
	now := e.now()
	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch filter {
	case FilterToday:
		return func(t time.Time) bool { return !t.Before(startOfToday) }
	case FilterWeek:
		startOfWeek := startOfToday.AddDate(0, 0, -int(now.Weekday()))
		return func(t time.Time) bool { return !t.Before(startOfWeek) }
	case FilterMonth:
		startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return func(t time.Time) bool { return !t.Before(startOfMonth) }
	case FilterCustom:
		if start.IsZero() || end.IsZero() {
			return func(time.Time) bool { return false }
		}
		from := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
		to := time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), end.Location())
		return func(t time.Time) bool { return !t.Before(from) && !t.After(to) }
	default:
		return func(time.Time) bool { return true }
	}
}
