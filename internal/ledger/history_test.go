package ledger

import (
	"context"
	"testing"
	"time"

	"rentaldesk/internal/models"
)

// seedAt runs op with the engine clock pinned to ts.
func seedAt(e *Engine, ts time.Time, op func()) {
	prev := e.now
	e.now = func() time.Time { return ts }
	op()
	e.now = prev
}

func TestFilterHistoryByTypeAndPeriod(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	e.AddCustomer(ctx, "Ana")

	// testBase is Wednesday 2024-05-15; the week starts Sunday 2024-05-12.
	seedAt(e, time.Date(2024, time.May, 11, 9, 0, 0, 0, time.UTC), func() {
		e.AddPurchase(ctx, "Ana", 10)
	})
	seedAt(e, time.Date(2024, time.May, 13, 9, 0, 0, 0, time.UTC), func() {
		e.AddPurchase(ctx, "Ana", 20)
	})
	seedAt(e, testBase, func() {
		e.AddPurchase(ctx, "Ana", 30)
		e.RedeemPoints(ctx, "Ana", 1)
	})

	all := e.FilterHistory("", FilterAll, time.Time{}, time.Time{})
	if len(all) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(all))
	}

	adds := e.FilterHistory(models.TransactionAdd, FilterAll, time.Time{}, time.Time{})
	if len(adds) != 3 {
		t.Fatalf("expected 3 add entries, got %d", len(adds))
	}

	today := e.FilterHistory(models.TransactionAdd, FilterToday, time.Time{}, time.Time{})
	if len(today) != 1 || today[0].Amount != 30 {
		t.Fatalf("expected only today's purchase, got %+v", today)
	}

	week := e.FilterHistory(models.TransactionAdd, FilterWeek, time.Time{}, time.Time{})
	if len(week) != 2 {
		t.Fatalf("expected the Monday and Wednesday purchases, got %+v", week)
	}
}

func TestFilterHistoryCustomRangeIncludesEndDay(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	e.AddCustomer(ctx, "Ana")
	seedAt(e, time.Date(2024, time.May, 10, 23, 30, 0, 0, time.UTC), func() {
		e.AddPurchase(ctx, "Ana", 10)
	})
	seedAt(e, time.Date(2024, time.May, 11, 0, 30, 0, 0, time.UTC), func() {
		e.AddPurchase(ctx, "Ana", 20)
	})

	start := time.Date(2024, time.May, 9, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, time.May, 10, 0, 0, 0, 0, time.UTC)

	got := e.FilterHistory("", FilterCustom, start, end)
	if len(got) != 1 || got[0].Amount != 10 {
		t.Fatalf("range must cover the whole end day and no more, got %+v", got)
	}
}

func TestStats(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	e.AddCustomer(ctx, "Ana")
	e.AddCustomer(ctx, "Ben")

	seedAt(e, time.Date(2024, time.April, 1, 9, 0, 0, 0, time.UTC), func() {
		e.AddPurchase(ctx, "Ana", 100) // 5 points, outside the period
	})
	seedAt(e, testBase, func() {
		e.AddPurchase(ctx, "Ben", 40) // 2 points
		e.RedeemPoints(ctx, "Ben", 1)
	})

	s := e.Stats(FilterToday, time.Time{}, time.Time{})
	if s.TotalCustomers != 2 {
		t.Fatalf("expected 2 customers, got %d", s.TotalCustomers)
	}
	if s.TotalRevenue != 140 {
		t.Fatalf("total revenue spans all periods, got %v", s.TotalRevenue)
	}
	if s.TotalPoints != 6 {
		t.Fatalf("expected 6 points in circulation, got %v", s.TotalPoints)
	}
	if s.PeriodSales != 40 || s.PeriodPointsAdded != 2 || s.PeriodPointsRedeemed != 1 {
		t.Fatalf("unexpected period sums: %+v", s)
	}
}

func TestLeaderboardTiesKeepInsertionOrder(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	e.AddCustomer(ctx, "Zara")
	e.AddCustomer(ctx, "Ana")
	e.AddCustomer(ctx, "Mia")
	e.AddPurchase(ctx, "Zara", 100)
	e.AddPurchase(ctx, "Ana", 100)
	e.AddPurchase(ctx, "Mia", 200)

	board := e.Leaderboard(SortByPoints)
	if len(board) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(board))
	}
	if board[0].Name != "Mia" {
		t.Fatalf("expected Mia on top, got %q", board[0].Name)
	}
	// Zara and Ana tie on points; Zara was added first.
	if board[1].Name != "Zara" || board[2].Name != "Ana" {
		t.Fatalf("ties must keep insertion order, got %q then %q", board[1].Name, board[2].Name)
	}
}

func TestLeaderboardSortByRedeemed(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	e.AddCustomer(ctx, "Ana")
	e.AddCustomer(ctx, "Ben")
	e.AddPurchase(ctx, "Ana", 100)
	e.AddPurchase(ctx, "Ben", 100)
	e.RedeemPointsForTime(ctx, "Ben", 4)

	board := e.Leaderboard(SortByRedeemed)
	if board[0].Name != "Ben" || board[0].Redeemed != 4 {
		t.Fatalf("expected Ben first by redeemed, got %+v", board[0])
	}
}

func TestMonthlySales(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	e.AddCustomer(ctx, "Ana")
	seedAt(e, time.Date(2024, time.April, 2, 9, 0, 0, 0, time.UTC), func() {
		e.AddPurchase(ctx, "Ana", 50)
	})
	seedAt(e, time.Date(2024, time.April, 2, 15, 0, 0, 0, time.UTC), func() {
		e.AddPurchase(ctx, "Ana", 25)
	})
	seedAt(e, testBase, func() {
		e.AddPurchase(ctx, "Ana", 30)
		e.RedeemPoints(ctx, "Ana", 1) // redeem revenue is not sales
	})

	months := e.MonthlySales()
	if len(months) != 2 {
		t.Fatalf("expected 2 months, got %d", len(months))
	}
	if months[0].Month != "2024-05" || months[1].Month != "2024-04" {
		t.Fatalf("months must be newest first, got %+v", months)
	}
	if months[1].Total != 75 {
		t.Fatalf("expected April total 75, got %v", months[1].Total)
	}
	if months[1].Days[2] != 75 {
		t.Fatalf("expected both April sales on day 2, got %v", months[1].Days)
	}
	if months[0].Total != 30 {
		t.Fatalf("expected May total 30, got %v", months[0].Total)
	}
}
