package httpserver

import "net/http"

// Routes groups the service's handlers.
type Routes struct {
	Customers        http.HandlerFunc
	AddCustomer      http.HandlerFunc
	DeletedCustomers http.HandlerFunc
	Purchase         http.HandlerFunc
	Adjust           http.HandlerFunc
	Redeem           http.HandlerFunc
	DeleteCustomer   http.HandlerFunc
	RestoreCustomer  http.HandlerFunc
	RenameCustomer   http.HandlerFunc
	Undo             http.HandlerFunc
	Leaderboard      http.HandlerFunc

	History        http.HandlerFunc
	Stats          http.HandlerFunc
	MonthlySales   http.HandlerFunc
	WalkInSale     http.HandlerFunc
	HistoricalSale http.HandlerFunc

	Stations       http.HandlerFunc
	StationsRaw    http.HandlerFunc
	AddStation     http.HandlerFunc
	DeleteStation  http.HandlerFunc
	StartStation   http.HandlerFunc
	ExtendStation  http.HandlerFunc
	RedeemTime     http.HandlerFunc
	ReduceTime     http.HandlerFunc
	PauseStation   http.HandlerFunc
	UnpauseStation http.HandlerFunc
	ParkStation    http.HandlerFunc
	ResumeStation  http.HandlerFunc
	StopStation    http.HandlerFunc
	Transfer       http.HandlerFunc
	ParkedSessions http.HandlerFunc

	GetSettings    http.HandlerFunc
	UpdateSettings http.HandlerFunc

	Health    http.HandlerFunc
	Websocket http.HandlerFunc
	Metrics   http.Handler
}

// NewRouter registers endpoints.
func NewRouter(routes Routes) http.Handler {
	mux := http.NewServeMux()

	register := func(pattern, verb string, handler http.HandlerFunc) {
		if handler != nil {
			mux.Handle(pattern, method(verb, handler))
		}
	}

	register("/customers", http.MethodGet, routes.Customers)
	register("/customers/add", http.MethodPost, routes.AddCustomer)
	register("/customers/deleted", http.MethodGet, routes.DeletedCustomers)
	register("/customers/purchase", http.MethodPost, routes.Purchase)
	register("/customers/adjust", http.MethodPost, routes.Adjust)
	register("/customers/redeem", http.MethodPost, routes.Redeem)
	register("/customers/delete", http.MethodPost, routes.DeleteCustomer)
	register("/customers/restore", http.MethodPost, routes.RestoreCustomer)
	register("/customers/rename", http.MethodPost, routes.RenameCustomer)
	register("/customers/undo", http.MethodPost, routes.Undo)
	register("/leaderboard", http.MethodGet, routes.Leaderboard)

	register("/history", http.MethodGet, routes.History)
	register("/stats", http.MethodGet, routes.Stats)
	register("/sales/monthly", http.MethodGet, routes.MonthlySales)
	register("/sales/walk-in", http.MethodPost, routes.WalkInSale)
	register("/sales/historical", http.MethodPost, routes.HistoricalSale)

	register("/stations", http.MethodGet, routes.Stations)
	register("/stations/raw", http.MethodGet, routes.StationsRaw)
	register("/stations/add", http.MethodPost, routes.AddStation)
	register("/stations/delete", http.MethodPost, routes.DeleteStation)
	register("/stations/start", http.MethodPost, routes.StartStation)
	register("/stations/extend", http.MethodPost, routes.ExtendStation)
	register("/stations/redeem-time", http.MethodPost, routes.RedeemTime)
	register("/stations/reduce", http.MethodPost, routes.ReduceTime)
	register("/stations/pause", http.MethodPost, routes.PauseStation)
	register("/stations/unpause", http.MethodPost, routes.UnpauseStation)
	register("/stations/park", http.MethodPost, routes.ParkStation)
	register("/stations/resume", http.MethodPost, routes.ResumeStation)
	register("/stations/stop", http.MethodPost, routes.StopStation)
	register("/stations/transfer", http.MethodPost, routes.Transfer)
	register("/parked-sessions", http.MethodGet, routes.ParkedSessions)

	register("/settings", http.MethodGet, routes.GetSettings)
	register("/settings/update", http.MethodPost, routes.UpdateSettings)

	register("/health", http.MethodGet, routes.Health)
	register("/ws", http.MethodGet, routes.Websocket)
	if routes.Metrics != nil {
		mux.Handle("/metrics", routes.Metrics)
	}

	return mux
}

func method(expected string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != expected {
			w.Header().Set("Allow", expected)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handler(w, r)
	}
}
