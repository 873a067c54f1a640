package models

import "fmt"

// Promo is a named quick-select price/time bundle.
type Promo struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Price   float64 `json:"price"`
	Minutes int     `json:"minutes"`
}

// RentalSettings holds the currency/time/point conversion rates read by the
// engines. Mutated only through the settings surface, never by the engines.
type RentalSettings struct {
	MinutesPerPeso  float64 `json:"minutesPerPeso"`
	PointsPerPeso   float64 `json:"pointsPerPeso"`
	MinutesPerPoint float64 `json:"minutesPerPoint"`
	Promos          []Promo `json:"promos"`
}

// DefaultRentalSettings returns the bootstrap rates and promos.
func DefaultRentalSettings() RentalSettings {
	return RentalSettings{
		MinutesPerPeso:  6,
		PointsPerPeso:   0.05,
		MinutesPerPoint: 6,
		Promos: []Promo{
			{ID: "1", Name: "30 Mins", Price: 5, Minutes: 30},
			{ID: "2", Name: "1 Hour", Price: 10, Minutes: 60},
		},
	}
}

// DefaultStations returns the bootstrap station set.
func DefaultStations(count int) []Station {
	stations := make([]Station, 0, count)
	for i := 1; i <= count; i++ {
		stations = append(stations, Station{
			ID:     i,
			Name:   StationName(i),
			Status: StationAvailable,
		})
	}
	return stations
}

// StationName returns the default display name for a station id.
func StationName(id int) string {
	return fmt.Sprintf("Station %d", id)
}
