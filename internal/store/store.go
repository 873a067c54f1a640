package store

import "context"

// Keys under which the engines persist their collections. The JSON payloads
// round-trip unchanged through export/import.
const (
	KeyCustomers        = "rental-customers"
	KeyHistory          = "rental-history"
	KeyDeletedCustomers = "deleted-customers"
	KeyStations         = "rental-stations"
	KeyParkedSessions   = "parked-sessions"
	KeySettings         = "rental-settings"
)

// Store is the persistent key-value contract the engines write through.
// Get decodes the last-written value into dest and reports whether a usable
// value was found; absent or corrupt payloads leave dest untouched so the
// caller keeps its default. Set writes the value and notifies subscribers
// to that key in every execution context sharing the store.
type Store interface {
	Get(ctx context.Context, key string, dest any) bool
	Set(ctx context.Context, key string, value any) error
	Subscribe(ctx context.Context, key string, fn func())
}
