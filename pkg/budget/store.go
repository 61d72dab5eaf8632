// Package budget enforces per-connector monthly spend ceilings.
//
// Spend accumulates under (connector, month) keys, where the month is the
// UTC "2006-01" period. The Guard performs the pre-flight check before any
// upstream attempt and records cost afterwards, so a connector at its
// ceiling spends nothing on providers. Stores are pluggable: the in-memory
// store is the default and the SQLite store survives restarts.
package budget

import (
	"context"
	"time"
)

// MonthKey returns the accounting period for a point in time, in UTC.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// Store accumulates spend per connector and month.
type Store interface {
	// Add records usd of additional spend for the connector in the month.
	Add(ctx context.Context, connector, month string, usd float64) error

	// Spent returns the accumulated spend for the connector in the month.
	// An untracked pair reports zero.
	Spent(ctx context.Context, connector, month string) (float64, error)

	// Prune discards records from months before keepFrom and returns how
	// many were removed.
	Prune(ctx context.Context, keepFrom string) (int, error)

	// Close releases any underlying resources.
	Close() error
}
