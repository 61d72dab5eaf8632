package budget

import (
	"context"
	"time"
)

// Guard answers budget questions against a Store for the current month.
// What happens when a ceiling is hit (block the request or downgrade the
// provider set) is the caller's decision; the guard only reports spend.
type Guard struct {
	store Store

	// now is the clock source, overridable in tests.
	now func() time.Time
}

// NewGuard wraps a store.
func NewGuard(store Store) *Guard {
	return &Guard{store: store, now: time.Now}
}

// Exceeded reports whether charging nextUSD would push the connector's
// spend this month past maxUSD, so the ceiling holds even when it is not
// an exact multiple of the per-call cost. A non-positive ceiling means
// unlimited.
func (g *Guard) Exceeded(ctx context.Context, connector string, maxUSD, nextUSD float64) (bool, error) {
	if maxUSD <= 0 {
		return false, nil
	}
	spent, err := g.store.Spent(ctx, connector, MonthKey(g.now()))
	if err != nil {
		return false, err
	}
	return spent+nextUSD > maxUSD, nil
}

// Record adds usd of spend for the connector this month. Zero-cost calls
// are skipped.
func (g *Guard) Record(ctx context.Context, connector string, usd float64) error {
	if usd <= 0 {
		return nil
	}
	return g.store.Add(ctx, connector, MonthKey(g.now()), usd)
}

// Spent returns the connector's spend this month, for the status endpoint.
func (g *Guard) Spent(ctx context.Context, connector string) (float64, error) {
	return g.store.Spent(ctx, connector, MonthKey(g.now()))
}

// Prune drops records older than keepMonths full months before now.
func (g *Guard) Prune(ctx context.Context, keepMonths int) (int, error) {
	if keepMonths < 0 {
		keepMonths = 0
	}
	cutoff := g.now().UTC().AddDate(0, -keepMonths, 0)
	return g.store.Prune(ctx, MonthKey(cutoff))
}
