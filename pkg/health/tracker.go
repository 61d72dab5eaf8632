package health

import (
	"sort"
	"sync"
	"time"

	"github.com/lukaslondono77/ApiBridgePro/pkg/policy"
)

// emaSmoothing weights a new latency sample against history.
const emaSmoothing = 0.3

// defaultLatencyMs ranks never-observed providers behind ones with a known
// fast EMA, matching the conservative treatment of unknown backends.
const defaultLatencyMs = 9999.0

// weightBonusMs is subtracted from the latency EMA per unit of provider
// weight when ranking, so weight acts as a cost-proxy tie-break.
const weightBonusMs = 10.0

// TransitionListener observes circuit state transitions.
type TransitionListener func(connector, provider string, from, to CircuitState)

// ProviderStatus is a read-only snapshot of one provider's health entry.
type ProviderStatus struct {
	Connector           string    `json:"connector"`
	Provider            string    `json:"provider"`
	CircuitState        string    `json:"circuit_state"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LatencyEmaMs        float64   `json:"latency_ema_ms"`
	LastFailure         time.Time `json:"last_failure,omitempty"`
}

// entry is the mutable health state for one (connector, provider) pair.
// All fields are guarded by mu.
type entry struct {
	mu sync.Mutex

	state               CircuitState
	consecutiveFailures int
	lastFailure         time.Time

	ema    float64
	emaSet bool
}

// Tracker owns all provider health state. The Gateway reads provider order
// from it and reports outcomes back; nothing else mutates the entries.
type Tracker struct {
	entries map[string]*entry
	mu      sync.RWMutex

	listener TransitionListener

	// now is the clock source, overridable in tests.
	now func() time.Time
}

// NewTracker creates an empty tracker. The listener may be nil.
func NewTracker(listener TransitionListener) *Tracker {
	return &Tracker{
		entries:  make(map[string]*entry),
		listener: listener,
		now:      time.Now,
	}
}

// SelectOrder returns the connector's providers in the order they should be
// attempted. It never fails and always returns at least the configured
// providers.
//
// Ranking:
//  1. Providers whose circuit permits an attempt (Closed, or Open past its
//     recovery window, which transitions to HalfOpen here) are sorted by
//     (state rank, latencyEMA - weight*10): Closed before HalfOpen, then
//     lower effective latency first.
//  2. If no provider is eligible, the full list is returned sorted by
//     descending weight. Availability wins over purity: the caller may
//     still attempt something instead of hard-failing.
func (t *Tracker) SelectOrder(connector string, providers []policy.Provider) []policy.Provider {
	type ranked struct {
		provider  policy.Provider
		stateRank int
		effective float64
	}

	now := t.now()
	eligible := make([]ranked, 0, len(providers))

	for _, p := range providers {
		e := t.entry(p.Key)

		e.mu.Lock()
		// A HalfOpen entry stays eligible until an outcome is recorded, so
		// concurrent selections may dispatch more than one trial. Selection
		// order is best-effort under concurrency; the first recorded outcome
		// settles the circuit.
		if e.state == Open && now.Sub(e.lastFailure) >= RecoveryWindow {
			t.transitionLocked(e, connector, p.Name, HalfOpen)
		}

		state := e.state
		ema := e.ema
		if !e.emaSet {
			ema = defaultLatencyMs
		}
		e.mu.Unlock()

		if state == Open {
			continue
		}

		stateRank := 0
		if state == HalfOpen {
			stateRank = 1
		}
		eligible = append(eligible, ranked{
			provider:  p,
			stateRank: stateRank,
			effective: ema - float64(p.Weight)*weightBonusMs,
		})
	}

	if len(eligible) == 0 {
		// Every circuit is open and inside its recovery window.
		order := make([]policy.Provider, len(providers))
		copy(order, providers)
		sort.SliceStable(order, func(i, j int) bool {
			return order[i].Weight > order[j].Weight
		})
		return order
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		if eligible[i].stateRank != eligible[j].stateRank {
			return eligible[i].stateRank < eligible[j].stateRank
		}
		return eligible[i].effective < eligible[j].effective
	})

	order := make([]policy.Provider, len(eligible))
	for i, r := range eligible {
		order[i] = r.provider
	}
	return order
}

// RecordSuccess records a successful attempt: the latency sample feeds the
// EMA and the circuit resets to Closed.
func (t *Tracker) RecordSuccess(connector, provider string, latencyMs float64) {
	e := t.entry(connector + ":" + provider)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.updateEMALocked(latencyMs)
	e.consecutiveFailures = 0
	if e.state != Closed {
		t.transitionLocked(e, connector, provider, Closed)
	}
}

// RecordFailure records a failed attempt.
//
// latencyMs >= 0 means the attempt actually executed (the provider
// responded or timed out) and the sample feeds the EMA; pass a negative
// latency for attempts that never reached the provider, such as credential
// resolution failures.
//
// circuit controls whether the failure counts toward opening the circuit:
// network errors, timeouts, and 5xx qualify; 4xx does not.
func (t *Tracker) RecordFailure(connector, provider string, latencyMs float64, circuit bool) {
	e := t.entry(connector + ":" + provider)

	e.mu.Lock()
	defer e.mu.Unlock()

	if latencyMs >= 0 {
		e.updateEMALocked(latencyMs)
	}

	if !circuit {
		return
	}

	e.consecutiveFailures++
	e.lastFailure = t.now()

	switch e.state {
	case Closed:
		if e.consecutiveFailures >= FailureThreshold {
			t.transitionLocked(e, connector, provider, Open)
		}
	case HalfOpen:
		// The trial failed: back to Open with a fresh recovery window.
		t.transitionLocked(e, connector, provider, Open)
	}
}

// Snapshot returns the current status of every tracked provider, for the
// status endpoint. Keys are "connector:provider".
func (t *Tracker) Snapshot() []ProviderStatus {
	t.mu.RLock()
	keys := make([]string, 0, len(t.entries))
	for key := range t.entries {
		keys = append(keys, key)
	}
	t.mu.RUnlock()

	sort.Strings(keys)

	statuses := make([]ProviderStatus, 0, len(keys))
	for _, key := range keys {
		e := t.entry(key)

		connector, provider := splitKey(key)

		e.mu.Lock()
		status := ProviderStatus{
			Connector:           connector,
			Provider:            provider,
			CircuitState:        e.state.String(),
			ConsecutiveFailures: e.consecutiveFailures,
			LastFailure:         e.lastFailure,
		}
		if e.emaSet {
			status.LatencyEmaMs = e.ema
		}
		e.mu.Unlock()

		statuses = append(statuses, status)
	}
	return statuses
}

// entry returns the health entry for a key, creating it lazily.
func (t *Tracker) entry(key string) *entry {
	t.mu.RLock()
	e, ok := t.entries[key]
	t.mu.RUnlock()
	if ok {
		return e
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[key]; ok {
		return e
	}
	e = &entry{}
	t.entries[key] = e
	return e
}

// transitionLocked moves an entry to a new state and notifies the listener.
// Caller must hold the entry lock.
func (t *Tracker) transitionLocked(e *entry, connector, provider string, to CircuitState) {
	from := e.state
	if from == to {
		return
	}
	e.state = to

	if to == Closed {
		e.consecutiveFailures = 0
	}

	if t.listener != nil {
		t.listener(connector, provider, from, to)
	}
}

// updateEMALocked folds a latency sample into the moving average.
// The first sample seeds the average directly. Caller must hold the lock.
func (e *entry) updateEMALocked(latencyMs float64) {
	if !e.emaSet {
		e.ema = latencyMs
		e.emaSet = true
		return
	}
	e.ema = emaSmoothing*latencyMs + (1-emaSmoothing)*e.ema
}

// splitKey splits "connector:provider" back into its parts.
func splitKey(key string) (connector, provider string) {
	for i := 0; i < len(key); i++ {
		if key[i] == ':' {
			return key[:i], key[i+1:]
		}
	}
	return key, ""
}
