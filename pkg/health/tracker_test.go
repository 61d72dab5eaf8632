package health

import (
	"testing"
	"time"

	"github.com/lukaslondono77/ApiBridgePro/pkg/policy"
)

func testProviders() []policy.Provider {
	return []policy.Provider{
		{Name: "a", Key: "c:a", Weight: 1},
		{Name: "b", Key: "c:b", Weight: 2},
	}
}

func names(order []policy.Provider) []string {
	out := make([]string, len(order))
	for i, p := range order {
		out[i] = p.Name
	}
	return out
}

// ============================================================================
// Circuit Breaker Tests
// ============================================================================

func TestTracker_OpensAfterThreshold(t *testing.T) {
	tracker := NewTracker(nil)
	providers := testProviders()

	for i := 0; i < FailureThreshold-1; i++ {
		tracker.RecordFailure("c", "a", 100, true)
	}

	// Still closed: a is preferred (EMA 100 vs unknown for b).
	order := tracker.SelectOrder("c", providers)
	if order[0].Name != "a" {
		t.Fatalf("order = %v, expected a first before threshold", names(order))
	}

	tracker.RecordFailure("c", "a", 100, true)

	// Open: a is excluded entirely.
	order = tracker.SelectOrder("c", providers)
	if len(order) != 1 || order[0].Name != "b" {
		t.Errorf("order = %v, expected only b while a is open", names(order))
	}
}

func TestTracker_RecoveryWindowAndHalfOpen(t *testing.T) {
	tracker := NewTracker(nil)
	providers := testProviders()

	base := time.Now()
	tracker.now = func() time.Time { return base }

	for i := 0; i < FailureThreshold; i++ {
		tracker.RecordFailure("c", "a", 100, true)
	}

	// Inside the recovery window the provider stays excluded.
	tracker.now = func() time.Time { return base.Add(RecoveryWindow - time.Second) }
	order := tracker.SelectOrder("c", providers)
	if len(order) != 1 || order[0].Name != "b" {
		t.Fatalf("order = %v, expected a still excluded inside window", names(order))
	}

	// Past the window the next selection pass permits a HalfOpen trial,
	// ranked after closed providers.
	tracker.now = func() time.Time { return base.Add(RecoveryWindow) }
	order = tracker.SelectOrder("c", providers)
	if len(order) != 2 {
		t.Fatalf("order = %v, expected both providers after window", names(order))
	}
	if order[0].Name != "b" || order[1].Name != "a" {
		t.Errorf("order = %v, expected closed b before half-open a", names(order))
	}

	// A successful trial closes the circuit and resets the counter.
	tracker.RecordSuccess("c", "a", 50)
	statuses := tracker.Snapshot()
	for _, s := range statuses {
		if s.Provider == "a" {
			if s.CircuitState != "closed" || s.ConsecutiveFailures != 0 {
				t.Errorf("after trial success: %+v", s)
			}
		}
	}
}

func TestTracker_HalfOpenFailureReopens(t *testing.T) {
	tracker := NewTracker(nil)

	base := time.Now()
	tracker.now = func() time.Time { return base }

	for i := 0; i < FailureThreshold; i++ {
		tracker.RecordFailure("c", "a", 100, true)
	}

	tracker.now = func() time.Time { return base.Add(RecoveryWindow) }
	tracker.SelectOrder("c", testProviders()) // transitions a to half-open

	// The trial fails: back to Open with a refreshed window.
	tracker.RecordFailure("c", "a", 100, true)

	tracker.now = func() time.Time { return base.Add(RecoveryWindow + 30*time.Second) }
	order := tracker.SelectOrder("c", testProviders())
	if len(order) != 1 || order[0].Name != "b" {
		t.Errorf("order = %v, expected a re-excluded after failed trial", names(order))
	}
}

func TestTracker_FailOpenWhenAllCircuitsOpen(t *testing.T) {
	tracker := NewTracker(nil)
	providers := testProviders()

	for i := 0; i < FailureThreshold; i++ {
		tracker.RecordFailure("c", "a", 100, true)
		tracker.RecordFailure("c", "b", 100, true)
	}

	// Both open and inside the window: the full list comes back sorted by
	// descending weight so the caller can still attempt something.
	order := tracker.SelectOrder("c", providers)
	if len(order) != 2 {
		t.Fatalf("order = %v, expected full provider list", names(order))
	}
	if order[0].Name != "b" || order[1].Name != "a" {
		t.Errorf("order = %v, expected weight order b,a", names(order))
	}
}

func TestTracker_TransitionListener(t *testing.T) {
	type transition struct {
		provider string
		from, to CircuitState
	}
	var seen []transition

	tracker := NewTracker(func(connector, provider string, from, to CircuitState) {
		seen = append(seen, transition{provider, from, to})
	})

	base := time.Now()
	tracker.now = func() time.Time { return base }

	for i := 0; i < FailureThreshold; i++ {
		tracker.RecordFailure("c", "a", 100, true)
	}
	tracker.now = func() time.Time { return base.Add(RecoveryWindow) }
	tracker.SelectOrder("c", testProviders())
	tracker.RecordSuccess("c", "a", 10)

	want := []transition{
		{"a", Closed, Open},
		{"a", Open, HalfOpen},
		{"a", HalfOpen, Closed},
	}
	if len(seen) != len(want) {
		t.Fatalf("transitions = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("transition %d = %v, want %v", i, seen[i], want[i])
		}
	}
}

// ============================================================================
// Ordering and EMA Tests
// ============================================================================

func TestTracker_OrdersByEffectiveLatency(t *testing.T) {
	tracker := NewTracker(nil)
	providers := testProviders()

	tracker.RecordSuccess("c", "a", 200)
	tracker.RecordSuccess("c", "b", 100)

	// b: 100 - 2*10 = 80; a: 200 - 1*10 = 190.
	order := tracker.SelectOrder("c", providers)
	if order[0].Name != "b" {
		t.Errorf("order = %v, expected faster b first", names(order))
	}
}

func TestTracker_WeightBonusBreaksTies(t *testing.T) {
	tracker := NewTracker(nil)
	providers := testProviders()

	tracker.RecordSuccess("c", "a", 100)
	tracker.RecordSuccess("c", "b", 100)

	// Equal EMA: the higher weight gets the larger bonus.
	order := tracker.SelectOrder("c", providers)
	if order[0].Name != "b" {
		t.Errorf("order = %v, expected b first on weight bonus", names(order))
	}
}

func TestTracker_EMASmoothing(t *testing.T) {
	tracker := NewTracker(nil)

	tracker.RecordSuccess("c", "a", 100) // seeds EMA at 100
	tracker.RecordSuccess("c", "a", 200) // 0.3*200 + 0.7*100 = 130

	for _, s := range tracker.Snapshot() {
		if s.Provider == "a" {
			if s.LatencyEmaMs < 129.9 || s.LatencyEmaMs > 130.1 {
				t.Errorf("EMA = %v, want 130", s.LatencyEmaMs)
			}
		}
	}
}

func TestTracker_NonCircuitFailureUpdatesEMAOnly(t *testing.T) {
	tracker := NewTracker(nil)

	// A 4xx-style failure: the provider responded, so latency counts, but
	// the circuit is unaffected.
	for i := 0; i < FailureThreshold+1; i++ {
		tracker.RecordFailure("c", "a", 50, false)
	}

	for _, s := range tracker.Snapshot() {
		if s.Provider == "a" {
			if s.CircuitState != "closed" {
				t.Errorf("circuit = %s, want closed", s.CircuitState)
			}
			if s.ConsecutiveFailures != 0 {
				t.Errorf("consecutiveFailures = %d, want 0", s.ConsecutiveFailures)
			}
			if s.LatencyEmaMs != 50 {
				t.Errorf("EMA = %v, want 50", s.LatencyEmaMs)
			}
		}
	}
}

func TestTracker_SkippedAttemptDoesNotTouchEMA(t *testing.T) {
	tracker := NewTracker(nil)

	tracker.RecordSuccess("c", "a", 100)
	// Credential failure: the attempt never executed.
	tracker.RecordFailure("c", "a", -1, false)

	for _, s := range tracker.Snapshot() {
		if s.Provider == "a" && s.LatencyEmaMs != 100 {
			t.Errorf("EMA = %v, want unchanged 100", s.LatencyEmaMs)
		}
	}
}

func TestTracker_FailoverScenario(t *testing.T) {
	tracker := NewTracker(nil)
	providers := testProviders()

	// A fails once but stays closed with a better effective latency
	// (80 - 1*10 = 70 vs 120 - 2*10 = 100): sub-threshold failures do not
	// demote a provider, only its circuit state and latency rank it.
	tracker.RecordFailure("c", "a", 80, true)
	tracker.RecordSuccess("c", "b", 120)

	order := tracker.SelectOrder("c", providers)
	if order[0].Name != "a" {
		t.Errorf("order = %v, expected closed faster a first", names(order))
	}

	for _, s := range tracker.Snapshot() {
		switch s.Provider {
		case "a":
			if s.ConsecutiveFailures != 1 {
				t.Errorf("a consecutiveFailures = %d, want 1", s.ConsecutiveFailures)
			}
		case "b":
			if s.CircuitState != "closed" {
				t.Errorf("b circuit = %s, want closed", s.CircuitState)
			}
		}
	}
}
