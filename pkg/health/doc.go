// Package health tracks per-provider health and drives provider selection.
//
// Each (connector, provider) pair owns an independent circuit breaker
// (Closed, Open, HalfOpen) and a latency estimate maintained as an
// exponential moving average. The tracker ranks a connector's providers for
// each request: fully closed providers come first, ordered by effective
// latency after a weight bonus, and providers whose circuit is open are
// skipped until their recovery window elapses. When every circuit is open
// the tracker fails open and returns the full list ordered by descending
// weight, so a request can still attempt something rather than hard-fail.
//
// State is created lazily on first observation and never deleted. Updates
// are atomic per provider entry; unrelated providers never contend on a
// shared lock.
package health
