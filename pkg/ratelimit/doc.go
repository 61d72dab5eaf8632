// Package ratelimit provides per-connector admission control for the gateway.
//
// Each connector is assigned an independent token bucket sized from its
// policy (capacity and refill rate). A request consumes one token; when the
// bucket is empty the request is denied immediately. There is no queuing:
// denial is an admission-control outcome, not an upstream failure, and has
// no effect on provider health or budgets.
package ratelimit
