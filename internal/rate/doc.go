// Package rate provides the Redis-backed fixed-window attempt limiter used
// by every authentication entry point.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on the first hit in the
// window. Keys are "<prefix>:<action>:<identity>", so one caller cannot
// exhaust another identity's budget. Exceeding the limit never locks the
// account; the counter simply expires with the window.
//
// # Failure policy
//
// Redis errors surface as ErrRedisUnavailable. Callers must treat that as a
// denial (fail closed), never as an unlimited pass.
package rate
