// Package idgenerator hands out session identifiers. Identifiers are 64-bit so
// a long-running server never wraps around and reuses one.
package idgenerator

import "sync/atomic"

// IdGenerator generates monotonically increasing uint64 IDs in a concurrency-safe
// manner. The first Id() returns startValue+1, which leaves 0 free to mean
// "no session".
type IdGenerator struct {
	id atomic.Uint64
}

// NewIdGenerator creates an IdGenerator whose first Id() returns startValue+1.
//
// Parameters:
//   - startValue: The value to initialize the counter to
//
// Returns:
//   - A new IdGenerator instance
func NewIdGenerator(startValue uint64) *IdGenerator {
	gen := &IdGenerator{}
	gen.id.Store(startValue)
	return gen
}

// Id returns the next unique ID. It is safe for concurrent use by multiple goroutines.
func (l *IdGenerator) Id() uint64 {
	return l.id.Add(1)
}
