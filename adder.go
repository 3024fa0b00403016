// Package adder provides contention-adaptive striped accumulators:
// running totals (int64 sum, float64 sum, float64 fold with an
// arbitrary associative function) that many goroutines update
// concurrently at much higher throughput than a single CAS word.
package adder

import "strconv"

// addOp is int64 addition on raw words. Two's complement makes signed
// and unsigned addition the same bit operation, so no conversion is
// needed around the CAS.
//
//go:nosplit
func addOp(old, x uint64) uint64 { return old + x }

// Adder maintains an int64 running sum that many goroutines update
// concurrently. Under contention it spreads updates over a set of
// cache-line-isolated cells, giving much higher throughput than a
// single atomic word, at the cost of a slightly more expensive read.
//
// The zero value is ready to use. An Adder must not be copied after
// first use.
//
// Prefer Adder over atomic.Int64 for write-hot counters (statistics,
// hit/miss counts) that are read rarely. For read-mostly values a
// plain atomic.Int64 is cheaper.
type Adder struct {
	_ noCopy
	s striped
}

// Add adds x to the sum. It never fails and never blocks; contention
// only costs internal retries.
func (a *Adder) Add(x int64) {
	a.s.update(uint64(x), addOp)
}

// Inc adds 1 to the sum.
func (a *Adder) Inc() { a.Add(1) }

// Dec subtracts 1 from the sum.
func (a *Adder) Dec() { a.Add(-1) }

// Sum returns the current sum. The result is weakly consistent: it is
// not an atomic snapshot, and updates racing the call may or may not
// be included. With no concurrent updaters it is exact.
func (a *Adder) Sum() int64 {
	return int64(a.s.fold(addOp))
}

// Reset sets the sum back to zero. It is only safe during a quiescent
// period: updates racing a Reset may be lost rather than merged.
func (a *Adder) Reset() {
	a.s.reset()
}

// SumThenReset returns the sum and resets it to zero in one pass.
// The quiescence caveat of Reset applies; with concurrent updaters an
// update may land in either the returned or the next generation, but
// is never double-counted.
func (a *Adder) SumThenReset() int64 {
	return int64(a.s.foldThenReset(addOp))
}

// Float64 returns the current sum converted to float64.
func (a *Adder) Float64() float64 {
	return float64(a.Sum())
}

// String implements fmt.Stringer.
func (a *Adder) String() string {
	return strconv.FormatInt(a.Sum(), 10)
}
