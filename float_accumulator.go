package adder

import (
	"math"
	"strconv"
)

// FloatAccumulator maintains a float64 running value combined with a
// caller-supplied function, striped the same way as Adder. Typical
// uses are running max/min over hot measurement streams.
//
// fn must be associative and commutative and must treat the identity
// as neutral (fn(identity, x) == x); updates are applied in no
// particular order, possibly to different internal cells that are only
// combined at read time. fn must be side-effect free: it may be called
// several times for one update when a CAS is retried.
//
// A FloatAccumulator must not be copied after first use.
type FloatAccumulator struct {
	_  noCopy
	fn applyFunc
	s  striped
}

// NewFloatAccumulator returns an accumulator over fn starting at
// identity, e.g. math.Max with math.Inf(-1) for a running maximum.
func NewFloatAccumulator(fn func(cur, x float64) float64, identity float64) *FloatAccumulator {
	a := &FloatAccumulator{
		fn: func(old, x uint64) uint64 {
			return math.Float64bits(fn(math.Float64frombits(old), math.Float64frombits(x)))
		},
	}
	a.s.ident = math.Float64bits(identity)
	a.s.base.Store(a.s.ident)
	return a
}

// Accumulate folds x into the current value. It never fails and never
// blocks; contention only costs internal retries.
func (a *FloatAccumulator) Accumulate(x float64) {
	a.s.update(math.Float64bits(x), a.fn)
}

// Get returns the current value: the base slot and every active cell
// combined with fn in index order. Weakly consistent, as for
// Adder.Sum.
func (a *FloatAccumulator) Get() float64 {
	return math.Float64frombits(a.s.fold(a.fn))
}

// Reset sets the value back to the identity. Only safe while
// quiescent; racing updates may be lost.
func (a *FloatAccumulator) Reset() {
	a.s.reset()
}

// GetThenReset returns the value and resets to the identity in one
// pass, with the same quiescence caveat as Reset.
func (a *FloatAccumulator) GetThenReset() float64 {
	return math.Float64frombits(a.s.foldThenReset(a.fn))
}

// Int64 returns the current value truncated toward zero.
func (a *FloatAccumulator) Int64() int64 {
	return int64(a.Get())
}

// String implements fmt.Stringer.
func (a *FloatAccumulator) String() string {
	return strconv.FormatFloat(a.Get(), 'g', -1, 64)
}
