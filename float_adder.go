package adder

import (
	"math"
	"strconv"
)

// floatAddOp is float64 addition over raw bit patterns. The conversion
// happens at the boundary of every attempt; the CAS itself always
// compares raw bits, since no hardware CAS exists for floating-point
// values.
func floatAddOp(old, x uint64) uint64 {
	return math.Float64bits(math.Float64frombits(old) + math.Float64frombits(x))
}

// FloatAdder maintains a float64 running sum that many goroutines
// update concurrently, striped the same way as Adder.
//
// Because float64 addition is not associative, the order cells happen
// to be folded in can change the low-order bits of Sum between runs.
// Callers that need numerical stability across widely different
// magnitudes should not use this type.
//
// The zero value is ready to use. A FloatAdder must not be copied
// after first use.
type FloatAdder struct {
	_ noCopy
	s striped
}

// Add adds x to the sum. It never fails and never blocks.
func (a *FloatAdder) Add(x float64) {
	a.s.update(math.Float64bits(x), floatAddOp)
}

// Sum returns the current sum, weakly consistent as for Adder.Sum,
// and subject to floating-point reassociation as described above.
func (a *FloatAdder) Sum() float64 {
	return math.Float64frombits(a.s.fold(floatAddOp))
}

// Reset sets the sum back to zero. Only safe while quiescent; racing
// updates may be lost.
func (a *FloatAdder) Reset() {
	a.s.reset()
}

// SumThenReset returns the sum and resets it to zero in one pass,
// with the same quiescence caveat as Reset.
func (a *FloatAdder) SumThenReset() float64 {
	return math.Float64frombits(a.s.foldThenReset(floatAddOp))
}

// Int64 returns the current sum truncated toward zero.
func (a *FloatAdder) Int64() int64 {
	return int64(a.Sum())
}

// String implements fmt.Stringer.
func (a *FloatAdder) String() string {
	return strconv.FormatFloat(a.Sum(), 'g', -1, 64)
}
