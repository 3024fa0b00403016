//go:build !adder_disable_padding

package opt

// PaddingMult_ scales the padding tail of striped structures.
// Cache line isolation of cells is an invariant of the accumulator
// design, so padding defaults to on for every architecture; build with
// -tags=adder_disable_padding to strip it.
const PaddingMult_ = 1
