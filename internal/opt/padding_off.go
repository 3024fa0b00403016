//go:build adder_disable_padding

package opt

// PaddingMult_ scales the padding tail of striped structures.
// Padding is force-disabled via the adder_disable_padding build tag.
// Use: go build -tags=adder_disable_padding
const PaddingMult_ = 0
