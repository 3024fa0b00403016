//go:build adder_cachelinesize_128

package opt

// CacheLineSize_ is used in structure padding to prevent false sharing.
// Fixed to 128 bytes via the adder_cachelinesize_128 build tag.
const CacheLineSize_ = 128
