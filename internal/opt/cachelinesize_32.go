//go:build adder_cachelinesize_32

package opt

// CacheLineSize_ is used in structure padding to prevent false sharing.
// Fixed to 32 bytes via the adder_cachelinesize_32 build tag.
const CacheLineSize_ = 32
