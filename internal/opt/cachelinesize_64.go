//go:build adder_cachelinesize_64

package opt

// CacheLineSize_ is used in structure padding to prevent false sharing.
// Fixed to 64 bytes via the adder_cachelinesize_64 build tag.
const CacheLineSize_ = 64
