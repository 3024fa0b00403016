//go:build adder_cachelinesize_256

package opt

// CacheLineSize_ is used in structure padding to prevent false sharing.
// Fixed to 256 bytes via the adder_cachelinesize_256 build tag.
const CacheLineSize_ = 256
