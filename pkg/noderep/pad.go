package noderep

// cacheLineSize is the padding applied around atomics that different
// goroutines hammer independently (the log's tail/head/ctail, each
// replica's ltail, and each shard's combiner lock), so they don't
// false-share a line with a neighbor.
const cacheLineSize = 64

// CachePadded wraps a value with trailing padding so it occupies its own
// cache line. Go has no equivalent of crossbeam's CachePadded in the
// standard library; this is the common substitute.
type CachePadded[T any] struct {
	Value T
	_     [cacheLineSize]byte
}
