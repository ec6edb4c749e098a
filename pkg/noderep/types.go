package noderep

// Hashable is implemented by read and write operations so a
// NodeReplicated front door can pick which log shard (and which
// context slot filter) an operation belongs to. Picking a good Hash is
// the caller's job: operations that hash to different shards are only
// correct if they are commutative from the data structure's point of
// view; the library does not and cannot verify this.
type Hashable interface {
	Hash() uint64
}

// Data is the contract a sequential, single-threaded data structure
// must satisfy to be turned into a replicated object.
//
// Dispatch answers a read-only operation; it must not mutate the
// receiver. DispatchMut applies a write operation and must be
// deterministic: given the same initial state and the same sequence of
// write operations, every replica must reach identical state and
// produce identical responses. That determinism is the only
// correctness requirement this library places on callers — Go's value
// semantics already make a W holding no pointers/slices trivially
// "cloneable" by copy; a W that does hold a pointer or slice is the
// caller's responsibility to deep-copy before mutating.
type Data[R Hashable, W Hashable, Resp any] interface {
	Dispatch(op R) Resp
	DispatchMut(op W) Resp
}
