package noderep

// NodeReplicated is the public front door: it owns the L shared logs
// an object's writes flow through and the set of Replica copies reads
// and writes are actually dispatched against. Callers never touch a
// Replica or Log directly; they pick a replica index, register with it
// once to get a ThreadToken, then call ExecuteMutAt/ExecuteAt/SyncAt
// with both on every subsequent operation.
type NodeReplicated[R Hashable, W Hashable, Resp any, D Data[R, W, Resp]] struct {
	cfg      Config
	logs     []*Log[W]
	replicas []*Replica[R, W, Resp, D]
}

// New builds a NodeReplicated object with one replica per entry in
// initial. D is typically a pointer type (e.g. *Counter), so each
// entry of initial must be a distinct instance, not a shared one;
// passing the same pointer twice would make two "replicas" alias the
// same memory, defeating the entire point of replication. cfg's
// preconditions are checked with Validate; a violated precondition
// panics, since a bad tunable is a programming mistake the caller
// should fix, not a condition to recover from at runtime.
func New[R Hashable, W Hashable, Resp any, D Data[R, W, Resp]](cfg Config, initial []D) *NodeReplicated[R, W, Resp, D] {
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	if len(initial) == 0 {
		panic("noderep: New requires at least one initial replica value")
	}

	logs := make([]*Log[W], cfg.L)
	for i := range logs {
		logs[i] = NewLog[W](cfg.N)
	}

	nr := &NodeReplicated[R, W, Resp, D]{cfg: cfg, logs: logs}
	nr.replicas = make([]*Replica[R, W, Resp, D], len(initial))
	for i := range initial {
		nr.replicas[i] = newReplica[R, W, Resp, D](uint16(i), logs, initial[i], cfg.TMax)
	}
	return nr
}

// Replicas reports how many replicas this object was built with.
func (nr *NodeReplicated[R, W, Resp, D]) Replicas() int {
	return len(nr.replicas)
}

// RegisterAt registers the calling thread with the replica at index
// replicaIdx and returns a token to use with the *At methods on that
// same replica index.
func (nr *NodeReplicated[R, W, Resp, D]) RegisterAt(replicaIdx int) (ThreadToken, bool) {
	return nr.replicas[replicaIdx].Register(nr.cfg.B)
}

// ExecuteMutAt applies a write operation against the replica at
// replicaIdx on behalf of tok's thread and returns its response.
func (nr *NodeReplicated[R, W, Resp, D]) ExecuteMutAt(replicaIdx int, tok ThreadToken, op W) Resp {
	return nr.replicas[replicaIdx].ExecuteMut(tok, op)
}

// ExecuteAt answers a read-only operation against the replica at
// replicaIdx on behalf of tok's thread.
func (nr *NodeReplicated[R, W, Resp, D]) ExecuteAt(replicaIdx int, tok ThreadToken, op R) Resp {
	return nr.replicas[replicaIdx].Execute(tok, op)
}

// SyncAt brings the replica at replicaIdx fully up to date with every
// write completed anywhere, without submitting a new operation.
func (nr *NodeReplicated[R, W, Resp, D]) SyncAt(replicaIdx int, tok ThreadToken) {
	nr.replicas[replicaIdx].Sync(tok)
}

// Verify brings shard 0's log fully up to date on the replica at
// replicaIdx and calls fn against its data while still holding that
// replica's write lock and shard 0's combiner slot, so fn observes a
// snapshot nothing else can mutate concurrently. It is meant for tests
// and tooling that need a deterministic introspection point, not the
// ordinary read path — use ExecuteAt for that.
func (nr *NodeReplicated[R, W, Resp, D]) Verify(replicaIdx int, fn func(D)) {
	nr.replicas[replicaIdx].Verify(fn)
}
