package noderep

import "sync/atomic"

// claim records where a combine round found a pending operation, so
// the response it eventually computes can be written back to the
// exact context slot that is waiting on it.
type claim struct {
	tid uint32
	pos uint64
}

// Replica holds one full, independently readable and writable copy of
// a sequential data structure, kept consistent with every other
// replica of the same NodeReplicated object purely by replaying the
// same shared logs in the same order.
//
// Replica is large (it embeds TMax contexts and an RWLock around the
// data structure itself), so it is always heap-allocated
// zero-initialized via new and filled in field by field, rather than
// built as a struct literal and copied off the stack.
type Replica[R Hashable, W Hashable, Resp any, D Data[R, W, Resp]] struct {
	id       uint16
	logs     []*Log[W]
	rw       *RWLock[D]
	contexts []*Context[W, Resp]
	nthreads atomic.Uint32
	tmax     uint32
	combiners []CachePadded[atomic.Bool]
}

// newReplica constructs a replica with id, backed by logs (one per
// shard) and the supplied already-initialized data structure.
func newReplica[R Hashable, W Hashable, Resp any, D Data[R, W, Resp]](id uint16, logs []*Log[W], data D, tmax uint32) *Replica[R, W, Resp, D] {
	r := new(Replica[R, W, Resp, D])
	r.id = id
	r.logs = logs
	r.rw = NewRWLock(data, tmax)
	r.tmax = tmax
	r.contexts = make([]*Context[W, Resp], tmax)
	r.combiners = make([]CachePadded[atomic.Bool], len(logs))
	for _, l := range logs {
		if _, ok := l.Register(); !ok {
			panic("noderep: log has no room for another replica")
		}
	}
	return r
}

// Register reserves a slot for the calling thread and returns a token
// to use with ExecuteMut, Execute and Sync. It returns false once
// TMax threads have already registered.
func (r *Replica[R, W, Resp, D]) Register(batch uint32) (ThreadToken, bool) {
	for {
		cur := r.nthreads.Load()
		if cur >= r.tmax {
			return ThreadToken{}, false
		}
		if r.nthreads.CompareAndSwap(cur, cur+1) {
			r.contexts[cur] = newContext[W, Resp](batch)
			return newThreadToken(cur), true
		}
	}
}

func (r *Replica[R, W, Resp, D]) shardFor(h uint64) uint32 {
	return uint32(h % uint64(len(r.logs)))
}

// ExecuteMut submits a write operation on behalf of tok's thread,
// driving combiner rounds on its operation's shard until the
// operation has been applied and its response is available.
func (r *Replica[R, W, Resp, D]) ExecuteMut(tok ThreadToken, op W) Resp {
	tok.checkAffinity()
	shard := r.shardFor(op.Hash())
	ctx := r.contexts[tok.tid]

	var pos uint64
	for {
		if p, ok := ctx.enqueue(op); ok {
			pos = p
			break
		}
		// The ring is full: every slot is still owned by an earlier
		// operation this same thread posted. Drive a combiner round so
		// one of them drains and frees a slot before trying again.
		r.tryCombine(shard)
		spinHint()
	}

	for {
		if resp, ok := ctx.tryRes(pos); ok {
			return resp
		}
		r.tryCombine(shard)
		if resp, ok := ctx.tryRes(pos); ok {
			return resp
		}
		spinHint()
	}
}

// Execute answers a read-only operation against this replica's data,
// first making sure the replica has replayed at least as far as the
// log's completed-tail watermark so the read cannot miss a write that
// has already been observed as complete by some other thread.
func (r *Replica[R, W, Resp, D]) Execute(tok ThreadToken, op R) Resp {
	tok.checkAffinity()
	shard := r.shardFor(op.Hash())
	r.waitSynced(shard)
	guard := r.rw.Read(tok.tid)
	resp := guard.Data().Dispatch(op)
	guard.Release()
	return resp
}

// waitSynced drives combiner rounds on shard until this replica's
// cursor on that shard's log is at least at the log's ctail
// watermark.
func (r *Replica[R, W, Resp, D]) waitSynced(shard uint32) {
	log := r.logs[shard]
	for !log.IsReplicaSynced(r.id) {
		r.tryCombine(shard)
		spinHint()
	}
}

// Sync drains every shard's log into this replica without submitting
// any new operation, bringing it fully up to date with every write any
// replica has made so far.
func (r *Replica[R, W, Resp, D]) Sync(tok ThreadToken) {
	tok.checkAffinity()
	for shard := range r.logs {
		r.waitSynced(uint32(shard))
	}
}

// tryCombine attempts to become the combiner for shard. If another
// thread is already combining that shard it returns false immediately
// rather than waiting, since the in-progress round will pick up any
// operation already posted to a context.
func (r *Replica[R, W, Resp, D]) tryCombine(shard uint32) bool {
	if !r.combiners[shard].Value.CompareAndSwap(false, true) {
		return false
	}
	r.combine(shard)
	r.combiners[shard].Value.Store(false)
	return true
}

// combine drains every thread context of operations hashing to shard,
// appends them to that shard's log in one batch, then replays the log
// forward, applying every entry (including ones other replicas wrote)
// to this replica's data and resolving the response for each entry
// this replica itself originated.
func (r *Replica[R, W, Resp, D]) combine(shard uint32) {
	log := r.logs[shard]
	nthreads := r.nthreads.Load()

	var ops []W
	var claims []claim
	for tid := uint32(0); tid < nthreads; tid++ {
		ctx := r.contexts[tid]
		var positions []uint64
		ctx.drainInto(&ops, &positions, shard, uint32(len(r.logs)))
		for _, p := range positions {
			claims = append(claims, claim{tid: tid, pos: p})
		}
	}

	if len(ops) > 0 {
		// This replica's own ltail can be the one advanceHead is waiting
		// on: it only moves forward inside Exec, which otherwise wouldn't
		// run again until after Append returns. onStall plays the role of
		// this replica's own executor while Append is stalled, so GC can
		// make progress instead of the two sides deadlocking on each
		// other. The entries it replays here were all appended before
		// this round's, so none of them are claims this combine resolves.
		onStall := func() {
			guard := r.rw.Write()
			log.Exec(r.id, func(op W, _ bool) {
				guard.Data().DispatchMut(op)
			})
			guard.Release()
		}
		log.Append(ops, r.id, onStall)
	}

	claimIdx := 0
	guard := r.rw.Write()
	log.Exec(r.id, func(op W, isOrigin bool) {
		resp := guard.Data().DispatchMut(op)
		if isOrigin && claimIdx < len(claims) {
			c := claims[claimIdx]
			r.contexts[c.tid].resolve(c.pos, resp)
			claimIdx++
		}
	})
	guard.Release()
}

// Verify acquires shard 0's combiner slot directly (rather than giving
// up if it's contended, the way tryCombine does), drains shard 0's log
// into this replica, then calls fn with the now-current data while
// still holding both that slot and the write lock. fn therefore
// observes a state no concurrent combiner round can mutate out from
// under it. It exists for tests and tooling that need a deterministic
// point to inspect replica state from outside any registered thread;
// the ordinary read path is Execute, not Verify.
func (r *Replica[R, W, Resp, D]) Verify(fn func(D)) {
	for !r.combiners[0].Value.CompareAndSwap(false, true) {
		spinHint()
	}

	guard := r.rw.Write()
	r.logs[0].Exec(r.id, func(op W, _ bool) {
		guard.Data().DispatchMut(op)
	})
	fn(guard.Data())
	guard.Release()

	r.combiners[0].Value.Store(false)
}
