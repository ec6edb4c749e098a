package noderep

import "sync/atomic"

const (
	slotEmpty uint32 = iota
	slotPending
	slotDraining
	slotDone
)

type ctxSlot[W Hashable, Resp any] struct {
	state atomic.Uint32
	op    W
	resp  Resp
}

// Context is the per-thread mailbox a registered thread posts
// operations into and later collects responses from. It is a small
// ring of B slots, touched by exactly one producer goroutine (the
// thread that registered it); enqueue tries the next slot once and
// reports false if the ring is still full, rather than blocking, so a
// caller can drive a combiner round in between attempts instead of
// spinning on a slot nothing is going to free.
//
// A single Context can be drained by more than one shard's combiner
// concurrently when the replicated object is hash-sharded: operation
// i and operation i+1 posted into the same context can hash to
// different shards. drainInto therefore claims slots with a CAS
// (Pending -> Draining) rather than assuming it owns the whole ring,
// so two shards racing over the same Context never grab the same op.
type Context[W Hashable, Resp any] struct {
	mask  uint64
	slots []CachePadded[ctxSlot[W, Resp]]
	tail  CachePadded[atomic.Uint64]
}

func newContext[W Hashable, Resp any](batch uint32) *Context[W, Resp] {
	c := &Context[W, Resp]{
		mask:  uint64(batch) - 1,
		slots: make([]CachePadded[ctxSlot[W, Resp]], batch),
	}
	return c
}

// enqueue tries once to post op into the next ring slot. It succeeds
// only if that slot is Empty (i.e. its previous occupant has been
// drained and its response collected by tryRes), in which case it
// returns the absolute slot position, to be passed later to tryRes,
// and true. If the ring is full it returns false without touching
// anything; the caller is expected to drive a combiner round and call
// enqueue again rather than wait here for a slot that may need the
// caller's own action to free up.
func (c *Context[W, Resp]) enqueue(op W) (uint64, bool) {
	pos := c.tail.Value.Load()
	slot := &c.slots[pos&c.mask].Value
	if slot.state.Load() != slotEmpty {
		return 0, false
	}
	slot.op = op
	slot.state.Store(slotPending)
	c.tail.Value.Add(1)
	return pos, true
}

// drainInto scans the ring once for Pending operations that hash to
// shard (out of shards total), claims each with a CAS to Draining,
// and appends the operation and its slot index in the ring to ops and
// positions. It returns how many it claimed.
func (c *Context[W, Resp]) drainInto(ops *[]W, positions *[]uint64, shard, shards uint32) uint32 {
	var claimed uint32
	for i := range c.slots {
		slot := &c.slots[i].Value
		if slot.state.Load() != slotPending {
			continue
		}
		if shards > 1 && uint32(slot.op.Hash()%uint64(shards)) != shard {
			continue
		}
		if !slot.state.CompareAndSwap(slotPending, slotDraining) {
			continue
		}
		*ops = append(*ops, slot.op)
		*positions = append(*positions, uint64(i))
		claimed++
	}
	return claimed
}

// resolve stores the response for a claimed slot and marks it Done. It
// is called by the combiner that owns that slot after appending it to
// the log and replaying it.
func (c *Context[W, Resp]) resolve(slotIdx uint64, resp Resp) {
	slot := &c.slots[slotIdx].Value
	slot.resp = resp
	slot.state.Store(slotDone)
}

// tryRes checks whether the slot at pos has been resolved. If so it
// resets the slot to Empty, so a future enqueue can reuse it, and
// returns the response with ok true. The caller is expected to retry
// combining and call tryRes again when ok is false, rather than
// spinning here and hoping some other thread drives a combiner round.
func (c *Context[W, Resp]) tryRes(pos uint64) (Resp, bool) {
	slot := &c.slots[pos&c.mask].Value
	if slot.state.Load() != slotDone {
		var zero Resp
		return zero, false
	}
	resp := slot.resp
	var zero Resp
	slot.resp = zero
	slot.state.Store(slotEmpty)
	return resp, true
}
