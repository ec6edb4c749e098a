package noderep

import "sync/atomic"

// MaxReplicas bounds how many replicas may register with a single Log.
// Each replica owns one padded ltail cursor in a fixed-size array, so
// this is a compile-time cap rather than a dynamically grown slice.
const MaxReplicas = 16

type logEntry[W Hashable] struct {
	op     W
	origin uint16
	alive  atomic.Bool
}

// Log is the shared circular buffer a replicated object's writes flow
// through. Every replica reads every entry in order; a replica only
// ever appends entries it originated itself, and only after reserving
// space for them with a compare-and-swap on tail, made once the log has
// room for the whole batch.
//
// Entries never move: a slot's alive bit flips each time the ring
// laps back around to it, so a replica reading ahead of an append (or
// an append about to overwrite a slot a slow replica hasn't consumed
// yet) can tell a stale entry from a fresh one without a separate
// "valid" generation counter per lap.
type Log[W Hashable] struct {
	mask    uint64
	entries []logEntry[W]

	tail CachePadded[atomic.Uint64]
	head CachePadded[atomic.Uint64]
	ctail CachePadded[atomic.Uint64]

	ltails   [MaxReplicas]CachePadded[atomic.Uint64]
	nreplicas atomic.Uint32
}

// NewLog allocates a log of n entries, n must be a power of two.
func NewLog[W Hashable](n uint32) *Log[W] {
	return &Log[W]{
		mask:    uint64(n) - 1,
		entries: make([]logEntry[W], n),
	}
}

// Register reserves one of the log's replica slots and returns its
// index, or false if MaxReplicas are already registered.
func (l *Log[W]) Register() (uint16, bool) {
	for {
		cur := l.nreplicas.Load()
		if cur >= MaxReplicas {
			return 0, false
		}
		if l.nreplicas.CompareAndSwap(cur, cur+1) {
			return uint16(cur), true
		}
	}
}

func (l *Log[W]) capacity() uint64 {
	return uint64(len(l.entries))
}

// Append reserves space for len(ops) entries, blocking (and helping
// garbage collect) until there's room, writes them in order tagged
// with origin, and returns the logical index one past the last entry
// written — the new tail a caller can replay up to.
//
// onStall, if non-nil, is called each time Append must wait for other
// replicas to catch up before it can safely garbage collect and
// reserve space; it exists so a combiner can interleave draining its
// own backlog while waiting, rather than spinning uselessly.
func (l *Log[W]) Append(ops []W, origin uint16, onStall func()) uint64 {
	if len(ops) == 0 {
		return l.tail.Value.Load()
	}
	n := uint64(len(ops))
	capacity := l.capacity()
	var start uint64
	for {
		start = l.tail.Value.Load()
		if start+n-l.head.Value.Load() <= capacity {
			if l.tail.Value.CompareAndSwap(start, start+n) {
				break
			}
			continue
		}
		if !l.advanceHead(start + n - capacity) {
			if onStall != nil {
				onStall()
			}
			spinHint()
		}
	}
	end := start + n

	for i, op := range ops {
		idx := start + uint64(i)
		entry := &l.entries[idx&l.mask]
		entry.op = op
		entry.origin = origin
		entry.alive.Store(aliveValueFor(idx, l.mask+1))
	}
	return end
}

// advanceHead tries to move head up to at least want, the minimum of
// all registered replicas' ltails permitting. It returns whether head
// now covers want.
func (l *Log[W]) advanceHead(want uint64) bool {
	slowest := l.tail.Value.Load()
	n := l.nreplicas.Load()
	for i := uint32(0); i < n; i++ {
		if t := l.ltails[i].Value.Load(); t < slowest {
			slowest = t
		}
	}
	if slowest < want {
		return false
	}
	for {
		cur := l.head.Value.Load()
		if cur >= slowest {
			return true
		}
		if l.head.Value.CompareAndSwap(cur, slowest) {
			return true
		}
	}
}

// aliveValueFor reports the alive-bit value that marks the entry at
// logical index idx as fresh: it flips every lap of the ring so a slow
// reader can never mistake a stale entry for a current one.
func aliveValueFor(idx, n uint64) bool {
	return (idx/n)%2 == 0
}

// Exec replays every entry in [ltails[replica], tail) in order,
// calling f with the op and whether replica originated it, then
// advances the replica's ltail and, since a replica only ever
// publishes ctail for entries it has itself just executed, CASes
// ctail forward to match.
func (l *Log[W]) Exec(replica uint16, f func(op W, isOrigin bool)) {
	cur := l.ltails[replica].Value.Load()
	upto := l.tail.Value.Load()
	n := l.mask + 1
	for cur < upto {
		entry := &l.entries[cur&l.mask]
		want := aliveValueFor(cur, n)
		for entry.alive.Load() != want {
			spinHint()
		}
		f(entry.op, entry.origin == replica)
		cur++
	}
	l.ltails[replica].Value.Store(cur)
	l.advanceCtailFor(cur)
}

// advanceCtailFor CASes the log's completed-tail watermark forward to
// at most newCtail, never backward.
func (l *Log[W]) advanceCtailFor(newCtail uint64) {
	for {
		cur := l.ctail.Value.Load()
		if newCtail <= cur {
			return
		}
		if l.ctail.Value.CompareAndSwap(cur, newCtail) {
			return
		}
	}
}

// GetCtail returns the log's completed-tail watermark: the logical
// index up to which some replica has already executed and answered
// every entry.
func (l *Log[W]) GetCtail() uint64 {
	return l.ctail.Value.Load()
}

// IsReplicaSynced reports whether replica has read at least as far as
// the log's ctail watermark, i.e. a read against it right now would
// not miss any externally-visible write.
func (l *Log[W]) IsReplicaSynced(replica uint16) bool {
	return l.ltails[replica].Value.Load() >= l.GetCtail()
}

// Tail returns the log's current logical tail.
func (l *Log[W]) Tail() uint64 {
	return l.tail.Value.Load()
}
