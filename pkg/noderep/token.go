package noderep

// ThreadToken is proof that the calling goroutine has registered with
// a particular replica. It is returned by Replica.Register and must be
// passed back into ExecuteMut/Execute/Sync — there is no way to obtain
// one except by registering, and (in debug builds) no way to use one
// from a goroutine other than the one that registered it.
//
// A token is meant to be thread-affine: created once by the goroutine
// that registers, then used only by that same goroutine. Go has no
// type-level way to enforce this, so by default ThreadToken is a plain
// value any goroutine can copy and use — affinity is a documented
// contract, not an enforced one, unless the noderep_debug build tag is
// set.
type ThreadToken struct {
	tid uint32
	aff affinity
}

// ID reports the thread identity the slice it indexes into.
func (t ThreadToken) ID() uint32 {
	return t.tid
}

func newThreadToken(tid uint32) ThreadToken {
	return ThreadToken{tid: tid, aff: newAffinity()}
}

// checkAffinity panics if built with noderep_debug and the token is
// being used from a different goroutine than the one that registered
// it. It is a no-op in release builds.
func (t ThreadToken) checkAffinity() {
	t.aff.check()
}
