package noderep

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	total uint64
}

func (c *counter) Dispatch(testOp) uint64 {
	return c.total
}

func (c *counter) DispatchMut(op testOp) uint64 {
	c.total += op.value
	return c.total
}

func newTestReplica(t *testing.T, shards uint32, tmax uint32) *Replica[testOp, testOp, uint64, *counter] {
	t.Helper()

	logs := make([]*Log[testOp], shards)
	for i := range logs {
		logs[i] = NewLog[testOp](64)
	}

	return newReplica[testOp, testOp, uint64, *counter](0, logs, &counter{}, tmax)
}

func Test_Replica_TryCombine_Excludes_Concurrent_Combiners_On_The_Same_Shard(t *testing.T) {
	t.Parallel()

	r := newTestReplica(t, 1, 8)

	var wg sync.WaitGroup
	var succeeded atomic.Int32
	const attempts = 64

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r.tryCombine(0) {
				succeeded.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.True(t, succeeded.Load() >= 1, "at least one goroutine must have combined")

	r.combiners[0].Value.Store(true)
	assert.False(t, r.tryCombine(0), "tryCombine must not enter a shard another combiner holds")
	r.combiners[0].Value.Store(false)
}

func Test_Replica_Register_Rejects_Past_TMax(t *testing.T) {
	t.Parallel()

	r := newTestReplica(t, 1, 2)

	_, ok1 := r.Register(4)
	require.True(t, ok1)
	_, ok2 := r.Register(4)
	require.True(t, ok2)
	_, ok3 := r.Register(4)
	assert.False(t, ok3, "a third registration must be refused once TMax threads are registered")
}

func Test_Replica_ExecuteMut_Applies_Sequential_Increments_In_Order(t *testing.T) {
	t.Parallel()

	r := newTestReplica(t, 1, 1)
	tok, ok := r.Register(4)
	require.True(t, ok)

	var last uint64
	for i := uint64(1); i <= 5; i++ {
		last = r.ExecuteMut(tok, testOp{value: i})
	}

	assert.EqualValues(t, 1+2+3+4+5, last)
}
