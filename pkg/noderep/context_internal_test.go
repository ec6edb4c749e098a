package noderep

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testOp struct {
	value uint64
}

func (o testOp) Hash() uint64 { return o.value }

func Test_Context_EnqueueDrainResolve_RoundTrips_A_Single_Operation(t *testing.T) {
	t.Parallel()

	ctx := newContext[testOp, uint64](4)

	pos, ok := ctx.enqueue(testOp{value: 7})
	require.True(t, ok)

	var ops []testOp
	var positions []uint64
	claimed := ctx.drainInto(&ops, &positions, 0, 1)

	require.EqualValues(t, 1, claimed)
	require.Len(t, ops, 1)
	assert.Equal(t, testOp{value: 7}, ops[0])

	ctx.resolve(positions[0], 42)

	resp, ok := ctx.tryRes(pos)
	require.True(t, ok)
	assert.EqualValues(t, 42, resp)
}

func Test_Context_DrainInto_Only_Claims_Operations_Matching_Shard(t *testing.T) {
	t.Parallel()

	ctx := newContext[testOp, uint64](8)

	posA, okA := ctx.enqueue(testOp{value: 0})
	require.True(t, okA)
	posB, okB := ctx.enqueue(testOp{value: 1})
	require.True(t, okB)

	var ops []testOp
	var positions []uint64
	claimed := ctx.drainInto(&ops, &positions, 0, 2)

	require.EqualValues(t, 1, claimed)
	assert.Equal(t, testOp{value: 0}, ops[0])

	ctx.resolve(positions[0], 1)
	respA, readyA := ctx.tryRes(posA)
	require.True(t, readyA)
	assert.EqualValues(t, 1, respA)

	_, readyB := ctx.tryRes(posB)
	assert.False(t, readyB, "op on the other shard must not have been claimed")
}

func Test_Context_TryRes_Reports_Not_Ready_Until_Resolved(t *testing.T) {
	t.Parallel()

	ctx := newContext[testOp, uint64](2)
	pos, enqueued := ctx.enqueue(testOp{value: 1})
	require.True(t, enqueued)

	_, ok := ctx.tryRes(pos)
	assert.False(t, ok)

	var ops []testOp
	var positions []uint64
	ctx.drainInto(&ops, &positions, 0, 1)
	ctx.resolve(positions[0], 9)

	resp, ok := ctx.tryRes(pos)
	require.True(t, ok)
	assert.EqualValues(t, 9, resp)
}

func Test_Context_Slot_Is_Reusable_After_TryRes_Consumes_It(t *testing.T) {
	t.Parallel()

	ctx := newContext[testOp, uint64](1)

	pos1, ok1 := ctx.enqueue(testOp{value: 1})
	require.True(t, ok1)
	var ops []testOp
	var positions []uint64
	ctx.drainInto(&ops, &positions, 0, 1)
	ctx.resolve(positions[0], 100)
	resp1, ok1 := ctx.tryRes(pos1)
	require.True(t, ok1)
	assert.EqualValues(t, 100, resp1)

	pos2, ok2 := ctx.enqueue(testOp{value: 2})
	require.True(t, ok2)
	assert.Equal(t, pos1+1, pos2)
}

func Test_Context_Enqueue_Reports_False_Once_The_Ring_Is_Full(t *testing.T) {
	t.Parallel()

	ctx := newContext[testOp, uint64](2)

	_, ok1 := ctx.enqueue(testOp{value: 1})
	require.True(t, ok1)
	_, ok2 := ctx.enqueue(testOp{value: 2})
	require.True(t, ok2)

	_, ok3 := ctx.enqueue(testOp{value: 3})
	assert.False(t, ok3, "a third enqueue with no combiner round in between must find the ring full")
}
