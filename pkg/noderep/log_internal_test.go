package noderep

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Log_Exec_Replays_Entries_In_Append_Order(t *testing.T) {
	t.Parallel()

	log := NewLog[testOp](8)

	_, okA := log.Register()
	require.True(t, okA)
	_, okB := log.Register()
	require.True(t, okB)

	log.Append([]testOp{{value: 1}, {value: 2}, {value: 3}}, 0, nil)

	var seen []uint64
	log.Exec(0, func(op testOp, isOrigin bool) {
		seen = append(seen, op.value)
		assert.True(t, isOrigin)
	})

	assert.Equal(t, []uint64{1, 2, 3}, seen)
}

func Test_Log_Exec_Marks_Entries_From_Other_Replicas_As_Not_Origin(t *testing.T) {
	t.Parallel()

	log := NewLog[testOp](8)
	_, _ = log.Register()
	_, _ = log.Register()

	log.Append([]testOp{{value: 5}}, 1, nil)

	var gotOrigin bool
	log.Exec(0, func(op testOp, isOrigin bool) {
		gotOrigin = isOrigin
	})

	assert.False(t, gotOrigin)
}

func Test_Log_IsReplicaSynced_Reflects_Ctail_Watermark(t *testing.T) {
	t.Parallel()

	log := NewLog[testOp](8)
	_, _ = log.Register()
	_, _ = log.Register()

	assert.True(t, log.IsReplicaSynced(0), "a replica with nothing appended is trivially synced")

	log.Append([]testOp{{value: 1}}, 1, nil)
	log.Exec(1, func(testOp, bool) {})
	assert.False(t, log.IsReplicaSynced(0), "replica 0 hasn't replayed replica 1's append yet")

	log.Exec(0, func(testOp, bool) {})
	assert.True(t, log.IsReplicaSynced(0))
}

func Test_Log_Append_Wraps_And_Garbage_Collects_Once_Every_Replica_Has_Read(t *testing.T) {
	t.Parallel()

	log := NewLog[testOp](4)
	_, _ = log.Register()
	_, _ = log.Register()

	log.Append([]testOp{{value: 1}, {value: 2}, {value: 3}, {value: 4}}, 0, nil)

	log.Exec(0, func(testOp, bool) {})
	log.Exec(1, func(testOp, bool) {})

	var seen []uint64
	done := make(chan struct{})
	go func() {
		log.Append([]testOp{{value: 5}, {value: 6}}, 0, nil)
		close(done)
	}()
	<-done

	log.Exec(0, func(op testOp, _ bool) {
		seen = append(seen, op.value)
	})

	assert.Equal(t, []uint64{5, 6}, seen)
}
