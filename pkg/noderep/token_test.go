package noderep_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/calvinalkan/noderep/pkg/noderep"
)

func Test_ThreadToken_ID_Reports_Registration_Order(t *testing.T) {
	t.Parallel()

	cfg := noderep.Config{TMax: 4, N: 16, B: 4, L: 1}
	nr := noderep.New[testReadOp, testWriteOp, int, *testData](cfg, []*testData{{}})

	tok0, ok := nr.RegisterAt(0)
	assert.True(t, ok)
	assert.EqualValues(t, 0, tok0.ID())

	tok1, ok := nr.RegisterAt(0)
	assert.True(t, ok)
	assert.EqualValues(t, 1, tok1.ID())
}

type testReadOp struct{}

func (testReadOp) Hash() uint64 { return 0 }

type testWriteOp struct{}

func (testWriteOp) Hash() uint64 { return 0 }

type testData struct{}

func (*testData) Dispatch(testReadOp) int        { return 0 }
func (*testData) DispatchMut(testWriteOp) int     { return 0 }
