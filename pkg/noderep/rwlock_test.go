package noderep_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/noderep/pkg/noderep"
)

func Test_RWLock_Write_Excludes_Concurrent_Readers(t *testing.T) {
	t.Parallel()

	val := 0
	lock := noderep.NewRWLock(&val, 16)

	writer := lock.Write()

	readerStarted := make(chan struct{})
	readerDone := make(chan struct{})

	go func() {
		close(readerStarted)
		g := lock.Read(0)
		close(readerDone)
		g.Release()
	}()

	<-readerStarted
	select {
	case <-readerDone:
		t.Fatal("reader must not acquire the lock while a writer holds it")
	case <-time.After(20 * time.Millisecond):
	}

	writer.Release()

	select {
	case <-readerDone:
	case <-time.After(time.Second):
		t.Fatal("reader never acquired the lock after the writer released it")
	}
}

func Test_RWLock_Write_Waits_For_In_Flight_Readers(t *testing.T) {
	t.Parallel()

	val := 0
	lock := noderep.NewRWLock(&val, 16)

	reader := lock.Read(0)

	writerDone := make(chan struct{})
	go func() {
		w := lock.Write()
		close(writerDone)
		w.Release()
	}()

	select {
	case <-writerDone:
		t.Fatal("writer must not acquire the lock while a reader holds it")
	case <-time.After(20 * time.Millisecond):
	}

	reader.Release()

	select {
	case <-writerDone:
	case <-time.After(time.Second):
		t.Fatal("writer never acquired the lock after the reader released it")
	}
}

func Test_RWLock_Allows_Many_Concurrent_Readers(t *testing.T) {
	t.Parallel()

	val := 0
	lock := noderep.NewRWLock(&val, 16)

	var wg sync.WaitGroup
	var held atomic.Int32
	const readers = 16
	started := make(chan struct{}, readers)
	release := make(chan struct{})

	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func(tid uint32) {
			defer wg.Done()
			g := lock.Read(tid)
			held.Add(1)
			started <- struct{}{}
			<-release
			held.Add(-1)
			g.Release()
		}(uint32(i))
	}

	for i := 0; i < readers; i++ {
		select {
		case <-started:
		case <-time.After(time.Second):
		}
	}

	require.EqualValues(t, readers, held.Load(), "all readers must hold the read lock at the same time")
	close(release)
	wg.Wait()

	assert.Zero(t, val)
}
