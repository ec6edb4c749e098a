//go:build noderep_debug

package noderep

import (
	"bytes"
	"fmt"
	"runtime"
	"strconv"
)

// affinity captures the goroutine id that created a ThreadToken so
// later use from a different goroutine can be caught in debug builds.
// Parsing runtime.Stack() is the only way to get a goroutine id
// without cgo or an unsafe trick; it is deliberately kept out of
// release builds because it allocates on every call.
type affinity struct {
	goid int64
}

func newAffinity() affinity {
	return affinity{goid: currentGoroutineID()}
}

func (a affinity) check() {
	if got := currentGoroutineID(); got != a.goid {
		panic(fmt.Sprintf("noderep: ThreadToken used from goroutine %d, registered on goroutine %d", got, a.goid))
	}
}

func currentGoroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	line := buf[:n]
	const prefix = "goroutine "
	if !bytes.HasPrefix(line, []byte(prefix)) {
		return -1
	}
	line = line[len(prefix):]
	if idx := bytes.IndexByte(line, ' '); idx >= 0 {
		line = line[:idx]
	}
	id, err := strconv.ParseInt(string(line), 10, 64)
	if err != nil {
		return -1
	}
	return id
}
