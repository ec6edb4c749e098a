package noderep

import "runtime"

// spinHint yields the processor to other goroutines while a caller is
// busy-waiting on a condition another goroutine is expected to flip
// soon (a context slot draining, a log entry going alive, a combiner
// lock releasing). Go schedules goroutines cooperatively onto a
// limited set of OS threads, so a tight CPU-pause spin would starve the
// very goroutine we're waiting on; Gosched lets the runtime make
// progress elsewhere instead.
func spinHint() {
	runtime.Gosched()
}
