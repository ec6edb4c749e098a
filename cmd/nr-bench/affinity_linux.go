//go:build linux

package main

import "golang.org/x/sys/unix"

// pinCurrentThread best-effort pins the calling OS thread to CPU cpu
// mod the number of available CPUs, so a -pin run measures less cross-
// core migration noise. It locks the calling goroutine to its OS
// thread first, since CPU affinity is a thread property; any error
// (sandboxed environments routinely deny sched_setaffinity) is
// swallowed, since this is a best-effort knob, not a correctness
// requirement.
func pinCurrentThread(cpu int) {
	lockOSThreadForAffinity()

	n := numCPU()
	if n <= 0 {
		return
	}

	var set unix.CPUSet
	set.Zero()
	set.Set(cpu % n)

	_ = unix.SchedSetaffinity(0, &set)
}
