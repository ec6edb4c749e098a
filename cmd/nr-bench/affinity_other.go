//go:build !linux

package main

// pinCurrentThread is a no-op outside Linux: sched_setaffinity has no
// portable equivalent, and -pin is a best-effort knob, not a
// correctness requirement.
func pinCurrentThread(cpu int) {}
