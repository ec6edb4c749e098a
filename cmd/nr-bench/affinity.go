package main

import "runtime"

func lockOSThreadForAffinity() {
	runtime.LockOSThread()
}

func numCPU() int {
	return runtime.NumCPU()
}
