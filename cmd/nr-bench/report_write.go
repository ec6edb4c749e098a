package main

import (
	"strings"

	"github.com/natefinch/atomic"
)

// durableWrite writes a report file the same way this codebase writes
// any other file a user might be reading concurrently with a retry: via
// a temp file plus atomic rename, so a reader never observes a
// truncated report.
func durableWrite(path string, data []byte) error {
	return atomic.WriteFile(path, strings.NewReader(string(data)))
}
