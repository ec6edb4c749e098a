// Package noderep turns an ordinary, single-threaded data structure
// into one that many goroutines can read and write concurrently
// without any per-operation locking, by giving each goroutine-group
// ("replica") its own full copy and keeping every copy consistent
// through a shared, append-only log.
//
// A write is never applied directly: it is posted to the calling
// thread's Context, and some thread acting as that shard's combiner
// batches it together with other threads' pending writes, appends the
// batch to the log in one step, and replays the log forward into its
// replica's data. A read waits only until its own replica has caught
// up to the log's completed-tail watermark, then runs directly against
// that replica's local copy under a read lock.
//
// Splitting the object across more than one log (Config.L > 1) trades
// a single append bottleneck for several independent ones; operations
// are assigned to a shard by hashing, so this is only safe when
// operations landing on different shards commute with each other from
// the data structure's point of view.
package noderep
