// Package canvas is the graph accessor: nodes, edges and the operations the
// conversation engine performs on them.
//
// [Accessor] is the narrow contract the engine consumes. [Graph] is a
// concurrency-safe in-memory implementation, and [FileStore] persists a
// Graph as a JSON Canvas document on disk.
//
// Every write is a discrete update under the graph's lock; callers re-read
// [Accessor.Data] rather than holding snapshots across provider calls, so
// concurrent writers interleave as last-write-wins at the field level.
package canvas
