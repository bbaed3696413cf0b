// Package audit records who did what to which database resource.
//
// Entries form a per-tenant hash chain: each entry carries the SHA-256 of
// its own canonical form concatenated with the previous entry's hash, so
// any edit or deletion inside the chain is detectable by VerifyIntegrity.
//
// The Log front end buffers entries and flushes them to a Store in
// batches, either when the buffer fills or on a fixed interval. A failed
// flush keeps the batch in memory for the next attempt. Two stores ship
// with the package: MemoryStore for in-process use and PGStore backed by
// PostgreSQL.
package audit
