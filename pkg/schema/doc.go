// Package schema defines the vendor-neutral database schema model, its
// canonical serialization, content hashing, and snapshot persistence.
//
// The model is populated by the engine-specific extractors in pkg/extract and
// consumed by the differ in pkg/diff and the migration generator in
// pkg/migrate. It deliberately carries both the raw vendor type string and a
// normalized type tag for every column so that diffs can reason about
// narrowing conversions without losing the original DDL type.
//
// # Content Hashing
//
// Every Database can be reduced to a canonical JSON form whose SHA-256 digest
// identifies the structure of the database:
//
//	hash, err := db.ContentHash()
//	// e.g. "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"
//
// The canonical form is deterministic: object keys are lexicographically
// sorted, collections are sorted by (schema, name), nested collections by
// their stable key, max_length of -1 is replaced by the sentinel "MAX", and
// object definitions are normalized (LF line endings, trailing whitespace
// stripped). Volatile fields (extraction timestamp, row counts) are excluded
// from the hash input so that two extractions of an unchanged database yield
// the same hash.
//
// # Snapshots
//
// A Snapshot wraps a Database together with identity and provenance fields
// and is persisted as a canonical JSON file:
//
//	snap, err := schema.NewSnapshot(db, schema.SnapshotParams{
//	    ConnectionID: "prod-primary",
//	    TenantID:     "acme",
//	    Label:        "pre-release-42",
//	})
//
//	store := schema.NewStore("/var/lib/warden/snapshots")
//	path, err := store.Save(snap)
package schema
