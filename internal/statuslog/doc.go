// Package statuslog persists per-file processing state as a JSON status log
// and reconciles it with the live directory listing.
//
// The log on disk is always one complete JSON object mapping filename to
// record fields; every mutation rewrites the full snapshot atomically under
// a single writer lock. The Store is a best-effort, self-healing cache, not
// a database of record: a corrupted log is discarded and recreated (lenient
// mode) or surfaced as a parse error (strict mode), and a timed error state
// keeps a broken log from being rewritten every tick.
//
// Treat this package as the single source of truth for merge semantics; the
// tie-break order is disk presence for existence, in-memory terminal status
// for outcome, persisted failure counts for retry eligibility.
package statuslog
