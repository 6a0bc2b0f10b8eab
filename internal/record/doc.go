// Package record models the tracked state of a single watched file.
//
// A Record carries the two most recent size/mtime observations so the
// stability heuristic can tell whether a file is still being written, plus
// the lifecycle status and failure counter that drive retry policy. Status
// transitions are validated through an explicit table (NextStatus) rather
// than ad hoc checks; regressive transitions such as done -> new are
// rejected so a stale in-memory copy can never clobber a committed result.
package record
