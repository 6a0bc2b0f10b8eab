// Package daemon composes the watch loop: configuration, the status log
// store, the tagging supervisor, filesystem watching, and the single-instance
// file lock.
package daemon
