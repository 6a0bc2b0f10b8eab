// Package tagger wraps the external metadata-rewriting command (mkvpropedit
// by default) and the optional probe used to detect already-tagged files.
//
// Prefer this package over ad-hoc exec.Command usage when invoking the
// tagging toolchain; it owns argument construction, TTY-aware output
// streaming, and stderr capture for operator diagnostics.
package tagger
