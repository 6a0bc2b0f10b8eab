// Package config loads, defaults, and validates mkvtag configuration.
//
// Configuration is a TOML file (default ~/.config/mkvtag/config.toml) merged
// over built-in defaults. Environment variables carried over from the
// original CLI (MKVTAG_PATH, MKVTAG_TIMER, MKVTAG_WAIT, ...) fill any value
// the file leaves unset. Load returns a fully normalized config: all paths
// are absolute and every interval has a sane positive value.
package config
