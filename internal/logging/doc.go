// Package logging builds the slog loggers used across mkvtag.
//
// Two handler formats are supported: a pretty console handler for
// interactive use and a JSON handler for machine consumption. The daemon log
// file is rotated with lumberjack. Attr helpers and standardized field keys
// keep log lines greppable; component loggers are derived with
// NewComponentLogger.
package logging
