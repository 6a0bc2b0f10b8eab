// Package rename strips a configured case-insensitive pattern from
// filenames of successfully tagged files.
package rename

import (
	"fmt"
	"regexp"
	"strings"
)

// Engine produces cleaned-up filenames from a case-insensitive pattern.
// Every matching substring is removed. A nil engine cleans nothing.
type Engine struct {
	pattern *regexp.Regexp
}

// New compiles the cleanup pattern. An empty pattern yields a nil engine,
// which disables renaming entirely.
func New(pattern string) (*Engine, error) {
	trimmed := strings.TrimSpace(pattern)
	if trimmed == "" {
		return nil, nil
	}
	re, err := regexp.Compile("(?i)" + trimmed)
	if err != nil {
		return nil, fmt.Errorf("compile rename pattern: %w", err)
	}
	return &Engine{pattern: re}, nil
}

// CleanName returns the filename with all pattern matches stripped. ok is
// false when no cleanup applies: no engine, no match, or a result that
// would be empty or only an extension.
func (e *Engine) CleanName(name string) (string, bool) {
	if e == nil || e.pattern == nil {
		return name, false
	}
	cleaned := e.pattern.ReplaceAllString(name, "")
	if cleaned == name {
		return name, false
	}
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" || strings.HasPrefix(cleaned, ".") {
		return name, false
	}
	return cleaned, true
}
