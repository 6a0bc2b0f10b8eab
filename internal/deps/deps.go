// Package deps checks the external binaries mkvtag depends on before the
// watch loop starts.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"mkvtag/internal/config"
)

// Requirement defines an external dependency mkvtag relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements derives the dependency list from configuration. The tagging
// command is mandatory; the probe only matters when precheck is enabled.
func Requirements(cfg *config.Config) []Requirement {
	reqs := []Requirement{
		{
			Name:        "tagger",
			Command:     cfg.Tagger.Command,
			Description: "metadata-rewriting command invoked per file",
		},
	}
	if cfg.Tagger.Precheck {
		reqs = append(reqs, Requirement{
			Name:        "probe",
			Command:     cfg.Tagger.ProbeCommand,
			Description: "probe used to skip already-tagged files",
			Optional:    true,
		})
	}
	return reqs
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// Verify fails when any required binary is missing. The engine cannot run
// without its tagging command, so this is checked before anything else.
func Verify(cfg *config.Config) error {
	for _, status := range CheckBinaries(Requirements(cfg)) {
		if status.Available || status.Optional {
			continue
		}
		return fmt.Errorf("required dependency %s unavailable: %s", status.Name, status.Detail)
	}
	return nil
}
