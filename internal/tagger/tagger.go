package tagger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/mattn/go-isatty"

	"mkvtag/internal/config"
)

var commandContext = exec.CommandContext

// CommandError reports a non-zero exit from the tagging command with the
// captured standard-error text for operator diagnosis.
type CommandError struct {
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	if strings.TrimSpace(e.Stderr) == "" {
		return fmt.Sprintf("tagging command exited with code %d", e.ExitCode)
	}
	return fmt.Sprintf("tagging command exited with code %d: %s", e.ExitCode, strings.TrimSpace(e.Stderr))
}

// Runner defines the tagging behaviour the supervisor drives.
type Runner interface {
	// Tag rewrites metadata on the file at path. A non-zero exit surfaces
	// as a *CommandError.
	Tag(ctx context.Context, path string) error
	// AlreadyTagged probes for existing target metadata. Empty probe output
	// means unknown (false); any other output means already tagged.
	AlreadyTagged(ctx context.Context, path string) (bool, error)
}

// Option configures the CLI client.
type Option func(*CLI)

// WithStdout overrides the writer used when streaming command output.
func WithStdout(w io.Writer) Option {
	return func(c *CLI) {
		if w != nil {
			c.stdout = w
		}
	}
}

// CLI invokes the tagging and probe commands as subprocesses.
type CLI struct {
	binary      string
	args        []string
	probeBinary string
	stdout      io.Writer
}

// NewCLI constructs a client from configuration.
func NewCLI(cfg *config.Config, opts ...Option) *CLI {
	cli := &CLI{
		binary:      cfg.Tagger.Command,
		args:        append([]string(nil), cfg.Tagger.Args...),
		probeBinary: cfg.Tagger.ProbeCommand,
		stdout:      os.Stdout,
	}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Tag runs the tagging command synchronously against path. When stdout is a
// terminal the command's combined output is streamed through; otherwise it
// is captured and only surfaced on failure.
func (c *CLI) Tag(ctx context.Context, path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("file path required")
	}

	args := append(append([]string(nil), c.args...), path)
	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if file, ok := c.stdout.(*os.File); ok && isatty.IsTerminal(file.Fd()) {
		cmd.Stdout = c.stdout
	} else {
		cmd.Stdout = io.Discard
	}

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &CommandError{ExitCode: exitErr.ExitCode(), Stderr: stderr.String()}
		}
		return fmt.Errorf("run %s: %w", c.binary, err)
	}
	return nil
}

// AlreadyTagged runs the probe command against path. Per the probe contract,
// empty output is "unknown" and any other output is "already tagged". Probe
// failures are returned so the caller can decide whether to proceed.
func (c *CLI) AlreadyTagged(ctx context.Context, path string) (bool, error) {
	if strings.TrimSpace(c.probeBinary) == "" {
		return false, nil
	}
	cmd := commandContext(ctx, c.probeBinary, path) //nolint:gosec
	output, err := cmd.Output()
	if err != nil {
		return false, fmt.Errorf("run %s: %w", c.probeBinary, err)
	}
	return strings.TrimSpace(string(output)) != "", nil
}

var _ Runner = (*CLI)(nil)
