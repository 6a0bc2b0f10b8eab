package tagger_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mkvtag/internal/tagger"
	"mkvtag/internal/testsupport"
)

func stubBinary(t *testing.T, name, script string) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func TestTagSuccess(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	path := filepath.Join(cfg.Watch.Directory, "movie.mkv")
	testsupport.WriteFile(t, path, 64)

	cli := tagger.NewCLI(cfg)
	if err := cli.Tag(context.Background(), path); err != nil {
		t.Fatalf("Tag: %v", err)
	}
}

func TestTagFailureSurfacesExitCodeAndStderr(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithFailingBinary("mkvpropedit", 2, "no such segment"))
	path := filepath.Join(cfg.Watch.Directory, "movie.mkv")
	testsupport.WriteFile(t, path, 64)

	cli := tagger.NewCLI(cfg)
	err := cli.Tag(context.Background(), path)
	if err == nil {
		t.Fatal("expected failure")
	}
	var cmdErr *tagger.CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("expected CommandError, got %T: %v", err, err)
	}
	if cmdErr.ExitCode != 2 {
		t.Fatalf("unexpected exit code: %d", cmdErr.ExitCode)
	}
	if !strings.Contains(cmdErr.Stderr, "no such segment") {
		t.Fatalf("stderr not captured: %q", cmdErr.Stderr)
	}
}

func TestTagEmptyPath(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	cli := tagger.NewCLI(cfg)
	if err := cli.Tag(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestAlreadyTaggedEmptyOutputMeansUnknown(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	cli := tagger.NewCLI(cfg)

	tagged, err := cli.AlreadyTagged(context.Background(), "movie.mkv")
	if err != nil {
		t.Fatalf("AlreadyTagged: %v", err)
	}
	if tagged {
		t.Fatal("empty probe output must report not tagged")
	}
}

func TestAlreadyTaggedNonEmptyOutput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	stubBinary(t, "mkvinfo", "#!/bin/sh\necho 'Track statistics present'\nexit 0\n")

	cli := tagger.NewCLI(cfg)
	tagged, err := cli.AlreadyTagged(context.Background(), "movie.mkv")
	if err != nil {
		t.Fatalf("AlreadyTagged: %v", err)
	}
	if !tagged {
		t.Fatal("non-empty probe output must report tagged")
	}
}

func TestAlreadyTaggedNoProbeConfigured(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Tagger.ProbeCommand = ""

	cli := tagger.NewCLI(cfg)
	tagged, err := cli.AlreadyTagged(context.Background(), "movie.mkv")
	if err != nil || tagged {
		t.Fatalf("expected silent false without a probe, got %v %v", tagged, err)
	}
}

func TestAlreadyTaggedProbeFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	stubBinary(t, "mkvinfo", "#!/bin/sh\nexit 1\n")

	cli := tagger.NewCLI(cfg)
	if _, err := cli.AlreadyTagged(context.Background(), "movie.mkv"); err == nil {
		t.Fatal("expected probe failure to surface")
	}
}
