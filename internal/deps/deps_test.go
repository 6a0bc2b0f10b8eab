package deps_test

import (
	"testing"

	"mkvtag/internal/deps"
	"mkvtag/internal/testsupport"
)

func TestVerifyPassesWithStubbedBinaries(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	if err := deps.Verify(cfg); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestVerifyFailsWhenTaggerMissing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Tagger.Command = "definitely-not-installed-anywhere"
	if err := deps.Verify(cfg); err == nil {
		t.Fatal("expected missing tagger to fail verification")
	}
}

func TestProbeIsOptional(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries("mkvpropedit"))
	cfg.Tagger.Precheck = true
	cfg.Tagger.ProbeCommand = "definitely-not-installed-anywhere"

	statuses := deps.CheckBinaries(deps.Requirements(cfg))
	if len(statuses) != 2 {
		t.Fatalf("expected tagger and probe, got %d", len(statuses))
	}
	if !statuses[0].Available {
		t.Fatalf("tagger should be available: %+v", statuses[0])
	}
	if statuses[1].Available || !statuses[1].Optional {
		t.Fatalf("probe should be missing but optional: %+v", statuses[1])
	}

	// A missing optional probe does not block startup.
	if err := deps.Verify(cfg); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestRequirementsWithoutPrecheckSkipProbe(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if got := len(deps.Requirements(cfg)); got != 1 {
		t.Fatalf("expected only the tagger requirement, got %d", got)
	}
}
