package record_test

import (
	"testing"

	"mkvtag/internal/record"
)

func TestNextStatusAllowsForwardProgress(t *testing.T) {
	cases := []struct {
		name      string
		current   record.Status
		requested record.Status
		want      record.Status
		allowed   bool
	}{
		{"new to waiting", record.StatusNew, record.StatusWaiting, record.StatusWaiting, true},
		{"new to processing", record.StatusNew, record.StatusProcessing, record.StatusProcessing, true},
		{"waiting to ready", record.StatusWaiting, record.StatusReady, record.StatusReady, true},
		{"ready back to waiting", record.StatusReady, record.StatusWaiting, record.StatusWaiting, true},
		{"processing to done", record.StatusProcessing, record.StatusDone, record.StatusDone, true},
		{"processing to failed", record.StatusProcessing, record.StatusFailed, record.StatusFailed, true},
		{"failed retries as ready", record.StatusFailed, record.StatusReady, record.StatusReady, true},
		{"failed resets to new", record.StatusFailed, record.StatusNew, record.StatusNew, true},
		{"gone reappears as new", record.StatusGone, record.StatusNew, record.StatusNew, true},
		{"done to gone", record.StatusDone, record.StatusGone, record.StatusGone, true},
		{"self transition is a no-op", record.StatusWaiting, record.StatusWaiting, record.StatusWaiting, true},

		{"waiting cannot regress to new", record.StatusWaiting, record.StatusNew, record.StatusWaiting, false},
		{"done cannot reopen", record.StatusDone, record.StatusReady, record.StatusDone, false},
		{"done cannot fail", record.StatusDone, record.StatusFailed, record.StatusDone, false},
		{"gone cannot go done", record.StatusGone, record.StatusDone, record.StatusGone, false},
		{"failed cannot jump to done", record.StatusFailed, record.StatusDone, record.StatusFailed, false},
		{"new cannot fail without processing", record.StatusNew, record.StatusFailed, record.StatusNew, false},
		{"ready cannot fail without processing", record.StatusReady, record.StatusFailed, record.StatusReady, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, allowed := record.NextStatus(tc.current, tc.requested)
			if allowed != tc.allowed {
				t.Fatalf("NextStatus(%s, %s) allowed = %v, want %v", tc.current, tc.requested, allowed, tc.allowed)
			}
			if got != tc.want {
				t.Fatalf("NextStatus(%s, %s) = %s, want %s", tc.current, tc.requested, got, tc.want)
			}
		})
	}
}

func TestNextStatusUnknownCurrentActsAsNew(t *testing.T) {
	got, allowed := record.NextStatus(record.Status("bogus"), record.StatusWaiting)
	if !allowed || got != record.StatusWaiting {
		t.Fatalf("unknown current should be treated as new: got %s allowed=%v", got, allowed)
	}

	got, allowed = record.NextStatus(record.Status("bogus"), record.StatusFailed)
	if allowed {
		t.Fatalf("unknown current should not fail directly: got %s", got)
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := record.ParseStatus(" Done "); !ok || status != record.StatusDone {
		t.Fatalf("ParseStatus: got %q ok=%v", status, ok)
	}
	if _, ok := record.ParseStatus("unheard-of"); ok {
		t.Fatal("expected unknown status to be rejected")
	}
	if _, ok := record.ParseStatus(""); ok {
		t.Fatal("expected empty status to be rejected")
	}
}

func TestIsTerminal(t *testing.T) {
	for _, status := range record.AllStatuses() {
		want := status == record.StatusDone || status == record.StatusGone
		if got := status.IsTerminal(); got != want {
			t.Fatalf("IsTerminal(%s) = %v, want %v", status, got, want)
		}
	}
}
