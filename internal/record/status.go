package record

import "strings"

// Status represents the lifecycle of a tracked file.
type Status string

const (
	StatusNew        Status = "new"
	StatusWaiting    Status = "waiting"
	StatusReady      Status = "ready"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
	StatusGone       Status = "gone"
)

var allStatuses = []Status{
	StatusNew,
	StatusWaiting,
	StatusReady,
	StatusProcessing,
	StatusDone,
	StatusFailed,
	StatusGone,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// allowedTransitions encodes which requested statuses are accepted for each
// current status. Self-transitions are accepted everywhere as no-ops. The
// asymmetry is deliberate: a waiting file may move forward or vanish but
// never regress to new, while a failed file may only re-enter the pipeline
// through a retry (new/ready) or vanish. done and gone are terminal except
// for removal and reappearance respectively.
var allowedTransitions = map[Status]map[Status]struct{}{
	StatusNew: {
		StatusNew:        {},
		StatusWaiting:    {},
		StatusReady:      {},
		StatusProcessing: {},
		StatusDone:       {},
		StatusGone:       {},
	},
	StatusWaiting: {
		StatusWaiting:    {},
		StatusReady:      {},
		StatusProcessing: {},
		StatusDone:       {},
		StatusGone:       {},
	},
	StatusReady: {
		StatusReady:      {},
		StatusWaiting:    {},
		StatusProcessing: {},
		StatusDone:       {},
		StatusGone:       {},
	},
	StatusProcessing: {
		StatusProcessing: {},
		StatusDone:       {},
		StatusFailed:     {},
		StatusGone:       {},
	},
	StatusFailed: {
		StatusFailed: {},
		StatusNew:    {},
		StatusReady:  {},
		StatusGone:   {},
	},
	StatusDone: {
		StatusDone: {},
		StatusGone: {},
	},
	StatusGone: {
		StatusGone: {},
		StatusNew:  {},
	},
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status ends automatic processing. failed is
// terminal only once the give-up threshold is reached, which the supervisor
// checks separately against FailedCount.
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusGone
}

// NextStatus validates a requested transition against the table. It returns
// the resulting status and whether the transition is allowed; on rejection
// the current status is returned unchanged.
func NextStatus(current, requested Status) (Status, bool) {
	allowed, ok := allowedTransitions[current]
	if !ok {
		// Unknown current status: treat the record as brand new so a
		// corrupted or future status value cannot wedge the pipeline.
		current = StatusNew
		allowed = allowedTransitions[StatusNew]
	}
	if _, ok := allowed[requested]; !ok {
		return current, false
	}
	return requested, true
}
