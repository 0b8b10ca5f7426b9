package queueview

import "github.com/izzyreal/bbdash/internal/buildbot"

// Status is the severity bubble shown next to a status line.
type Status string

const (
	StatusBad          Status = "bad"
	StatusDanger       Status = "danger"
	StatusGood         Status = "good"
	StatusNeutral      Status = "neutral"
	StatusUnauthorized Status = "unauthorized"
	StatusNoBubble     Status = "no-bubble"
)

// Kind tells renderers which rule produced a line.
type Kind string

const (
	KindUnauthorized     Kind = "unauthorized"
	KindPendingRevisions Kind = "pending-revisions"
	KindFailure          Kind = "failure"
	KindSuccess          Kind = "success"
	KindUnknown          Kind = "unknown"
)

// PopoverRef addresses the iteration whose failure logs a popover lists.
type PopoverRef struct {
	QueueID     string `json:"queue_id"`
	IterationID string `json:"iteration_id"`
}

type StatusLine struct {
	Kind         Kind        `json:"kind"`
	Message      string      `json:"message"`
	Status       Status      `json:"status"`
	Label        string      `json:"label"`
	URL          string      `json:"url,omitempty"`
	NeedsPopover bool        `json:"needs_popover,omitempty"`
	Popover      *PopoverRef `json:"popover,omitempty"`

	// PopoverIteration is the in-process popover context; renderers that
	// cross a process boundary use Popover instead.
	PopoverIteration *buildbot.Iteration `json:"-"`
}

// Section is one labeled queue row: the queue label link followed by its
// status lines.
type Section struct {
	Label        string       `json:"label"`
	QueueID      string       `json:"queue_id"`
	Architecture string       `json:"architecture"`
	BuildType    string       `json:"build_type"`
	OverviewURL  string       `json:"overview_url"`
	Lines        []StatusLine `json:"lines"`
}
