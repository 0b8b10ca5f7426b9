// Package queueview turns buildbot queue snapshots into status-line
// descriptors. It owns no I/O: renderers consume the returned sections.
package queueview

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/izzyreal/bbdash/internal/buildbot"
)

const DefaultLoginURL = "/login"

type Options struct {
	UnknownArchitectures UnknownArchitecturePolicy
	// LoginURL is linked from unauthorized lines.
	LoginURL string
	Logger   *slog.Logger
	Now      func() time.Time
}

func (o Options) withDefaults() Options {
	if o.UnknownArchitectures == "" {
		o.UnknownArchitectures = UnknownArchitectureDrop
	}
	if strings.TrimSpace(o.LoginURL) == "" {
		o.LoginURL = DefaultLoginURL
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// QueueView is the behavior shared by every kind of queue view.
type QueueView interface {
	RevisionContentForIteration(it, previous *buildbot.Iteration) string
	PendingRevisionCountLine(q *buildbot.Queue) (StatusLine, bool)
	UnauthorizedLine(q *buildbot.Queue) StatusLine
	IterationHeading(q *buildbot.Queue, it *buildbot.Iteration) IterationHeading
}

type BaseQueueView struct {
	opts Options
}

func NewBaseQueueView(opts Options) *BaseQueueView {
	return &BaseQueueView{opts: opts.withDefaults()}
}

func (v *BaseQueueView) RevisionContentForIteration(it, previous *buildbot.Iteration) string {
	rev := revisionText(it)
	if previous == nil {
		return rev
	}
	prev := revisionText(previous)
	if prev == rev || prev == "unknown" {
		return rev
	}
	return prev + " – " + rev
}

func revisionText(it *buildbot.Iteration) string {
	if it == nil || strings.TrimSpace(it.Revision) == "" {
		return "unknown"
	}
	return strings.TrimSpace(it.Revision)
}

func (v *BaseQueueView) PendingRevisionCountLine(q *buildbot.Queue) (StatusLine, bool) {
	if q == nil || q.PendingRevisions <= 0 {
		return StatusLine{}, false
	}
	noun := "revisions"
	if q.PendingRevisions == 1 {
		noun = "revision"
	}
	return StatusLine{
		Kind:    KindPendingRevisions,
		Message: fmt.Sprintf("%s %s behind", humanize.Comma(int64(q.PendingRevisions)), noun),
		Status:  StatusNoBubble,
		Label:   "pending",
	}, true
}

func (v *BaseQueueView) UnauthorizedLine(q *buildbot.Queue) StatusLine {
	return StatusLine{
		Kind:    KindUnauthorized,
		Message: "unauthorized",
		Status:  StatusUnauthorized,
		Label:   "log in to see " + queueName(q),
		URL:     v.opts.LoginURL,
	}
}

// IterationHeading is the header block of an iteration popover.
type IterationHeading struct {
	Title    string `json:"title"`
	Revision string `json:"revision"`
	URL      string `json:"url"`
	Finished string `json:"finished,omitempty"`
	// ResultsURL is the buildmaster's test results directory for the run.
	ResultsURL string `json:"results_url,omitempty"`
}

func (v *BaseQueueView) IterationHeading(q *buildbot.Queue, it *buildbot.Iteration) IterationHeading {
	h := IterationHeading{
		Title:    "Build #" + it.ID,
		Revision: revisionText(it),
	}
	if q != nil {
		h.URL = q.Buildbot.BuildPageURLForIteration(it)
		if strings.TrimSpace(it.OpenSourceRevision) != "" {
			h.ResultsURL = q.Buildbot.LayoutTestResultsDirectoryURLForIteration(it)
		}
	}
	if !it.FinishedUTC.IsZero() {
		h.Finished = "finished " + humanize.RelTime(it.FinishedUTC, v.opts.Now(), "ago", "from now")
	}
	return h
}

func queueName(q *buildbot.Queue) string {
	if q == nil {
		return "queue"
	}
	if strings.TrimSpace(q.Title) != "" {
		return q.Title
	}
	return q.ID
}
