package queueview

import (
	"log/slog"
	"sync/atomic"

	"github.com/izzyreal/bbdash/internal/buildbot"
)

// Failure logs tried, in order, when linking a failed build step.
var preferredFailureLogs = []string{"build log", "stdio"}

const (
	labelLastSuccessful = "last successful build"
	labelLatest         = "latest build"
)

// BuilderQueueView shows builder queues grouped by architecture and build
// type. The grouping is computed once and reused until Refresh.
type BuilderQueueView struct {
	base QueueView
	opts Options

	debugQueues   []*buildbot.Queue
	releaseQueues []*buildbot.Queue

	grouping    *Grouping
	groupingErr error

	violations atomic.Int64
}

// NewBuilderQueueView builds a view over the given queues. A nil base uses
// BaseQueueView with the same options.
func NewBuilderQueueView(base QueueView, debugQueues, releaseQueues []*buildbot.Queue, opts Options) *BuilderQueueView {
	opts = opts.withDefaults()
	if base == nil {
		base = NewBaseQueueView(opts)
	}
	v := &BuilderQueueView{base: base, opts: opts}
	v.Refresh(debugQueues, releaseQueues)
	return v
}

// Refresh swaps in a new queue snapshot and invalidates the cached grouping.
func (v *BuilderQueueView) Refresh(debugQueues, releaseQueues []*buildbot.Queue) {
	v.debugQueues = debugQueues
	v.releaseQueues = releaseQueues
	v.grouping = nil
	v.groupingErr = nil
}

func (v *BuilderQueueView) Grouping() (Grouping, error) {
	if v.grouping == nil && v.groupingErr == nil {
		g, err := Classify(v.debugQueues, v.releaseQueues, v.opts.UnknownArchitectures)
		if err != nil {
			v.groupingErr = err
		} else {
			v.grouping = &g
		}
	}
	if v.groupingErr != nil {
		return Grouping{}, v.groupingErr
	}
	return *v.grouping, nil
}

// Update renders every queue into a labeled section. Each call is a full
// rebuild from the current snapshot.
func (v *BuilderQueueView) Update() ([]Section, error) {
	g, err := v.Grouping()
	if err != nil {
		return nil, err
	}
	for _, q := range g.Dropped {
		v.opts.Logger.Warn("queue with unknown architecture not shown",
			slog.String("queue", q.ID),
			slog.String("architecture", string(q.Architecture)))
	}

	var sections []Section
	for _, key := range BucketOrder() {
		label := g.Label(key)
		for _, q := range g.Queues(key) {
			sections = append(sections, Section{
				Label:        label,
				QueueID:      q.ID,
				Architecture: string(key.Architecture),
				BuildType:    string(key.BuildType),
				OverviewURL:  q.OverviewURL(),
				Lines:        v.StatusLines(q),
			})
		}
	}
	return sections, nil
}

// StatusLines decides which status lines a single queue shows.
func (v *BuilderQueueView) StatusLines(q *buildbot.Queue) []StatusLine {
	if q.Buildbot != nil && q.Buildbot.NeedsAuthentication && !q.Buildbot.IsAuthenticated {
		return []StatusLine{v.base.UnauthorizedLine(q)}
	}

	var lines []StatusLine
	if line, ok := v.base.PendingRevisionCountLine(q); ok {
		lines = append(lines, line)
	}

	firstUnsuccessful := q.FirstRecentUnsuccessfulIteration()
	lastFinished := q.MostRecentFinishedIteration()
	lastSuccessful := q.MostRecentSuccessfulIteration()

	if firstUnsuccessful != nil && firstUnsuccessful.Loaded && lastFinished != nil && lastFinished.Loaded {
		lines = append(lines, v.failureLine(q, lastFinished, lastSuccessful))
	}

	label := labelLatest
	if firstUnsuccessful != nil {
		label = labelLastSuccessful
	}
	if lastSuccessful != nil && lastSuccessful.Loaded {
		lines = append(lines, StatusLine{
			Kind:    KindSuccess,
			Message: v.base.RevisionContentForIteration(lastSuccessful, nil),
			Status:  StatusGood,
			Label:   label,
			URL:     q.Buildbot.BuildPageURLForIteration(lastSuccessful),
		})
		return lines
	}

	lines = append(lines, StatusLine{
		Kind:    KindUnknown,
		Message: "unknown",
		Status:  StatusNeutral,
		Label:   label,
	})
	if firstUnsuccessful != nil {
		// The last success may be older than the loaded window.
		q.LoadMoreHistoricalIterations()
	}
	return lines
}

func (v *BuilderQueueView) failureLine(q *buildbot.Queue, lastFinished, lastSuccessful *buildbot.Iteration) StatusLine {
	if lastFinished.Successful {
		v.violations.Add(1)
		v.opts.Logger.Error("invariant violated: most recent finished iteration is successful during a failure streak",
			slog.String("queue", q.ID),
			slog.String("iteration", lastFinished.ID))
	}

	var previous *buildbot.Iteration
	if lastFinished.Productive {
		previous = lastSuccessful
	}
	line := StatusLine{
		Kind:    KindFailure,
		Message: v.base.RevisionContentForIteration(lastFinished, previous),
		Status:  StatusDanger,
		Label:   lastFinished.Text,
	}

	if lastFinished.Failed {
		line.Status = StatusBad
		for _, name := range preferredFailureLogs {
			if u := lastFinished.FailureLogURL(name); u != "" {
				line.URL = u
				break
			}
		}
	}

	// A direct log link gets a popover since there are usually several logs
	// to choose from.
	if line.URL != "" {
		line.NeedsPopover = true
		line.Popover = &PopoverRef{QueueID: q.ID, IterationID: lastFinished.ID}
		line.PopoverIteration = lastFinished
	} else {
		line.URL = q.Buildbot.BuildPageURLForIteration(lastFinished)
	}
	return line
}

// InvariantViolations reports how many assertion failures renders hit.
func (v *BuilderQueueView) InvariantViolations() int64 {
	return v.violations.Load()
}

func (v *BuilderQueueView) FailureLogsPopover(q *buildbot.Queue, it *buildbot.Iteration) Popover {
	p := AssembleFailureLogs(it)
	p.Iteration = v.base.IterationHeading(q, it)
	return p
}
