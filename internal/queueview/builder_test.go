package queueview

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/izzyreal/bbdash/internal/buildbot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingLoader struct {
	calls int
}

func (l *countingLoader) LoadMoreHistoricalIterations(string) { l.calls++ }

var haiku = buildbot.New("haiku", buildbot.HaikuBaseURL)

func newQueue(id string, arch buildbot.Architecture, iterations ...*buildbot.Iteration) *buildbot.Queue {
	for _, it := range iterations {
		it.QueueID = id
	}
	return &buildbot.Queue{ID: id, Architecture: arch, Builder: true, Buildbot: haiku, Iterations: iterations}
}

func passed(id, rev string) *buildbot.Iteration {
	return &buildbot.Iteration{ID: id, Loaded: true, Finished: true, Successful: true, Productive: true, Revision: rev, Text: "build successful"}
}

func failedStep(id, rev string, logs ...buildbot.FailureLog) *buildbot.Iteration {
	return &buildbot.Iteration{
		ID: id, Loaded: true, Finished: true, Failed: true, Productive: true,
		Revision: rev, Text: "failed compile", FirstFailedStepName: "compile", FailureLogs: logs,
	}
}

func infraFailure(id, rev string) *buildbot.Iteration {
	return &buildbot.Iteration{ID: id, Loaded: true, Finished: true, Revision: rev, Text: "exception interrupted"}
}

func TestStatusLinesUnauthorizedShortCircuits(t *testing.T) {
	q := newQueue("haiku-master-x86_64", buildbot.ArchitectureX86_64, failedStep("2", "hrev2"), passed("1", "hrev1"))
	q.Buildbot = buildbot.New("private", "https://private.example/")
	q.Buildbot.NeedsAuthentication = true
	q.PendingRevisions = 4

	v := NewBuilderQueueView(nil, nil, []*buildbot.Queue{q}, Options{})
	lines := v.StatusLines(q)
	require.Len(t, lines, 1)
	assert.Equal(t, KindUnauthorized, lines[0].Kind)
	assert.Equal(t, StatusUnauthorized, lines[0].Status)
	assert.Equal(t, DefaultLoginURL, lines[0].URL)

	q.Buildbot = q.Buildbot.WithAuthentication(true)
	lines = v.StatusLines(q)
	require.NotEmpty(t, lines)
	assert.NotEqual(t, KindUnauthorized, lines[0].Kind)
}

func TestStatusLinesBuildStepFailureLinksLog(t *testing.T) {
	loader := &countingLoader{}
	q := newQueue("haiku-master-x86_64", buildbot.ArchitectureX86_64,
		failedStep("12", "hrev57012",
			buildbot.FailureLog{Name: "stdio", URL: "https://logs/stdio"},
			buildbot.FailureLog{Name: "build log", URL: "https://logs/build"}),
		passed("11", "hrev57010"),
	)
	q.History = loader

	v := NewBuilderQueueView(nil, nil, []*buildbot.Queue{q}, Options{})
	lines := v.StatusLines(q)
	require.Len(t, lines, 2)

	failure := lines[0]
	assert.Equal(t, KindFailure, failure.Kind)
	assert.Equal(t, StatusBad, failure.Status)
	assert.Equal(t, "https://logs/build", failure.URL)
	assert.True(t, failure.NeedsPopover)
	require.NotNil(t, failure.Popover)
	assert.Equal(t, PopoverRef{QueueID: q.ID, IterationID: "12"}, *failure.Popover)
	assert.Same(t, q.Iterations[0], failure.PopoverIteration)
	assert.Equal(t, "failed compile", failure.Label)
	assert.Equal(t, "hrev57010 – hrev57012", failure.Message)

	success := lines[1]
	assert.Equal(t, StatusGood, success.Status)
	assert.Equal(t, "last successful build", success.Label)
	assert.Equal(t, "hrev57010", success.Message)
	assert.Equal(t, haiku.BuildPageURLForIteration(q.Iterations[1]), success.URL)

	assert.Zero(t, loader.calls)
}

func TestStatusLinesFallsBackToStdio(t *testing.T) {
	q := newQueue("q", buildbot.ArchitectureX86,
		failedStep("3", "hrev3", buildbot.FailureLog{Name: "stdio", URL: "u-stdio"}),
		passed("2", "hrev2"))
	lines := NewBuilderQueueView(nil, nil, []*buildbot.Queue{q}, Options{}).StatusLines(q)
	require.Len(t, lines, 2)
	assert.Equal(t, "u-stdio", lines[0].URL)
	assert.True(t, lines[0].NeedsPopover)
}

func TestStatusLinesFailedWithoutLogsLinksBuildPage(t *testing.T) {
	q := newQueue("q", buildbot.ArchitectureX86, failedStep("3", "hrev3"), passed("2", "hrev2"))
	lines := NewBuilderQueueView(nil, nil, []*buildbot.Queue{q}, Options{}).StatusLines(q)
	require.Len(t, lines, 2)
	assert.Equal(t, StatusBad, lines[0].Status)
	assert.False(t, lines[0].NeedsPopover)
	assert.Nil(t, lines[0].Popover)
	assert.Equal(t, haiku.BuildPageURLForIteration(q.Iterations[0]), lines[0].URL)
}

func TestStatusLinesInfrastructureFailureIsDanger(t *testing.T) {
	it := infraFailure("8", "hrev8")
	q := newQueue("q", buildbot.ArchitectureX86GCC2, it, passed("7", "hrev7"))
	lines := NewBuilderQueueView(nil, nil, []*buildbot.Queue{q}, Options{}).StatusLines(q)
	require.Len(t, lines, 2)
	assert.Equal(t, StatusDanger, lines[0].Status)
	assert.False(t, lines[0].NeedsPopover)
	assert.Equal(t, haiku.BuildPageURLForIteration(it), lines[0].URL)
	// Unproductive iterations do not claim a revision range.
	assert.Equal(t, "hrev8", lines[0].Message)
}

func TestStatusLinesLatestBuildPassing(t *testing.T) {
	q := newQueue("q", buildbot.ArchitectureX86_64, passed("5", "hrev5"), passed("4", "hrev4"))
	lines := NewBuilderQueueView(nil, nil, []*buildbot.Queue{q}, Options{}).StatusLines(q)
	require.Len(t, lines, 1)
	assert.Equal(t, KindSuccess, lines[0].Kind)
	assert.Equal(t, StatusGood, lines[0].Status)
	assert.Equal(t, "latest build", lines[0].Label)
}

func TestStatusLinesUnknownTriggersHistoryLoadOnce(t *testing.T) {
	loader := &countingLoader{}
	q := newQueue("q", buildbot.ArchitectureX86_64, failedStep("2", "hrev2"), failedStep("1", "hrev1"))
	q.History = loader

	lines := NewBuilderQueueView(nil, nil, []*buildbot.Queue{q}, Options{}).StatusLines(q)
	require.Len(t, lines, 2)
	assert.Equal(t, KindFailure, lines[0].Kind)
	assert.Equal(t, KindUnknown, lines[1].Kind)
	assert.Equal(t, StatusNeutral, lines[1].Status)
	assert.Equal(t, "unknown", lines[1].Message)
	assert.Equal(t, "last successful build", lines[1].Label)
	assert.Equal(t, 1, loader.calls)
}

func TestStatusLinesEmptyHistoryIsUnknownWithoutLoad(t *testing.T) {
	loader := &countingLoader{}
	q := newQueue("q", buildbot.ArchitectureX86_64)
	q.History = loader
	lines := NewBuilderQueueView(nil, nil, []*buildbot.Queue{q}, Options{}).StatusLines(q)
	require.Len(t, lines, 1)
	assert.Equal(t, "latest build", lines[0].Label)
	assert.Zero(t, loader.calls)
}

func TestStatusLinesPendingRevisionCount(t *testing.T) {
	q := newQueue("q", buildbot.ArchitectureX86_64, passed("5", "hrev5"))
	q.PendingRevisions = 1204
	lines := NewBuilderQueueView(nil, nil, []*buildbot.Queue{q}, Options{}).StatusLines(q)
	require.Len(t, lines, 2)
	assert.Equal(t, KindPendingRevisions, lines[0].Kind)
	assert.Equal(t, "1,204 revisions behind", lines[0].Message)
	assert.Equal(t, StatusNoBubble, lines[0].Status)

	q.PendingRevisions = 1
	lines = NewBuilderQueueView(nil, nil, []*buildbot.Queue{q}, Options{}).StatusLines(q)
	assert.Equal(t, "1 revision behind", lines[0].Message)
}

func TestStatusLinesInvariantViolationIsReported(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	v := NewBuilderQueueView(nil, nil, nil, Options{Logger: logger})
	lastFinished := passed("9", "hrev9")
	q := newQueue("q", buildbot.ArchitectureX86_64, lastFinished)

	line := v.failureLine(q, lastFinished, lastFinished)
	assert.Equal(t, KindFailure, line.Kind)
	assert.EqualValues(t, 1, v.InvariantViolations())
	assert.Contains(t, buf.String(), "invariant violated")
	assert.Contains(t, buf.String(), "iteration=9")
}

func TestUpdateRendersSectionsInBucketOrder(t *testing.T) {
	release64 := newQueue("haiku-master-x86_64", buildbot.ArchitectureX86_64, passed("1", "hrev1"))
	releaseGCC2 := newQueue("haiku-master-x86_gcc2", buildbot.ArchitectureX86GCC2, passed("1", "hrev1"))
	debug32 := newQueue("haiku-debug-x86", buildbot.ArchitectureX86, passed("1", "hrev1"))
	debug32.Debug = true

	v := NewBuilderQueueView(nil, []*buildbot.Queue{debug32}, []*buildbot.Queue{releaseGCC2, release64}, Options{})
	sections, err := v.Update()
	require.NoError(t, err)
	require.Len(t, sections, 3)

	assert.Equal(t, "Release (x86_64)", sections[0].Label)
	assert.Equal(t, "haiku-master-x86_64", sections[0].QueueID)
	assert.Equal(t, haiku.OverviewURL("haiku-master-x86_64"), sections[0].OverviewURL)
	assert.Equal(t, "Release (x86_gcc2)", sections[1].Label)
	assert.Equal(t, "Debug", sections[2].Label)
	assert.Equal(t, "debug", sections[2].BuildType)
}

func TestUpdateUnknownArchitecturePolicy(t *testing.T) {
	odd := newQueue("haiku-master-riscv64", buildbot.Architecture("riscv64"), passed("1", "hrev1"))

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	sections, err := NewBuilderQueueView(nil, nil, []*buildbot.Queue{odd}, Options{Logger: logger}).Update()
	require.NoError(t, err)
	assert.Empty(t, sections)
	assert.Contains(t, buf.String(), "queue=haiku-master-riscv64")
	assert.Contains(t, buf.String(), "architecture=riscv64")

	_, err = NewBuilderQueueView(nil, nil, []*buildbot.Queue{odd}, Options{UnknownArchitectures: UnknownArchitectureError}).Update()
	assert.ErrorIs(t, err, ErrUnknownArchitecture)
}

func TestRefreshInvalidatesGrouping(t *testing.T) {
	a := newQueue("a", buildbot.ArchitectureX86_64)
	b := newQueue("b", buildbot.ArchitectureX86)
	v := NewBuilderQueueView(nil, nil, []*buildbot.Queue{a}, Options{})

	g, err := v.Grouping()
	require.NoError(t, err)
	assert.False(t, g.HasMultipleReleaseBuilds)

	v.Refresh(nil, []*buildbot.Queue{a, b})
	g, err = v.Grouping()
	require.NoError(t, err)
	assert.True(t, g.HasMultipleReleaseBuilds)
}

func TestFailureLogsPopover(t *testing.T) {
	finishedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	it := failedStep("12", "hrev57012",
		buildbot.FailureLog{Name: "stdio", URL: "u1"},
		buildbot.FailureLog{Name: "build log", URL: "u2"})
	it.FinishedUTC = finishedAt
	q := newQueue("haiku-master-x86_64", buildbot.ArchitectureX86_64, it)

	v := NewBuilderQueueView(nil, nil, []*buildbot.Queue{q}, Options{Now: func() time.Time { return finishedAt.Add(3 * time.Hour) }})
	p := v.FailureLogsPopover(q, it)
	assert.Equal(t, "compile failed", p.Heading)
	assert.Equal(t, []LogLink{{DisplayName: "stdio", URL: "u1"}, {DisplayName: "build log", URL: "u2"}}, p.Logs)
	assert.Equal(t, "Build #12", p.Iteration.Title)
	assert.Equal(t, "hrev57012", p.Iteration.Revision)
	assert.Equal(t, haiku.BuildPageURLForIteration(it), p.Iteration.URL)
	assert.Equal(t, "finished 3 hours ago", p.Iteration.Finished)
	assert.Empty(t, p.Iteration.ResultsURL, "no results directory without an open source revision")

	it.OpenSourceRevision = "57012"
	p = v.FailureLogsPopover(q, it)
	assert.Equal(t, "https://buildbot.haiku-os.org/results/haiku-master-x86_64/r57012%20%2812%29", p.Iteration.ResultsURL)

	// The assembler leaves the iteration untouched.
	assert.Len(t, it.FailureLogs, 2)
}
