package buildbot

// HistoryLoader widens the iteration window of a queue. Requests are
// fire-and-forget: the loader completes asynchronously and triggers its own
// re-render.
type HistoryLoader interface {
	LoadMoreHistoricalIterations(queueID string)
}

// Queue is a named build configuration tracked by a buildmaster.
type Queue struct {
	ID           string
	Title        string
	Platform     string
	Architecture Architecture
	Debug        bool
	Builder      bool

	Buildbot *Buildbot

	// Iterations are ordered newest first.
	Iterations       []*Iteration
	PendingRevisions int

	History HistoryLoader
}

func (q *Queue) BuildType() BuildType {
	if q.Debug {
		return BuildTypeDebug
	}
	return BuildTypeRelease
}

func (q *Queue) OverviewURL() string {
	return q.Buildbot.OverviewURL(q.ID)
}

func (q *Queue) MostRecentFinishedIteration() *Iteration {
	for _, it := range q.Iterations {
		if it.isFinished() {
			return it
		}
	}
	return nil
}

func (q *Queue) MostRecentSuccessfulIteration() *Iteration {
	for _, it := range q.Iterations {
		if it.isFinished() && it.Successful {
			return it
		}
	}
	return nil
}

// FirstRecentUnsuccessfulIteration returns the oldest iteration of the
// current failure streak: the one right after the most recent success. When
// the loaded window holds no success at all, the oldest loaded iteration is
// returned if it failed, since the streak may reach further back.
func (q *Queue) FirstRecentUnsuccessfulIteration() *Iteration {
	if len(q.Iterations) == 0 {
		return nil
	}
	for i, it := range q.Iterations {
		if !it.isFinished() || !it.Successful {
			continue
		}
		if i > 0 {
			prev := q.Iterations[i-1]
			if prev.isFinished() && !prev.Successful {
				return prev
			}
		}
		return nil
	}
	oldest := q.Iterations[len(q.Iterations)-1]
	if oldest.isFinished() && !oldest.Successful {
		return oldest
	}
	return nil
}

func (q *Queue) LoadMoreHistoricalIterations() {
	if q.History == nil {
		return
	}
	q.History.LoadMoreHistoricalIterations(q.ID)
}

func (q *Queue) Iteration(id string) *Iteration {
	for _, it := range q.Iterations {
		if it.ID == id {
			return it
		}
	}
	return nil
}
