package buildbot

import (
	"time"
)

// FailureLog is one named log attached to a failed iteration, in the order
// the reporter recorded it.
type FailureLog struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Iteration is one executed build run of a queue.
type Iteration struct {
	ID      string
	QueueID string

	Loaded     bool
	Finished   bool
	Successful bool
	Failed     bool
	Productive bool

	Text                string
	FirstFailedStepName string
	FailureLogs         []FailureLog

	Revision           string
	OpenSourceRevision string

	StartedUTC  time.Time
	FinishedUTC time.Time
}

// FailureLogURL returns the URL of the first failure log with the given
// name, or "" when the iteration has no such log.
func (it *Iteration) FailureLogURL(name string) string {
	if it == nil {
		return ""
	}
	for _, l := range it.FailureLogs {
		if l.Name == name {
			return l.URL
		}
	}
	return ""
}

func (it *Iteration) isFinished() bool {
	return it != nil && it.Loaded && it.Finished
}
