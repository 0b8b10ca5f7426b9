package queueview

import "github.com/izzyreal/bbdash/internal/buildbot"

type LogLink struct {
	DisplayName string `json:"display_name"`
	URL         string `json:"url"`
}

type Popover struct {
	Iteration IterationHeading `json:"iteration"`
	Heading   string           `json:"heading"`
	Logs      []LogLink        `json:"logs"`
}

// AssembleFailureLogs lists a failed iteration's logs in recorded order
// under a "<step> failed" heading. The iteration heading is left for the
// caller, which knows the queue.
func AssembleFailureLogs(it *buildbot.Iteration) Popover {
	p := Popover{
		Heading: it.FirstFailedStepName + " failed",
		Logs:    make([]LogLink, 0, len(it.FailureLogs)),
	}
	for _, l := range it.FailureLogs {
		p.Logs = append(p.Logs, LogLink{DisplayName: l.Name, URL: l.URL})
	}
	return p
}
