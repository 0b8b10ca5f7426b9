package protocol

import "time"

type FailureLog struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// IterationReport is what a build reporter pushes for one build run.
// Reports are upserted by (queue_id, iteration_id).
type IterationReport struct {
	QueueID             string       `json:"queue_id"`
	IterationID         string       `json:"iteration_id"`
	Result              string       `json:"result"`
	Productive          *bool        `json:"productive,omitempty"`
	Text                string       `json:"text,omitempty"`
	FirstFailedStepName string       `json:"first_failed_step,omitempty"`
	FailureLogs         []FailureLog `json:"failure_logs,omitempty"`
	Revision            string       `json:"revision,omitempty"`
	OpenSourceRevision  string       `json:"open_source_revision,omitempty"`
	StartedUTC          time.Time    `json:"started_utc,omitempty"`
	FinishedUTC         time.Time    `json:"finished_utc,omitempty"`
}

type IterationReportResponse struct {
	Accepted bool   `json:"accepted"`
	Message  string `json:"message,omitempty"`
}

type PendingRevisionsRequest struct {
	Count int `json:"count"`
}
