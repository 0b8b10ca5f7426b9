package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/izzyreal/bbdash/internal/buildbot"
	"github.com/izzyreal/bbdash/internal/protocol"
)

// Iteration is a stored iteration report.
type Iteration struct {
	protocol.IterationReport
	Productive  bool
	ReportedUTC time.Time
}

const iterationColumns = `queue_id, iteration_id, result, productive, text, first_failed_step, failure_logs_json,
	revision, open_source_revision, started_utc, finished_utc, reported_utc`

// UpsertIteration stores a report, replacing an earlier report for the same
// queue and iteration id. Running iterations are reported again once they
// finish.
func (s *Store) UpsertIteration(ctx context.Context, r protocol.IterationReport) error {
	result := protocol.NormalizeResult(r.Result)
	if !protocol.IsValidResult(result) {
		return fmt.Errorf("upsert iteration %s/%s: unsupported result %q", r.QueueID, r.IterationID, r.Result)
	}
	productive := protocol.IsProductiveResult(result)
	if r.Productive != nil {
		productive = *r.Productive
	}
	logs := r.FailureLogs
	if logs == nil {
		logs = []protocol.FailureLog{}
	}
	logsJSON, err := json.Marshal(logs)
	if err != nil {
		return fmt.Errorf("encode failure logs: %w", err)
	}
	now := s.now().UTC()

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO iterations (queue_id, iteration_id, build_number, result, productive, text, first_failed_step, failure_logs_json,
			revision, open_source_revision, started_utc, finished_utc, reported_utc, reported_unix_nano)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(queue_id, iteration_id) DO UPDATE SET
			build_number=excluded.build_number,
			result=excluded.result,
			productive=excluded.productive,
			text=excluded.text,
			first_failed_step=excluded.first_failed_step,
			failure_logs_json=excluded.failure_logs_json,
			revision=excluded.revision,
			open_source_revision=excluded.open_source_revision,
			started_utc=excluded.started_utc,
			finished_utc=excluded.finished_utc,
			reported_utc=excluded.reported_utc,
			reported_unix_nano=excluded.reported_unix_nano
	`, r.QueueID, r.IterationID, buildNumber(r.IterationID), result, boolToInt(productive), r.Text, r.FirstFailedStepName, string(logsJSON),
		r.Revision, r.OpenSourceRevision, formatTime(r.StartedUTC), formatTime(r.FinishedUTC), now.Format(time.RFC3339Nano), now.UnixNano()); err != nil {
		return fmt.Errorf("upsert iteration: %w", err)
	}
	return nil
}

// ListIterations returns up to limit iterations of a queue, newest first.
func (s *Store) ListIterations(ctx context.Context, queueID string, limit int) ([]Iteration, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+iterationColumns+`
		FROM iterations
		WHERE queue_id = ?
		ORDER BY build_number DESC, reported_unix_nano DESC
		LIMIT ?
	`, queueID, limit)
	if err != nil {
		return nil, fmt.Errorf("list iterations: %w", err)
	}
	defer rows.Close()

	var out []Iteration
	for rows.Next() {
		it, err := scanIteration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan iteration: %w", err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate iterations: %w", err)
	}
	return out, nil
}

func (s *Store) GetIteration(ctx context.Context, queueID, iterationID string) (Iteration, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+iterationColumns+` FROM iterations WHERE queue_id = ? AND iteration_id = ?`, queueID, iterationID)
	it, err := scanIteration(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Iteration{}, fmt.Errorf("iteration %s/%s: %w", queueID, iterationID, ErrNotFound)
		}
		return Iteration{}, fmt.Errorf("get iteration: %w", err)
	}
	return it, nil
}

// PruneIterations keeps the newest keep iterations of a queue.
func (s *Store) PruneIterations(ctx context.Context, queueID string, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM iterations
		WHERE queue_id = ? AND iteration_id NOT IN (
			SELECT iteration_id FROM iterations
			WHERE queue_id = ?
			ORDER BY build_number DESC, reported_unix_nano DESC
			LIMIT ?
		)
	`, queueID, queueID, keep)
	if err != nil {
		return 0, fmt.Errorf("prune iterations: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func scanIteration(scanner interface{ Scan(dest ...any) error }) (Iteration, error) {
	var (
		it                           Iteration
		productive                   int
		text, firstFailedStep        sql.NullString
		logsJSON                     string
		revision, openSourceRevision sql.NullString
		startedUTC, finishedUTC      sql.NullString
		reportedUTC                  string
	)
	if err := scanner.Scan(
		&it.QueueID, &it.IterationID, &it.Result, &productive, &text, &firstFailedStep, &logsJSON,
		&revision, &openSourceRevision, &startedUTC, &finishedUTC, &reportedUTC,
	); err != nil {
		return Iteration{}, err
	}

	if err := json.Unmarshal([]byte(logsJSON), &it.FailureLogs); err != nil {
		return Iteration{}, fmt.Errorf("decode failure logs of %s/%s: %w", it.QueueID, it.IterationID, err)
	}
	it.Productive = productive != 0
	p := it.Productive
	it.IterationReport.Productive = &p
	it.Text = text.String
	it.FirstFailedStepName = firstFailedStep.String
	it.Revision = revision.String
	it.OpenSourceRevision = openSourceRevision.String
	it.StartedUTC = parseTime(startedUTC)
	it.FinishedUTC = parseTime(finishedUTC)
	if t, err := time.Parse(time.RFC3339Nano, reportedUTC); err == nil {
		it.ReportedUTC = t
	}
	return it, nil
}

// ToBuildbot converts a stored report into the dashboard's iteration model.
// Stored iterations are always loaded.
func (it Iteration) ToBuildbot() *buildbot.Iteration {
	out := &buildbot.Iteration{
		ID:                  it.IterationID,
		QueueID:             it.QueueID,
		Loaded:              true,
		Finished:            protocol.IsFinishedResult(it.Result),
		Successful:          protocol.IsSuccessfulResult(it.Result),
		Failed:              protocol.IsFailedResult(it.Result),
		Productive:          it.Productive,
		Text:                it.Text,
		FirstFailedStepName: it.FirstFailedStepName,
		Revision:            it.Revision,
		OpenSourceRevision:  it.OpenSourceRevision,
		StartedUTC:          it.StartedUTC,
		FinishedUTC:         it.FinishedUTC,
	}
	for _, l := range it.FailureLogs {
		out.FailureLogs = append(out.FailureLogs, buildbot.FailureLog{Name: l.Name, URL: l.URL})
	}
	return out
}

func buildNumber(iterationID string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(iterationID), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func formatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(v sql.NullString) time.Time {
	if !v.Valid || v.String == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, v.String)
	if err != nil {
		return time.Time{}
	}
	return t
}
