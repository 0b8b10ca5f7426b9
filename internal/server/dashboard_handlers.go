package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/izzyreal/bbdash/internal/protocol"
	"github.com/izzyreal/bbdash/internal/queueview"
	"github.com/izzyreal/bbdash/internal/store"
)

func (d *dashboard) dashboardHandler(w http.ResponseWriter, r *http.Request) {
	resp, err := d.render(r.Context(), d.viewerFromRequest(r))
	if err != nil {
		slog.Error("render dashboard", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (d *dashboard) failureLogsHandler(w http.ResponseWriter, r *http.Request) {
	queueID := chi.URLParam(r, "queueID")
	iterationID := chi.URLParam(r, "iterationID")

	popover, err := d.failureLogs(r.Context(), d.viewerFromRequest(r), queueID, iterationID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, failureLogsResponse(queueID, iterationID, popover))
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, "iteration not found", http.StatusNotFound)
	case errors.Is(err, errUnauthorized):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, errNoFailureLogs):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

type failureLogsJSON struct {
	QueueID     string `json:"queue_id"`
	IterationID string `json:"iteration_id"`
	queueview.Popover
}

func failureLogsResponse(queueID, iterationID string, p queueview.Popover) failureLogsJSON {
	if p.Logs == nil {
		p.Logs = []queueview.LogLink{}
	}
	return failureLogsJSON{QueueID: queueID, IterationID: iterationID, Popover: p}
}

func (d *dashboard) reportIterationHandler(w http.ResponseWriter, r *http.Request) {
	if !reporterAuthorized(r) {
		http.Error(w, "invalid report token", http.StatusUnauthorized)
		return
	}
	var report protocol.IterationReport
	if err := readJSON(r, &report); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	report.QueueID = strings.TrimSpace(report.QueueID)
	report.IterationID = strings.TrimSpace(report.IterationID)
	report.Result = protocol.NormalizeResult(report.Result)

	if report.QueueID == "" || report.IterationID == "" {
		http.Error(w, "queue_id and iteration_id are required", http.StatusBadRequest)
		return
	}
	if !protocol.IsValidResult(report.Result) {
		http.Error(w, "unknown result "+report.Result, http.StatusBadRequest)
		return
	}
	for i, l := range report.FailureLogs {
		if !isWebURL(l.URL) {
			http.Error(w, fmt.Sprintf("failure_logs[%d].url must be an absolute http or https URL", i), http.StatusBadRequest)
			return
		}
	}
	if _, _, ok := d.cfg.FindQueue(report.QueueID); !ok {
		http.Error(w, "queue not configured", http.StatusNotFound)
		return
	}

	ctx := r.Context()
	if err := d.db.UpsertIteration(ctx, report); err != nil {
		slog.Error("store iteration report", "queue", report.QueueID, "iteration", report.IterationID, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if pruned, err := d.db.PruneIterations(ctx, report.QueueID, d.cfg.HistoryMax()); err != nil {
		slog.Error("prune iterations", "queue", report.QueueID, "error", err)
	} else if pruned > 0 {
		slog.Info("pruned iterations", "queue", report.QueueID, "count", pruned)
	}
	slog.Info("iteration reported", "queue", report.QueueID, "iteration", report.IterationID, "result", report.Result)
	d.watchers.broadcast()

	writeJSON(w, http.StatusOK, protocol.IterationReportResponse{Accepted: true})
}

// isWebURL accepts the only links the popover will follow.
func isWebURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

func (d *dashboard) pendingRevisionsHandler(w http.ResponseWriter, r *http.Request) {
	if !reporterAuthorized(r) {
		http.Error(w, "invalid report token", http.StatusUnauthorized)
		return
	}
	queueID := chi.URLParam(r, "queueID")
	if _, _, ok := d.cfg.FindQueue(queueID); !ok {
		http.Error(w, "queue not configured", http.StatusNotFound)
		return
	}
	var req protocol.PendingRevisionsRequest
	if err := readJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Count < 0 {
		http.Error(w, "count must not be negative", http.StatusBadRequest)
		return
	}
	if err := d.db.SetPendingRevisions(r.Context(), queueID, req.Count); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	d.watchers.broadcast()
	writeJSON(w, http.StatusOK, protocol.IterationReportResponse{Accepted: true})
}

func (d *dashboard) loadMoreHandler(w http.ResponseWriter, r *http.Request) {
	queueID := chi.URLParam(r, "queueID")
	m, _, ok := d.cfg.FindQueue(queueID)
	if !ok {
		http.Error(w, "queue not configured", http.StatusNotFound)
		return
	}
	if !d.historyRequestAllowed(r, m) {
		http.Error(w, errUnauthorized.Error(), http.StatusUnauthorized)
		return
	}
	d.history.LoadMoreHistoricalIterations(queueID)
	writeJSON(w, http.StatusAccepted, protocol.IterationReportResponse{Accepted: true, Message: "history load requested"})
}
