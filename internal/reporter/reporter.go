// Package reporter implements the command line side of iteration ingest:
// build hooks call "bbdash report" with JSON report files, and
// "bbdash pending" to publish how far a queue lags behind.
package reporter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/izzyreal/bbdash/internal/protocol"
)

const defaultServerURL = "http://127.0.0.1:8112"

func newFlagSet(name string, serverURL, token *string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(serverURL, "server", envOrDefault("BBDASH_SERVER_URL", defaultServerURL), "bbdash server URL")
	fs.StringVar(token, "token", os.Getenv("BBDASH_REPORT_TOKEN"), "report bearer token")
	return fs
}

// Run sends every report found in the given files. A file holds a single
// report object or an array of reports.
func Run(ctx context.Context, args []string) error {
	var serverURL, token string
	fs := newFlagSet("report", &serverURL, &token)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("report requires at least one report file")
	}

	client := &Client{ServerURL: serverURL, Token: token}
	sent := 0
	for _, path := range fs.Args() {
		reports, err := LoadReports(path)
		if err != nil {
			return err
		}
		for _, r := range reports {
			if _, err := client.SendIteration(ctx, r); err != nil {
				return err
			}
			sent++
			slog.Info("iteration reported", "queue", r.QueueID, "iteration", r.IterationID, "result", r.Result)
		}
	}
	slog.Info("reports sent", "count", sent, "server", serverURL)
	return nil
}

// RunPending handles "pending QUEUE COUNT".
func RunPending(ctx context.Context, args []string) error {
	var serverURL, token string
	fs := newFlagSet("pending", &serverURL, &token)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return errors.New("pending requires QUEUE and COUNT")
	}
	queueID := strings.TrimSpace(fs.Arg(0))
	count, err := strconv.Atoi(fs.Arg(1))
	if err != nil || count < 0 {
		return fmt.Errorf("invalid pending count %q", fs.Arg(1))
	}

	client := &Client{ServerURL: serverURL, Token: token}
	if err := client.SetPendingRevisions(ctx, queueID, count); err != nil {
		return err
	}
	slog.Info("pending revisions set", "queue", queueID, "count", count)
	return nil
}

func LoadReports(path string) ([]protocol.IterationReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report file %q: %w", path, err)
	}
	reports, err := ParseReports(data)
	if err != nil {
		return nil, fmt.Errorf("parse report file %q: %w", path, err)
	}
	return reports, nil
}

func ParseReports(data []byte) ([]protocol.IterationReport, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty report")
	}

	var reports []protocol.IterationReport
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &reports); err != nil {
			return nil, err
		}
	} else {
		var r protocol.IterationReport
		if err := json.Unmarshal(trimmed, &r); err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}

	for i, r := range reports {
		if strings.TrimSpace(r.QueueID) == "" || strings.TrimSpace(r.IterationID) == "" {
			return nil, fmt.Errorf("report %d: queue_id and iteration_id are required", i)
		}
		if !protocol.IsValidResult(r.Result) {
			return nil, fmt.Errorf("report %d: unknown result %q", i, r.Result)
		}
	}
	return reports, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
