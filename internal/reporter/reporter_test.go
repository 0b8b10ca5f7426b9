package reporter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/izzyreal/bbdash/internal/protocol"
)

type fakeServer struct {
	mu      sync.Mutex
	reports []protocol.IterationReport
	pending map[string]int
	auth    []string
}

func newFakeServer(t *testing.T) (*fakeServer, *httptest.Server) {
	t.Helper()
	f := &fakeServer{pending: map[string]int{}}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/iterations", func(w http.ResponseWriter, r *http.Request) {
		var report protocol.IterationReport
		if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if report.QueueID == "unknown" {
			http.Error(w, "queue not configured", http.StatusNotFound)
			return
		}
		f.mu.Lock()
		f.reports = append(f.reports, report)
		f.auth = append(f.auth, r.Header.Get("Authorization"))
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(protocol.IterationReportResponse{Accepted: true})
	})
	mux.HandleFunc("POST /api/v1/queues/{queueID}/pending", func(w http.ResponseWriter, r *http.Request) {
		var req protocol.PendingRevisionsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.pending[r.PathValue("queueID")] = req.Count
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(protocol.IterationReportResponse{Accepted: true})
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return f, ts
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestParseReportsAcceptsObjectOrArray(t *testing.T) {
	one, err := ParseReports([]byte(`{"queue_id":"q","iteration_id":"1","result":"success"}`))
	if err != nil || len(one) != 1 {
		t.Fatalf("single report: %v %v", one, err)
	}
	many, err := ParseReports([]byte(`[
		{"queue_id":"q","iteration_id":"1","result":"success"},
		{"queue_id":"q","iteration_id":"2","result":"FAILURE","first_failed_step":"compile"}
	]`))
	if err != nil || len(many) != 2 {
		t.Fatalf("report array: %v %v", many, err)
	}
	if many[1].FirstFailedStepName != "compile" {
		t.Fatalf("expected first failed step to decode, got %q", many[1].FirstFailedStepName)
	}
}

func TestParseReportsRejectsInvalid(t *testing.T) {
	cases := []string{
		``,
		`{"queue_id":"q","result":"success"}`,
		`{"queue_id":"q","iteration_id":"1","result":"exploded"}`,
		`[{"queue_id":"q"`,
	}
	for _, raw := range cases {
		if _, err := ParseReports([]byte(raw)); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestRunSendsReportsWithToken(t *testing.T) {
	f, ts := newFakeServer(t)
	path := writeFile(t, "reports.json", `[
		{"queue_id":"haiku-master-x86","iteration_id":"1","result":"success","revision":"hrev1"},
		{"queue_id":"haiku-master-x86","iteration_id":"2","result":"failure","revision":"hrev2"}
	]`)

	if err := Run(context.Background(), []string{"-server", ts.URL + "/", "-token", "abc", path}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.reports) != 2 || f.reports[1].IterationID != "2" {
		t.Fatalf("unexpected reports %+v", f.reports)
	}
	if f.auth[0] != "Bearer abc" {
		t.Fatalf("expected bearer token, got %q", f.auth[0])
	}
}

func TestRunSurfacesServerRejection(t *testing.T) {
	_, ts := newFakeServer(t)
	path := writeFile(t, "report.json", `{"queue_id":"unknown","iteration_id":"1","result":"success"}`)

	err := Run(context.Background(), []string{"-server", ts.URL, path})
	if err == nil || !strings.Contains(err.Error(), "status=404") {
		t.Fatalf("expected 404 rejection, got %v", err)
	}
	if err := Run(context.Background(), []string{"-server", ts.URL}); err == nil {
		t.Fatalf("expected error without report files")
	}
}

func TestRunPending(t *testing.T) {
	f, ts := newFakeServer(t)
	if err := RunPending(context.Background(), []string{"-server", ts.URL, "haiku-master-x86_64", "12"}); err != nil {
		t.Fatalf("RunPending: %v", err)
	}
	f.mu.Lock()
	got := f.pending["haiku-master-x86_64"]
	f.mu.Unlock()
	if got != 12 {
		t.Fatalf("pending count: got %d want 12", got)
	}

	if err := RunPending(context.Background(), []string{"-server", ts.URL, "q", "-3"}); err == nil {
		t.Fatalf("expected error for negative count")
	}
	if err := RunPending(context.Background(), []string{"-server", ts.URL, "q"}); err == nil {
		t.Fatalf("expected error for missing count")
	}
}
