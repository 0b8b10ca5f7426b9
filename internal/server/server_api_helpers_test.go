package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/izzyreal/bbdash/internal/config"
	"github.com/izzyreal/bbdash/internal/protocol"
	"github.com/izzyreal/bbdash/internal/queueview"
	"github.com/izzyreal/bbdash/internal/store"
)

const testAuthConfigYAML = `
version: 1
dashboard:
  title: Private builds
buildmasters:
  - id: private
    base_url: https://build.example.org/buildbot/
    needs_authentication: true
    auth:
      username: builder
      password_env: BBDASH_TEST_PRIVATE_PASSWORD
    queues:
      - id: private-x86_64
        architecture: x86_64
        builder: true
`

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestDashboard(t *testing.T, cfg config.File) (*dashboard, *httptest.Server) {
	t.Helper()

	db, err := store.Open(filepath.Join(t.TempDir(), "bbdash.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	d := newDashboard(cfg, db)
	d.now = func() time.Time { return testNow }

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go d.history.run(ctx)

	ts := httptest.NewServer(buildRouter(d))
	t.Cleanup(ts.Close)
	return d, ts
}

func mustParseConfig(t *testing.T, raw string) config.File {
	t.Helper()
	cfg, err := config.Parse([]byte(raw), "test.yaml")
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	return cfg
}

func mustJSONRequest(t *testing.T, client *http.Client, method, url string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request %s %s: %v", method, url, err)
	}
	return resp
}

func decodeJSONBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(b)
}

func postReport(t *testing.T, ts *httptest.Server, report protocol.IterationReport) {
	t.Helper()
	resp := mustJSONRequest(t, ts.Client(), http.MethodPost, ts.URL+"/api/v1/iterations", report)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("report iteration %s/%s: status %d body=%s", report.QueueID, report.IterationID, resp.StatusCode, readBody(t, resp))
	}
	_ = readBody(t, resp)
}

func getDashboard(t *testing.T, ts *httptest.Server) protocol.DashboardResponse {
	t.Helper()
	resp := mustJSONRequest(t, ts.Client(), http.MethodGet, ts.URL+"/api/v1/dashboard", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("dashboard: status %d body=%s", resp.StatusCode, readBody(t, resp))
	}
	var out protocol.DashboardResponse
	decodeJSONBody(t, resp, &out)
	return out
}

func findSection(t *testing.T, dash protocol.DashboardResponse, queueID string) queueview.Section {
	t.Helper()
	for _, p := range dash.Platforms {
		for _, s := range p.Sections {
			if s.QueueID == queueID {
				return s
			}
		}
	}
	t.Fatalf("no section for queue %q in %+v", queueID, dash)
	return queueview.Section{}
}
