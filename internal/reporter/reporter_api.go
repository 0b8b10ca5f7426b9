package reporter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/izzyreal/bbdash/internal/protocol"
)

// Client pushes iteration reports to a bbdash server.
type Client struct {
	ServerURL string
	Token     string
	HTTP      *http.Client
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

func (c *Client) SendIteration(ctx context.Context, report protocol.IterationReport) (protocol.IterationReportResponse, error) {
	var out protocol.IterationReportResponse
	if err := c.post(ctx, "/api/v1/iterations", report, http.StatusOK, &out); err != nil {
		return protocol.IterationReportResponse{}, fmt.Errorf("report iteration %s/%s: %w", report.QueueID, report.IterationID, err)
	}
	return out, nil
}

func (c *Client) SetPendingRevisions(ctx context.Context, queueID string, count int) error {
	path := "/api/v1/queues/" + url.PathEscape(queueID) + "/pending"
	if err := c.post(ctx, path, protocol.PendingRevisionsRequest{Count: count}, http.StatusOK, nil); err != nil {
		return fmt.Errorf("set pending revisions for %s: %w", queueID, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, payload any, wantStatus int, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.ServerURL, "/")+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		return fmt.Errorf("rejected: status=%d body=%s", resp.StatusCode, bytes.TrimSpace(respBody))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
