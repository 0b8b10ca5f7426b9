package protocol

import "github.com/izzyreal/bbdash/internal/queueview"

type PlatformStatus struct {
	Platform    string `json:"platform"`
	Buildmaster string `json:"buildmaster"`
	// PerformanceDashboardURL links the buildmaster's performance charts.
	PerformanceDashboardURL string              `json:"performance_dashboard_url,omitempty"`
	Sections                []queueview.Section `json:"sections"`
}

type DashboardResponse struct {
	Title     string           `json:"title"`
	Platforms []PlatformStatus `json:"platforms"`
}

type ServerInfoResponse struct {
	Name       string `json:"name"`
	APIVersion int    `json:"api_version"`
	Version    string `json:"version"`
	Hostname   string `json:"hostname,omitempty"`
}
