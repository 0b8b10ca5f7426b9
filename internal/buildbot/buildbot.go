package buildbot

import (
	"net/url"
	"strings"
)

const (
	HaikuBaseURL                   = "https://buildbot.haiku-os.org/"
	DefaultPerformanceDashboardURL = "https://perf.webkit.org"
)

// Buildbot describes one buildmaster: where it lives and whether viewers
// must authenticate before its queue status is shown.
type Buildbot struct {
	ID                      string
	BaseURL                 string
	PerformanceDashboardURL string
	NeedsAuthentication     bool
	IsAuthenticated         bool
}

func New(id, baseURL string) *Buildbot {
	b := &Buildbot{
		ID:                      strings.TrimSpace(id),
		BaseURL:                 normalizeBaseURL(baseURL),
		PerformanceDashboardURL: DefaultPerformanceDashboardURL,
	}
	return b
}

// WithAuthentication returns a copy whose IsAuthenticated flag reflects the
// current viewer. The receiver is left untouched so per-request renders can
// share one configured buildmaster.
func (b *Buildbot) WithAuthentication(authenticated bool) *Buildbot {
	if b == nil {
		return nil
	}
	cp := *b
	cp.IsAuthenticated = authenticated
	return &cp
}

func (b *Buildbot) BuildPageURLForIteration(it *Iteration) string {
	if b == nil || it == nil {
		return ""
	}
	return b.BaseURL + "#/builders/" + url.PathEscape(it.QueueID) + "/builds/" + url.PathEscape(it.ID)
}

func (b *Buildbot) OverviewURL(queueID string) string {
	if b == nil {
		return ""
	}
	return b.BaseURL + "#/builders/" + url.PathEscape(queueID)
}

func (b *Buildbot) LayoutTestResultsDirectoryURLForIteration(it *Iteration) string {
	if b == nil || it == nil {
		return ""
	}
	return b.BaseURL + "results/" + url.PathEscape(it.QueueID) + "/" + url.PathEscape("r"+it.OpenSourceRevision+" ("+it.ID+")")
}

func normalizeBaseURL(raw string) string {
	v := strings.TrimSpace(raw)
	if v == "" {
		v = HaikuBaseURL
	}
	if !strings.HasSuffix(v, "/") {
		v += "/"
	}
	return v
}
