package server

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/izzyreal/bbdash/internal/config"
)

var (
	errUnauthorized  = errors.New("buildmaster requires authentication")
	errNoFailureLogs = errors.New("iteration did not fail")
)

// viewerFromRequest resolves which buildmasters the request's basic-auth
// credentials unlock.
func (d *dashboard) viewerFromRequest(r *http.Request) viewer {
	v := viewer{authenticated: map[string]bool{}}
	user, pass, ok := r.BasicAuth()
	if !ok {
		return v
	}
	for _, m := range d.cfg.Buildmasters {
		if !m.NeedsAuthentication || m.Auth == nil {
			continue
		}
		want := m.Auth.Password()
		if want == "" {
			continue
		}
		if secureEqual(user, m.Auth.Username) && secureEqual(pass, want) {
			v.authenticated[m.ID] = true
		}
	}
	return v
}

func (d *dashboard) needsAuthentication() bool {
	for _, m := range d.cfg.Buildmasters {
		if m.NeedsAuthentication {
			return true
		}
	}
	return false
}

func (d *dashboard) loginHandler(w http.ResponseWriter, r *http.Request) {
	if !d.needsAuthentication() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if len(d.viewerFromRequest(r).authenticated) == 0 {
		w.Header().Set("WWW-Authenticate", `Basic realm="bbdash", charset="UTF-8"`)
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// reporterAuthorized checks the optional BBDASH_REPORT_TOKEN bearer token
// on ingest requests.
func reporterAuthorized(r *http.Request) bool {
	want := reportToken()
	if want == "" {
		return true
	}
	got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return ok && secureEqual(strings.TrimSpace(got), want)
}

func reportToken() string {
	return strings.TrimSpace(os.Getenv("BBDASH_REPORT_TOKEN"))
}

// historyRequestAllowed gates load-more requests. With a report token set
// only its bearer may widen windows; otherwise viewers need the same access
// a render of the buildmaster would.
func (d *dashboard) historyRequestAllowed(r *http.Request, m config.Buildmaster) bool {
	if reportToken() != "" {
		return reporterAuthorized(r)
	}
	if !m.NeedsAuthentication {
		return true
	}
	return d.viewerFromRequest(r).authenticated[m.ID]
}

func secureEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
