package server

import (
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/izzyreal/bbdash/internal/protocol"
	"github.com/izzyreal/bbdash/internal/queueview"
	"github.com/izzyreal/bbdash/internal/version"
)

var uiFuncs = template.FuncMap{
	"bubbleClass": func(s queueview.Status) string {
		return "bubble bubble-" + string(s)
	},
	"hasBubble": func(s queueview.Status) bool {
		return s != queueview.StatusNoBubble
	},
	"popoverURL": func(ref *queueview.PopoverRef) string {
		if ref == nil {
			return ""
		}
		return "/api/v1/queues/" + url.PathEscape(ref.QueueID) +
			"/iterations/" + url.PathEscape(ref.IterationID) + "/failure-logs"
	},
	"relTime": func(t time.Time) string {
		return humanize.Time(t)
	},
}

var indexTemplate = template.Must(template.New("index").Funcs(uiFuncs).Parse(indexHTML))

type indexPage struct {
	protocol.DashboardResponse
	Version     string
	RenderedAt  time.Time
	RefreshSecs int
}

func (d *dashboard) uiHandler(w http.ResponseWriter, r *http.Request) {
	resp, err := d.render(r.Context(), d.viewerFromRequest(r))
	if err != nil {
		slog.Error("render dashboard page", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	page := indexPage{
		DashboardResponse: resp,
		Version:           version.Current(),
		RenderedAt:        d.now(),
		RefreshSecs:       int(watchIntervalFromEnv().Seconds()),
	}
	if page.RefreshSecs < 5 {
		page.RefreshSecs = 5
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := indexTemplate.Execute(w, page); err != nil {
		slog.Error("execute dashboard template", "error", err)
	}
}

const indexHTML = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="{{.RefreshSecs}}">
<title>{{.Title}}</title>
<style>
body { font-family: -apple-system, "Segoe UI", sans-serif; margin: 24px; color: #1f2328; background: #f6f8fa; }
h1 { font-size: 20px; margin: 0 0 4px; }
.meta { color: #656d76; font-size: 12px; margin-bottom: 16px; }
.platform { background: #fff; border: 1px solid #d0d7de; border-radius: 6px; padding: 12px 16px; margin-bottom: 12px; }
.platform h2 { font-size: 15px; margin: 0 0 8px; }
.section { display: flex; gap: 12px; padding: 4px 0; }
.section .label { width: 140px; flex-shrink: 0; font-weight: 600; }
.section ul { list-style: none; margin: 0; padding: 0; }
.section li { display: flex; align-items: center; gap: 6px; line-height: 22px; }
a { color: #0969da; text-decoration: none; }
a:hover { text-decoration: underline; }
.bubble { display: inline-block; width: 10px; height: 10px; border-radius: 50%; }
.bubble-good { background: #2da44e; }
.bubble-bad { background: #cf222e; }
.bubble-danger { background: #bf8700; }
.bubble-neutral { background: #8c959f; }
.bubble-unauthorized { background: #8250df; }
.label-text { color: #656d76; }
.perf { font-size: 12px; font-weight: normal; margin-left: 8px; }
.popover { display: none; position: absolute; background: #fff; border: 1px solid #d0d7de; border-radius: 6px; padding: 8px 12px; box-shadow: 0 4px 12px rgba(0,0,0,.12); z-index: 10; }
.popover h3 { font-size: 13px; margin: 0 0 6px; }
.popover ul { display: block; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<div class="meta">rendered {{relTime .RenderedAt}} · bbdash {{.Version}}</div>
{{range .Platforms}}
<div class="platform">
  <h2>{{.Platform}} <span class="label-text">({{.Buildmaster}})</span>
    {{with .PerformanceDashboardURL}}<a class="perf" href="{{.}}">performance</a>{{end}}</h2>
  {{range .Sections}}
  <div class="section">
    <div class="label"><a href="{{.OverviewURL}}">{{.Label}}</a></div>
    <ul>
    {{range .Lines}}
      <li>
        {{if hasBubble .Status}}<span class="{{bubbleClass .Status}}" title="{{.Status}}"></span>{{end}}
        {{if .Popover}}<a href="{{.URL}}" data-popover="{{popoverURL .Popover}}">{{.Message}}</a>
        {{else if .URL}}<a href="{{.URL}}">{{.Message}}</a>
        {{else}}{{.Message}}{{end}}
        {{if .Label}}<span class="label-text">{{.Label}}</span>{{end}}
      </li>
    {{end}}
    </ul>
  </div>
  {{else}}
  <div class="label-text">No builder queues.</div>
  {{end}}
</div>
{{else}}
<div class="platform">No buildmasters configured.</div>
{{end}}
<div id="popover" class="popover"></div>
<script>
(function () {
  const box = document.getElementById("popover");
  let hideTimer = null;
  function safeHref(raw) {
    const a = document.createElement("a");
    a.href = raw || "";
    return (a.protocol === "http:" || a.protocol === "https:") ? a.href : "";
  }
  function link(text, href) {
    const url = safeHref(href);
    const el = document.createElement(url ? "a" : "span");
    if (url) el.href = url;
    el.textContent = text || "";
    return el;
  }
  async function show(target) {
    clearTimeout(hideTimer);
    const res = await fetch(target.dataset.popover, {credentials: "same-origin"});
    if (!res.ok) return;
    const data = await res.json();
    const it = data.iteration || {};
    const head = document.createElement("h3");
    head.append(link(it.title, it.url), " " + (it.revision || "") + " " + (it.finished || ""));
    if (it.results_url) {
      head.append(" ", link("results", it.results_url));
    }
    const step = document.createElement("div");
    step.textContent = data.heading || "";
    const list = document.createElement("ul");
    for (const l of data.logs || []) {
      const li = document.createElement("li");
      li.append(link(l.display_name, l.url));
      list.append(li);
    }
    box.replaceChildren(head, step, list);
    const rect = target.getBoundingClientRect();
    box.style.left = (rect.left + window.scrollX) + "px";
    box.style.top = (rect.bottom + window.scrollY + 4) + "px";
    box.style.display = "block";
  }
  function hideSoon() {
    hideTimer = setTimeout(() => { box.style.display = "none"; }, 400);
  }
  document.querySelectorAll("a[data-popover]").forEach(el => {
    el.addEventListener("mouseenter", () => show(el));
    el.addEventListener("mouseleave", hideSoon);
  });
  box.addEventListener("mouseenter", () => clearTimeout(hideTimer));
  box.addEventListener("mouseleave", hideSoon);
})();
</script>
</body>
</html>
`
