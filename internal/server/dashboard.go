package server

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/izzyreal/bbdash/internal/buildbot"
	"github.com/izzyreal/bbdash/internal/config"
	"github.com/izzyreal/bbdash/internal/protocol"
	"github.com/izzyreal/bbdash/internal/queueview"
	"github.com/izzyreal/bbdash/internal/store"
)

type dashboard struct {
	cfg      config.File
	db       *store.Store
	masters  map[string]*buildbot.Buildbot
	history  *historyLoader
	watchers *notifier
	now      func() time.Time
}

func newDashboard(cfg config.File, db *store.Store) *dashboard {
	d := &dashboard{
		cfg:      cfg,
		db:       db,
		masters:  make(map[string]*buildbot.Buildbot, len(cfg.Buildmasters)),
		watchers: newNotifier(),
		now:      time.Now,
	}
	d.history = newHistoryLoader(db, cfg.HistoryWindow(), cfg.HistoryMax(), d.watchers.broadcast)
	for _, m := range cfg.Buildmasters {
		b := buildbot.New(m.ID, m.BaseURL)
		if strings.TrimSpace(m.PerformanceDashboardURL) != "" {
			b.PerformanceDashboardURL = m.PerformanceDashboardURL
		}
		b.NeedsAuthentication = m.NeedsAuthentication
		d.masters[m.ID] = b
	}
	return d
}

// viewer carries per-request state that changes what a render shows.
type viewer struct {
	authenticated map[string]bool
}

func (d *dashboard) title() string {
	if t := strings.TrimSpace(d.cfg.Dashboard.Title); t != "" {
		return t
	}
	return "bbdash"
}

func (d *dashboard) viewOptions(m config.Buildmaster) queueview.Options {
	return queueview.Options{
		UnknownArchitectures: m.Policy(),
		LoginURL:             "/login",
		Logger:               slog.Default().With("buildmaster", m.ID),
		Now:                  d.now,
	}
}

// render builds the full dashboard from the current store contents.
func (d *dashboard) render(ctx context.Context, v viewer) (protocol.DashboardResponse, error) {
	resp := protocol.DashboardResponse{Title: d.title()}

	for _, m := range d.cfg.Buildmasters {
		master := d.masters[m.ID].WithAuthentication(v.authenticated[m.ID])

		byPlatform := map[string][2][]*buildbot.Queue{}
		var platforms []string
		for _, qc := range m.Queues {
			if !qc.Builder || m.Hidden(qc.ID) {
				continue
			}
			q, err := d.loadQueue(ctx, master, qc)
			if err != nil {
				return protocol.DashboardResponse{}, err
			}
			p := qc.PlatformName()
			lists, seen := byPlatform[p]
			if !seen {
				platforms = append(platforms, p)
			}
			if q.BuildType() == buildbot.BuildTypeDebug {
				lists[0] = append(lists[0], q)
			} else {
				lists[1] = append(lists[1], q)
			}
			byPlatform[p] = lists
		}

		for _, p := range platforms {
			lists := byPlatform[p]
			view := queueview.NewBuilderQueueView(nil, lists[0], lists[1], d.viewOptions(m))
			sections, err := view.Update()
			if err != nil {
				return protocol.DashboardResponse{}, fmt.Errorf("render buildmaster %q platform %q: %w", m.ID, p, err)
			}
			resp.Platforms = append(resp.Platforms, protocol.PlatformStatus{
				Platform:                p,
				Buildmaster:             m.ID,
				PerformanceDashboardURL: master.PerformanceDashboardURL,
				Sections:                sections,
			})
		}
	}
	return resp, nil
}

func (d *dashboard) loadQueue(ctx context.Context, master *buildbot.Buildbot, qc config.Queue) (*buildbot.Queue, error) {
	arch, _ := buildbot.ParseArchitecture(qc.Architecture)
	q := &buildbot.Queue{
		ID:           qc.ID,
		Title:        qc.Title,
		Platform:     qc.PlatformName(),
		Architecture: arch,
		Debug:        qc.Debug,
		Builder:      qc.Builder,
		Buildbot:     master,
		History:      d.history,
	}
	// Nothing is shown to viewers that may not see the queue.
	if master.NeedsAuthentication && !master.IsAuthenticated {
		return q, nil
	}

	stored, err := d.db.ListIterations(ctx, qc.ID, d.history.Window(ctx, qc.ID))
	if err != nil {
		return nil, err
	}
	for _, it := range stored {
		q.Iterations = append(q.Iterations, it.ToBuildbot())
	}
	pending, err := d.db.PendingRevisions(ctx, qc.ID)
	if err != nil {
		return nil, err
	}
	q.PendingRevisions = pending
	return q, nil
}

// failureLogs assembles the popover for one stored iteration.
func (d *dashboard) failureLogs(ctx context.Context, v viewer, queueID, iterationID string) (queueview.Popover, error) {
	m, qc, ok := d.cfg.FindQueue(queueID)
	if !ok {
		return queueview.Popover{}, fmt.Errorf("queue %q: %w", queueID, store.ErrNotFound)
	}
	master := d.masters[m.ID].WithAuthentication(v.authenticated[m.ID])
	if master.NeedsAuthentication && !master.IsAuthenticated {
		return queueview.Popover{}, errUnauthorized
	}

	stored, err := d.db.GetIteration(ctx, queueID, iterationID)
	if err != nil {
		return queueview.Popover{}, err
	}
	it := stored.ToBuildbot()
	if !it.Failed {
		return queueview.Popover{}, errNoFailureLogs
	}
	q := &buildbot.Queue{ID: qc.ID, Title: qc.Title, Buildbot: master, Iterations: []*buildbot.Iteration{it}}
	view := queueview.NewBuilderQueueView(nil, nil, nil, d.viewOptions(m))
	return view.FailureLogsPopover(q, it), nil
}
