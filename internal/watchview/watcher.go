package watchview

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/izzyreal/bbdash/internal/server/grpcapi"
)

type Phase string

const (
	PhaseDisconnected Phase = "disconnected"
	PhaseConnecting   Phase = "connecting"
	PhaseConnected    Phase = "connected"
	PhaseReconnecting Phase = "reconnecting"
)

// Update is one change a Watcher reports. Zero fields leave the matching
// State field alone.
type Update struct {
	Phase    Phase
	Status   string
	Err      string
	Snapshot *Snapshot
}

// State is what the desktop client draws, folded from Updates.
type State struct {
	Phase     Phase
	Status    string
	LastError string
	Snapshot  Snapshot
	Rows      []Row
}

func NewState() State {
	return State{Phase: PhaseDisconnected, Status: "Disconnected"}
}

// Apply folds u into s. A snapshot older than the one shown on the same
// stream is dropped, so queued updates never roll the dashboard back.
func (s *State) Apply(u Update) {
	if u.Phase != "" {
		s.Phase = u.Phase
	}
	if strings.TrimSpace(u.Status) != "" {
		s.Status = u.Status
	}
	if strings.TrimSpace(u.Err) != "" {
		s.LastError = u.Err
	}
	if u.Snapshot == nil {
		return
	}
	if u.Snapshot.StreamID != "" && u.Snapshot.StreamID == s.Snapshot.StreamID && u.Snapshot.Seq <= s.Snapshot.Seq {
		return
	}
	s.Snapshot = *u.Snapshot
	s.Rows = Rows(s.Snapshot.Dashboard)
	if !s.Snapshot.Compatible {
		s.LastError = fmt.Sprintf("server version %s is not compatible with this client", s.Snapshot.ServerVer)
	}
}

// Backoff doubles the reconnect delay from Min up to Max.
type Backoff struct {
	Min, Max time.Duration
	next     time.Duration
}

func (b *Backoff) Next() time.Duration {
	if b.Min <= 0 {
		b.Min = time.Second
	}
	if b.Max < b.Min {
		b.Max = b.Min
	}
	if b.next < b.Min {
		b.next = b.Min
	}
	d := b.next
	b.next = min(2*b.next, b.Max)
	return d
}

func (b *Backoff) Reset() {
	b.next = 0
}

// Watcher keeps a WatchDashboard stream open, reconnecting with backoff.
type Watcher struct {
	Addr        string
	Interval    time.Duration
	DialOptions []grpc.DialOption
	Backoff     Backoff
}

func NewWatcher(addr string) *Watcher {
	return &Watcher{
		Addr:     addr,
		Interval: 5 * time.Second,
		Backoff:  Backoff{Min: time.Second, Max: 10 * time.Second},
	}
}

// Run reports every connection change and snapshot to emit until ctx is
// done. emit is called from Run's goroutine.
func (w *Watcher) Run(ctx context.Context, emit func(Update)) {
	defer emit(Update{Phase: PhaseDisconnected, Status: "Disconnected"})

	opts := w.DialOptions
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	conn, err := grpc.NewClient(w.Addr, opts...)
	if err != nil {
		emit(Update{Err: fmt.Sprintf("invalid server address %q: %v", w.Addr, err)})
		return
	}
	defer conn.Close()
	client := grpcapi.NewDashboardServiceClient(conn)

	for attempt := 1; ctx.Err() == nil; attempt++ {
		if attempt == 1 {
			emit(Update{Phase: PhaseConnecting, Status: "Connecting to " + w.Addr})
		} else {
			emit(Update{Phase: PhaseReconnecting, Status: "Reconnecting to " + w.Addr})
		}

		status, err := w.stream(ctx, client, emit)
		if ctx.Err() != nil {
			return
		}
		emit(Update{Phase: PhaseReconnecting, Status: status, Err: err.Error()})
		if !sleepWithContext(ctx, w.Backoff.Next()) {
			return
		}
	}
}

// stream consumes one WatchDashboard call. It returns a short description
// of how the stream ended.
func (w *Watcher) stream(ctx context.Context, client grpcapi.DashboardServiceClient, emit func(Update)) (string, error) {
	req, err := structpb.NewStruct(map[string]any{"interval_ms": w.Interval.Milliseconds()})
	if err != nil {
		return "Bad watch request", err
	}
	stream, err := client.WatchDashboard(ctx, req)
	if err != nil {
		return "Stream start failed", err
	}

	connected := false
	for {
		evt, err := stream.Recv()
		if err != nil {
			return "Stream interrupted", err
		}
		if !connected {
			// The first event proves the server is actually there.
			connected = true
			w.Backoff.Reset()
			emit(Update{Phase: PhaseConnected, Status: "Connected to " + w.Addr})
		}
		snap, err := FromEvent(evt)
		if err != nil {
			emit(Update{Err: err.Error()})
			continue
		}
		emit(Update{Snapshot: &snap})
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
