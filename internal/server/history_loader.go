package server

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"github.com/izzyreal/bbdash/internal/store"
)

const historyWindowStateKeyPrefix = "history_window:"

// historyLoader widens per-queue iteration windows in the background.
// Requests never block the render that issued them; when the request buffer
// is full the request is dropped and a later render will ask again.
type historyLoader struct {
	db       *store.Store
	step     int
	max      int
	onChange func()

	mu       sync.Mutex
	windows  map[string]int
	requests chan string
}

func newHistoryLoader(db *store.Store, step, max int, onChange func()) *historyLoader {
	if max < step {
		max = step
	}
	return &historyLoader{
		db:       db,
		step:     step,
		max:      max,
		onChange: onChange,
		windows:  make(map[string]int),
		requests: make(chan string, 64),
	}
}

func (l *historyLoader) LoadMoreHistoricalIterations(queueID string) {
	select {
	case l.requests <- queueID:
	default:
		slog.Warn("history load request dropped", "queue", queueID)
	}
}

// Window is the number of iterations currently loaded for a queue.
func (l *historyLoader) Window(ctx context.Context, queueID string) int {
	l.mu.Lock()
	w, ok := l.windows[queueID]
	l.mu.Unlock()
	if ok {
		return w
	}

	w = l.step
	if raw, found, err := l.db.GetAppState(ctx, historyWindowStateKeyPrefix+queueID); err == nil && found {
		if n, err := strconv.Atoi(raw); err == nil && n >= l.step && n <= l.max {
			w = n
		}
	}
	l.mu.Lock()
	if existing, ok := l.windows[queueID]; ok {
		w = existing
	} else {
		l.windows[queueID] = w
	}
	l.mu.Unlock()
	return w
}

func (l *historyLoader) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case queueID := <-l.requests:
			if l.widen(ctx, queueID) && l.onChange != nil {
				l.onChange()
			}
		}
	}
}

// widen grows a queue's window by one step when older iterations exist.
func (l *historyLoader) widen(ctx context.Context, queueID string) bool {
	current := l.Window(ctx, queueID)
	if current >= l.max {
		return false
	}
	older, err := l.db.ListIterations(ctx, queueID, current+1)
	if err != nil {
		slog.Error("load historical iterations", "queue", queueID, "error", err)
		return false
	}
	if len(older) <= current {
		return false
	}

	next := current + l.step
	if next > l.max {
		next = l.max
	}
	l.mu.Lock()
	l.windows[queueID] = next
	l.mu.Unlock()
	if err := l.db.SetAppState(ctx, historyWindowStateKeyPrefix+queueID, strconv.Itoa(next)); err != nil {
		slog.Error("persist history window", "queue", queueID, "error", err)
	}
	slog.Info("history window widened", "queue", queueID, "window", next)
	return true
}

// notifier fans out change signals to watch streams.
type notifier struct {
	mu   sync.Mutex
	subs map[chan struct{}]struct{}
}

func newNotifier() *notifier {
	return &notifier{subs: make(map[chan struct{}]struct{})}
}

func (n *notifier) subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	n.mu.Lock()
	n.subs[ch] = struct{}{}
	n.mu.Unlock()
	return ch, func() {
		n.mu.Lock()
		delete(n.subs, ch)
		n.mu.Unlock()
	}
}

func (n *notifier) broadcast() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for ch := range n.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
