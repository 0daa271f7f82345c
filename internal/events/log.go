package events

import (
	"context"
	"fmt"
	"os"
	"sync"
)

// subscriberBuffer is the per-subscriber channel capacity. Appends
// never block: a subscriber that falls this far behind loses entries.
const subscriberBuffer = 256

// Log is the append-only, in-memory event log for one campaign run.
// Appends come from the single orchestrator goroutine; reads and
// subscriptions may come from any goroutine.
type Log struct {
	mu      sync.RWMutex
	entries []*LogEntry
	subs    map[int]chan *LogEntry
	nextSub int
	closed  bool

	// store is an optional persistence sink for appended entries
	store EventStore
}

// NewLog creates an event log. store may be nil for in-memory only.
func NewLog(store EventStore) *Log {
	return &Log{
		subs:  make(map[int]chan *LogEntry),
		store: store,
	}
}

// Append records an entry, fans it out to subscribers, and forwards it
// to the persistence sink. It never blocks on a slow subscriber. The
// fan-out happens under the same lock that closes subscriber channels,
// so an append can never race a cancel into a closed channel.
func (l *Log) Append(ctx context.Context, entry *LogEntry) {
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	for _, ch := range l.subs {
		select {
		case ch <- entry:
		default:
			// Subscriber is full; drop rather than stall the campaign
		}
	}
	l.mu.Unlock()

	if l.store != nil {
		if err := l.store.StoreEntry(ctx, entry); err != nil {
			// Persistence is best-effort; the in-memory log stays authoritative
			fmt.Fprintf(os.Stderr, "warning: failed to persist event %s: %v\n", entry.Type, err)
		}
	}
}

// Entries returns a snapshot copy of all entries in append order.
func (l *Log) Entries() []*LogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Query returns entries matching the filter, in append order.
func (l *Log) Query(f Filter) []*LogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []*LogEntry
	for _, e := range l.entries {
		if f.Type != "" && e.Type != f.Type {
			continue
		}
		if f.Category != "" && e.Category != f.Category {
			continue
		}
		if f.Phase != "" && e.Phase != f.Phase {
			continue
		}
		out = append(out, e)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out
}

// Count returns the number of entries of the given type.
func (l *Log) Count(t EventType) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := 0
	for _, e := range l.entries {
		if e.Type == t {
			n++
		}
	}
	return n
}

// Subscribe registers a consumer for entries appended after this call.
// The returned cancel function must be called to release the channel.
func (l *Log) Subscribe() (<-chan *LogEntry, func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch := make(chan *LogEntry, subscriberBuffer)
	if l.closed {
		close(ch)
		return ch, func() {}
	}

	id := l.nextSub
	l.nextSub++
	l.subs[id] = ch

	cancel := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if sub, ok := l.subs[id]; ok {
			delete(l.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Close closes all subscriber channels. Entries remain queryable.
// Close is idempotent.
func (l *Log) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	for id, ch := range l.subs {
		delete(l.subs, id)
		close(ch)
	}
}
