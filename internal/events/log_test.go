package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestLog_AppendOnly(t *testing.T) {
	log := NewLog(nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		log.Append(ctx, NewEntry(EventTypeIterationComplete, "c1", SeverityInfo, "pass"))
	}

	entries := log.Entries()
	if len(entries) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(entries))
	}

	// Entries() returns a snapshot; mutating it must not affect the log
	entries[0] = nil
	if log.Entries()[0] == nil {
		t.Error("Entries() snapshot is not isolated from the log")
	}
}

func TestLog_CategoryRouting(t *testing.T) {
	tests := []struct {
		eventType EventType
		want      Category
	}{
		{EventTypeImageSaved, CategoryImage},
		{EventTypeImageGenerating, CategoryImage},
		{EventTypeImageRejected, CategoryImage},
		{EventTypePhaseStarted, CategoryText},
		{EventTypePromptGenerated, CategoryText},
		{EventTypePolishNoImprovement, CategoryText},
		{EventTypeTimeout, CategoryText},
	}

	for _, tt := range tests {
		e := NewEntry(tt.eventType, "c1", SeverityInfo, "msg")
		if e.Category != tt.want {
			t.Errorf("category for %s = %s, want %s", tt.eventType, e.Category, tt.want)
		}
	}
}

func TestLog_Query(t *testing.T) {
	log := NewLog(nil)
	ctx := context.Background()

	log.Append(ctx, NewPhaseEntry(EventTypePhaseStarted, "c1", "sketch", SeverityInfo, "start", nil))
	log.Append(ctx, NewSlotEntry(EventTypeImageSaved, "c1", "sketch", 0, 1, SeverityInfo, "saved", nil))
	log.Append(ctx, NewSlotEntry(EventTypeImageSaved, "c1", "gameplay", 0, 1, SeverityInfo, "saved", nil))

	if got := len(log.Query(Filter{Type: EventTypeImageSaved})); got != 2 {
		t.Errorf("query by type: got %d entries, want 2", got)
	}
	if got := len(log.Query(Filter{Phase: "sketch"})); got != 2 {
		t.Errorf("query by phase: got %d entries, want 2", got)
	}
	if got := len(log.Query(Filter{Category: CategoryImage, Limit: 1})); got != 1 {
		t.Errorf("query with limit: got %d entries, want 1", got)
	}
	if got := log.Count(EventTypeImageSaved); got != 2 {
		t.Errorf("Count = %d, want 2", got)
	}
}

func TestLog_SubscribeFanout(t *testing.T) {
	log := NewLog(nil)
	ctx := context.Background()

	ch, cancel := cancelableSubscribe(t, log)
	defer cancel()

	var wg sync.WaitGroup
	var received []*LogEntry
	wg.Add(1)
	go func() {
		defer wg.Done()
		for e := range ch {
			received = append(received, e)
		}
	}()

	for i := 0; i < 3; i++ {
		log.Append(ctx, NewEntry(EventTypeIterationComplete, "c1", SeverityInfo, "pass"))
	}
	log.Close()
	wg.Wait()

	if len(received) != 3 {
		t.Errorf("subscriber received %d entries, want 3", len(received))
	}
}

func cancelableSubscribe(t *testing.T, log *Log) (<-chan *LogEntry, func()) {
	t.Helper()
	return log.Subscribe()
}

func TestLog_AppendDuringUnsubscribe(t *testing.T) {
	log := NewLog(nil)
	ctx := context.Background()

	// Concurrent appends against a churn of subscribe/cancel must never
	// send into a channel the cancel has already closed.
	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					log.Append(ctx, NewEntry(EventTypeIterationComplete, "c1", SeverityInfo, "pass"))
				}
			}
		}()
	}

	for i := 0; i < 5000; i++ {
		ch, cancel := log.Subscribe()
		select {
		case <-ch:
		default:
		}
		cancel()
	}
	close(stop)
	wg.Wait()
}

func TestLog_SlowSubscriberDoesNotBlock(t *testing.T) {
	log := NewLog(nil)
	ctx := context.Background()

	// Subscribe but never drain; appends beyond the buffer must not stall
	_, cancel := log.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer+50; i++ {
			log.Append(ctx, NewEntry(EventTypeIterationComplete, "c1", SeverityInfo, "pass"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Append blocked on a slow subscriber")
	}
}

func TestLog_CloseIdempotent(t *testing.T) {
	log := NewLog(nil)
	log.Close()
	log.Close() // must not panic

	// Subscribing after close yields a closed channel
	ch, cancel := log.Subscribe()
	defer cancel()
	if _, ok := <-ch; ok {
		t.Error("expected closed channel after Close")
	}
}

type failingStore struct{ calls int }

func (f *failingStore) StoreEntry(ctx context.Context, entry *LogEntry) error {
	f.calls++
	return errors.New("disk full")
}

func (f *failingStore) GetEntriesByCampaign(ctx context.Context, campaignID string) ([]*LogEntry, error) {
	return nil, nil
}

func (f *failingStore) GetRecentEntries(ctx context.Context, limit int) ([]*LogEntry, error) {
	return nil, nil
}

func TestLog_StoreFailureIsBestEffort(t *testing.T) {
	store := &failingStore{}
	log := NewLog(store)
	ctx := context.Background()

	log.Append(ctx, NewEntry(EventTypeError, "c1", SeverityError, "boom"))

	if store.calls != 1 {
		t.Errorf("store called %d times, want 1", store.calls)
	}
	// The in-memory log stays authoritative even when persistence fails
	if len(log.Entries()) != 1 {
		t.Errorf("expected 1 entry despite store failure, got %d", len(log.Entries()))
	}
}
