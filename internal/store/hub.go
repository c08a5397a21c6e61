package store

import (
	"context"
	"sync"

	"casaspese/internal/core"
)

// Hub fans change notifications out to expense watchers. Each
// notification carries the full current expense list of one household.
// Delivery is latest-wins: a slow subscriber only ever sees the most
// recent snapshot, never a backlog.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[int]chan []core.Expense
	next int
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[int]chan []core.Expense)}
}

// Subscribe registers a watcher for a household. The returned channel
// closes when ctx is cancelled. It is returned bidirectional so the
// caller can hand it to Seed; everyone else should expose it
// receive-only.
func (h *Hub) Subscribe(ctx context.Context, householdID string) chan []core.Expense {
	ch := make(chan []core.Expense, 1)

	h.mu.Lock()
	id := h.next
	h.next++
	if h.subs[householdID] == nil {
		h.subs[householdID] = make(map[int]chan []core.Expense)
	}
	h.subs[householdID][id] = ch
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs[householdID], id)
		if len(h.subs[householdID]) == 0 {
			delete(h.subs, householdID)
		}
		h.mu.Unlock()
		close(ch)
	}()

	return ch
}

// Publish pushes a fresh snapshot to every watcher of the household.
// Stale undelivered snapshots are replaced, not queued.
func (h *Hub) Publish(householdID string, expenses []core.Expense) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs[householdID] {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- expenses:
		default:
		}
	}
}

// Seed delivers an initial snapshot to a single subscriber without
// touching the household's other watchers. A snapshot already waiting
// on ch was published after the subscription and therefore wins; the
// seed is dropped. The hub lock serializes Seed against Publish so the
// two can never interleave their drain and send.
func (h *Hub) Seed(ch chan []core.Expense, expenses []core.Expense) {
	h.mu.Lock()
	defer h.mu.Unlock()
	select {
	case ch <- expenses:
	default:
	}
}

// Subscribers returns the number of active watchers for a household.
func (h *Hub) Subscribers(householdID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[householdID])
}
