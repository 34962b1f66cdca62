package hub

import (
	"context"
	"log"
	"sync"

	"github.com/zero-motorcycle-community/zero-log-parser/internal/model"
)

const subscriberBuffer = 1024

// Hub receives decoded entries and broadcasts them to all subscribers
// (dashboard websockets, the aggregator, renderers).
type Hub struct {
	input       <-chan model.Entry
	mu          sync.RWMutex
	subscribers []chan model.Entry
	dropped     int64
}

// New creates a Hub that reads from the given input channel.
func New(input <-chan model.Entry) *Hub {
	return &Hub{input: input}
}

// Subscribe returns a buffered channel that will receive every decoded
// entry. Multiple consumers can subscribe; each gets a copy.
func (h *Hub) Subscribe() <-chan model.Entry {
	ch := make(chan model.Entry, subscriberBuffer)
	h.mu.Lock()
	h.subscribers = append(h.subscribers, ch)
	h.mu.Unlock()
	return ch
}

// Dropped returns the total number of entries dropped due to slow consumers.
func (h *Hub) Dropped() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}

// Start begins reading from the input channel and broadcasting. Blocks until
// the context is cancelled or the input channel is closed.
func (h *Hub) Start(ctx context.Context) {
	defer h.closeAll()

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-h.input:
			if !ok {
				return
			}
			h.broadcast(e)
		}
	}
}

// broadcast sends an entry to all subscribers. If a subscriber's channel is
// full, the entry is dropped for that subscriber.
func (h *Hub) broadcast(e model.Entry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subscribers {
		select {
		case ch <- e:
		default:
			h.dropped++
			log.Printf("hub: dropped entry for slow consumer (total dropped: %d)", h.dropped)
		}
	}
}

// closeAll closes all subscriber channels.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subscribers {
		close(ch)
	}
	h.subscribers = nil
}
