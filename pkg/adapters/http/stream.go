package http

import (
	"log/slog"
	"sync"
)

// StreamManager handles active SSE connections.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // DocumentID -> Set of Channels
	logger      *slog.Logger
}

// NewStreamManager returns a StreamManager with no subscribers.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a buffered channel for docID. The returned function removes
// and closes it.
func (sm *StreamManager) Subscribe(docID string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[docID]; !ok {
		sm.subscribers[docID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[docID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[docID]; ok {
			if _, ok := subs[ch]; !ok {
				return
			}
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, docID)
			}
		}
	}
}

// Subscribers returns the number of open streams for docID.
func (sm *StreamManager) Subscribers(docID string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[docID])
}

// Broadcast sends msg to every stream of docID without blocking.
func (sm *StreamManager) Broadcast(docID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	sm.logger.Debug("StreamManager: Broadcasting", "document_id", docID, "payload_size", len(msg))

	for ch := range sm.subscribers[docID] {
		select {
		case ch <- msg:
		default:
			// Drop message if channel is full (slow client)
			sm.logger.Warn("SSE: Client buffer full, dropping message", "document_id", docID)
		}
	}
}
