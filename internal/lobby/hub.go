package lobby

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Message is one unit of delivery to an event-stream subscriber. Heartbeats
// carry no data and must not be interpreted as lobby state changes.
type Message struct {
	Heartbeat bool
	Data      []byte
}

// Subscriber is one live event-stream connection.
type Subscriber struct {
	ID   string
	Send chan Message
}

// Hub is the per-lobby subscriber registry. Broadcast performs non-blocking
// sends; a subscriber whose buffer is full is evicted rather than allowed to
// stall the others. There is no replay: a client that misses messages
// reconnects and re-reads the status snapshot.
type Hub struct {
	mu                sync.RWMutex
	lobbies           map[uuid.UUID]map[string]*Subscriber
	logger            *slog.Logger
	heartbeatInterval time.Duration
}

// NewHub creates an event hub with the standard 30s heartbeat cadence.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		lobbies:           make(map[uuid.UUID]map[string]*Subscriber),
		logger:            logger,
		heartbeatInterval: 30 * time.Second,
	}
}

// Subscribe registers a new subscriber for a lobby and returns it. The caller
// owns draining sub.Send until Unsubscribe.
func (h *Hub) Subscribe(lobbyID uuid.UUID) *Subscriber {
	sub := &Subscriber{
		ID:   uuid.New().String(),
		Send: make(chan Message, 16),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.lobbies[lobbyID] == nil {
		h.lobbies[lobbyID] = make(map[string]*Subscriber)
	}
	h.lobbies[lobbyID][sub.ID] = sub
	return sub
}

// Unsubscribe removes a subscriber. Idempotent.
func (h *Hub) Unsubscribe(lobbyID uuid.UUID, subID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(lobbyID, subID)
}

func (h *Hub) removeLocked(lobbyID uuid.UUID, subID string) {
	subs, ok := h.lobbies[lobbyID]
	if !ok {
		return
	}
	if sub, ok := subs[subID]; ok {
		close(sub.Send)
		delete(subs, subID)
	}
	if len(subs) == 0 {
		delete(h.lobbies, lobbyID)
	}
}

// Broadcast marshals event and delivers it to every subscriber of the lobby.
// Delivery order across concurrent broadcasts is the order Broadcast acquired
// the registry lock.
func (h *Hub) Broadcast(lobbyID uuid.UUID, event interface{}) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("marshal lobby event", "error", err, "lobbyId", lobbyID)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.sendLocked(lobbyID, Message{Data: payload})
}

func (h *Hub) sendLocked(lobbyID uuid.UUID, msg Message) {
	subs, ok := h.lobbies[lobbyID]
	if !ok {
		return
	}
	for id, sub := range subs {
		select {
		case sub.Send <- msg:
		default:
			// Slow reader: evict instead of blocking the lobby.
			h.logger.Warn("evicting slow subscriber", "lobbyId", lobbyID, "subscriberId", id)
			close(sub.Send)
			delete(subs, id)
		}
	}
	if len(subs) == 0 {
		delete(h.lobbies, lobbyID)
	}
}

// StartHeartbeats emits a heartbeat to every subscriber of every lobby on the
// hub's cadence until ctx is cancelled.
func (h *Hub) StartHeartbeats(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(h.heartbeatInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				h.heartbeatAll()
			}
		}
	}()
}

func (h *Hub) heartbeatAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for lobbyID := range h.lobbies {
		h.sendLocked(lobbyID, Message{Heartbeat: true})
	}
}

// SubscriberCount returns the number of live subscribers for a lobby.
func (h *Hub) SubscriberCount(lobbyID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.lobbies[lobbyID])
}
