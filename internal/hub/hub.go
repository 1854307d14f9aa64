package hub

import (
	"sync"
	"time"

	"github.com/kastent/kastentd/internal/metrics"
	"github.com/kastent/kastentd/internal/tent"
)

// Server-pushed and client-sent event types.
const (
	EventJoinRoom       = "joinRoom"
	EventPresenceUpdate = "presenceUpdate"
	EventMemberJoined   = "memberJoined"
	EventChatMessage    = "chatMessage"
	EventStatusUpdate   = "statusUpdate"
	EventSessionChanged = "sessionChanged"
)

// Event is the single wire shape for everything pushed to room members.
type Event struct {
	Type      string     `json:"type"`
	TentID    string     `json:"tentId,omitempty"`
	Sender    string     `json:"sender,omitempty"`
	Message   string     `json:"message,omitempty"`
	Status    string     `json:"status,omitempty"`
	Presence  int        `json:"presence,omitempty"`
	Tent      *tent.Tent `json:"tent,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// Hub routes events to the connections currently joined to each tent's
// room. Delivery is fire-and-forget: a member whose send buffer is full
// misses the event rather than blocking the fan-out.
type Hub struct {
	mu      sync.Mutex
	rooms   map[string]map[*Client]bool
	members map[*Client]map[string]bool
	now     func() time.Time
}

func New() *Hub {
	return &Hub{
		rooms:   make(map[string]map[*Client]bool),
		members: make(map[*Client]map[string]bool),
		now:     time.Now,
	}
}

// JoinRoom adds c to the tent's room and announces the new presence count
// and the joiner to every member, the joiner included.
func (h *Hub) JoinRoom(c *Client, tentID string) {
	h.mu.Lock()
	room, ok := h.rooms[tentID]
	if !ok {
		room = make(map[*Client]bool)
		h.rooms[tentID] = room
	}
	room[c] = true
	if h.members[c] == nil {
		h.members[c] = make(map[string]bool)
	}
	h.members[c][tentID] = true
	targets := snapshot(room)
	count := len(room)
	h.mu.Unlock()

	h.emit(targets, Event{Type: EventPresenceUpdate, TentID: tentID, Presence: count})
	h.emit(targets, Event{Type: EventMemberJoined, TentID: tentID, Sender: c.ID})
}

// RelayChat fans a chat line out to the room. No persistence, no ack.
func (h *Hub) RelayChat(tentID, sender, message string) {
	h.emit(h.roomSnapshot(tentID), Event{
		Type:    EventChatMessage,
		TentID:  tentID,
		Sender:  sender,
		Message: message,
	})
}

// RelayStatus fans an advisory status line out to the room. Independent of
// the persisted tent status.
func (h *Hub) RelayStatus(tentID, sender, status string) {
	h.emit(h.roomSnapshot(tentID), Event{
		Type:   EventStatusUpdate,
		TentID: tentID,
		Sender: sender,
		Status: status,
	})
}

// SessionChanged pushes the full updated record to the tent's room. It
// implements tent.Broadcaster.
func (h *Hub) SessionChanged(t *tent.Tent) {
	h.emit(h.roomSnapshot(t.ID), Event{
		Type:   EventSessionChanged,
		TentID: t.ID,
		Tent:   t,
	})
}

// Leave removes c from every room it joined and re-announces the shrunken
// presence count to the remaining members.
func (h *Hub) Leave(c *Client) {
	h.mu.Lock()
	type update struct {
		targets []*Client
		tentID  string
		count   int
	}
	var updates []update
	for tentID := range h.members[c] {
		room := h.rooms[tentID]
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, tentID)
			continue
		}
		updates = append(updates, update{snapshot(room), tentID, len(room)})
	}
	delete(h.members, c)
	h.mu.Unlock()

	for _, u := range updates {
		h.emit(u.targets, Event{Type: EventPresenceUpdate, TentID: u.tentID, Presence: u.count})
	}
}

func (h *Hub) roomSnapshot(tentID string) []*Client {
	h.mu.Lock()
	defer h.mu.Unlock()
	return snapshot(h.rooms[tentID])
}

func snapshot(room map[*Client]bool) []*Client {
	out := make([]*Client, 0, len(room))
	for c := range room {
		out = append(out, c)
	}
	return out
}

func (h *Hub) emit(targets []*Client, ev Event) {
	if len(targets) == 0 {
		return
	}
	ev.Timestamp = h.now()
	metrics.BroadcastEvents.WithLabelValues(ev.Type).Inc()
	for _, c := range targets {
		select {
		case c.send <- ev:
		default:
			// slow consumer, drop
		}
	}
}
