// README: Topic-based event fan-out for order, branch, and dashboard subscribers.
package bus

import (
	"sync"

	"foodfast/internal/types"
)

// Topic names. Order- and branch-scoped topics carry the record id; the
// global topic reaches every connected dashboard.
const TopicGlobal = "global"

func OrderTopic(id types.ID) string  { return "order:" + string(id) }
func BranchTopic(id types.ID) string { return "branch:" + string(id) }

// Event kinds mirror the socket event names the dashboards listen for.
const (
	KindNewOrder       = "new_order"
	KindOrderUpdate    = "order_update"
	KindStatusUpdate   = "status_update"
	KindProgressUpdate = "progress_update"
	KindVehicleUpdate  = "vehicle_update"
	KindVehicleDeleted = "vehicle_deleted"
	KindAdminRefresh   = "admin_data_update"
)

type Event struct {
	Topic   string `json:"topic"`
	Kind    string `json:"kind"`
	Payload any    `json:"payload,omitempty"`
}

// Subscription receives events for one topic until Close is called. Events
// published while the buffer is full are dropped; delivery is at-most-once
// and only covers events published after the subscription exists.
type Subscription struct {
	C     chan Event
	topic string
	hub   *Hub
	once  sync.Once
}

func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
		close(s.C)
	})
}

// Hub is the in-process fan-out. Publish never blocks a caller on a slow
// subscriber.
type Hub struct {
	mu     sync.Mutex
	topics map[string]map[*Subscription]struct{}
}

const subscriptionBuffer = 16

func NewHub() *Hub {
	return &Hub{topics: make(map[string]map[*Subscription]struct{})}
}

func (h *Hub) Subscribe(topic string) *Subscription {
	sub := &Subscription{C: make(chan Event, subscriptionBuffer), topic: topic, hub: h}
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[*Subscription]struct{})
		h.topics[topic] = subs
	}
	subs[sub] = struct{}{}
	return sub
}

func (h *Hub) Publish(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.topics[e.Topic] {
		select {
		case sub.C <- e:
		default:
			// Subscriber is not keeping up; drop rather than block.
		}
	}
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.topics[s.topic]
	if !ok {
		return
	}
	delete(subs, s)
	if len(subs) == 0 {
		delete(h.topics, s.topic)
	}
}

// Subscribers returns the live subscription count for a topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.topics[topic])
}
