package notify

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"graindesk/internal/models"
	"graindesk/internal/repository"
)

const (
	TopicResale     = "resale"
	TopicSettlement = "settlement"
	TopicPrice      = "price"
)

// Event is one state transition the engine wants the outside world to hear
// about: a listing changing state, a bid settling, a price moving.
type Event struct {
	Topic    string
	Kind     string
	EntityID uint64
	Details  map[string]any
	At       time.Time
}

// Hub persists events as Notification rows and fans them out to in-process
// subscribers. Publishing never blocks: slow subscribers drop.
type Hub struct {
	mu   sync.RWMutex
	subs map[string][]chan Event

	repo   repository.Repository
	logger *zap.Logger

	dropped uint64
}

func NewHub(repo repository.Repository, logger *zap.Logger) *Hub {
	return &Hub{
		subs:   map[string][]chan Event{},
		repo:   repo,
		logger: logger,
	}
}

// Subscribe returns a channel receiving every published event on a topic.
func (h *Hub) Subscribe(topic string, buf int) <-chan Event {
	if buf <= 0 {
		buf = 16
	}
	ch := make(chan Event, buf)
	h.mu.Lock()
	h.subs[topic] = append(h.subs[topic], ch)
	h.mu.Unlock()
	return ch
}

// Publish records the event and fans it out. Persistence failures are logged
// and swallowed: notification delivery is best-effort by design of the
// consuming dispatchers, state transitions must not roll back over it.
func (h *Hub) Publish(ctx context.Context, ev Event) {
	if h == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	if h.repo != nil {
		raw, _ := json.Marshal(ev.Details)
		item := &models.Notification{
			Topic:     ev.Topic,
			Kind:      ev.Kind,
			EntityID:  ev.EntityID,
			Details:   datatypes.JSON(raw),
			CreatedAt: ev.At,
		}
		if err := h.repo.InsertNotification(ctx, item); err != nil && h.logger != nil {
			h.logger.Warn("notification persist failed",
				zap.String("topic", ev.Topic),
				zap.String("kind", ev.Kind),
				zap.Error(err),
			)
		}
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs[ev.Topic] {
		select {
		case ch <- ev:
		default:
			atomic.AddUint64(&h.dropped, 1)
		}
	}
}

// Dropped reports how many fanout deliveries were skipped on full buffers.
func (h *Hub) Dropped() uint64 {
	return atomic.LoadUint64(&h.dropped)
}
