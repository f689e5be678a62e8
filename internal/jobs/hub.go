package jobs

import (
	"sync"

	"go.uber.org/zap"

	"brand-catalog-service/internal/domain"
	"brand-catalog-service/internal/metrics"
)

const subscriberBuffer = 32

// Hub fans job changes out to the subscribers of the owning user.
type Hub struct {
	mu      sync.RWMutex
	subs    map[string]map[*Subscriber]struct{}
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// Subscriber receives the job changes of one user.
type Subscriber struct {
	userID string
	ch     chan domain.Job
}

// Events is closed when the subscriber is removed from the hub.
func (s *Subscriber) Events() <-chan domain.Job { return s.ch }

// NewHub creates an empty Hub.
func NewHub(logger *zap.Logger, m *metrics.Metrics) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{subs: map[string]map[*Subscriber]struct{}{}, logger: logger.Named("job_hub"), metrics: m}
}

// Subscribe registers a subscriber for userID's jobs.
func (h *Hub) Subscribe(userID string) *Subscriber {
	s := &Subscriber{userID: userID, ch: make(chan domain.Job, subscriberBuffer)}
	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = map[*Subscriber]struct{}{}
	}
	h.subs[userID][s] = struct{}{}
	h.mu.Unlock()
	h.metrics.StreamClientConnected()
	return s
}

// Unsubscribe removes s and closes its channel. Calling it twice is safe.
func (h *Hub) Unsubscribe(s *Subscriber) {
	h.mu.Lock()
	set := h.subs[s.userID]
	if _, ok := set[s]; !ok {
		h.mu.Unlock()
		return
	}
	delete(set, s)
	if len(set) == 0 {
		delete(h.subs, s.userID)
	}
	close(s.ch)
	h.mu.Unlock()
	h.metrics.StreamClientDisconnected()
}

// Publish delivers job to its owner's subscribers without blocking. A
// subscriber whose buffer is full misses the event.
func (h *Hub) Publish(job domain.Job) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs[job.UserID] {
		select {
		case s.ch <- job:
		default:
			h.logger.Warn("job event dropped for slow subscriber", zap.String("user_id", job.UserID), zap.String("job_id", job.ID))
		}
	}
}

// Subscribers returns the number of subscribers of userID.
func (h *Hub) Subscribers(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}
