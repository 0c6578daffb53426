// Package catalogsync keeps open catalog views in step with the
// available_tasks collection.
//
// Every change triggers a full re-read of the catalog. The snapshot is
// stamped with a sequence number and fanned out to subscribers; a
// subscriber applies a snapshot only if it is newer than the last one it
// applied, so the latest snapshot always wins.
package catalogsync

import (
	"context"
	"sync"

	"github.com/dalemusser/tasktracker/internal/domain/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Snapshot is the whole catalog at one point in time.
type Snapshot struct {
	Seq   uint64
	Tasks []models.AvailableTask
}

// Loader reads the full catalog.
type Loader func(ctx context.Context) ([]models.AvailableTask, error)

// Publisher tells other instances that the catalog changed.
type Publisher interface {
	Publish(ctx context.Context) error
}

// Hub fans catalog snapshots out to subscribers.
type Hub struct {
	load Loader
	log  *zap.Logger

	mu   sync.Mutex
	seq  uint64
	last *Snapshot
	subs map[string]chan Snapshot
	pub  Publisher
}

// NewHub creates a hub that reads the catalog with load.
func NewHub(load Loader, logger *zap.Logger) *Hub {
	return &Hub{
		load: load,
		log:  logger,
		subs: make(map[string]chan Snapshot),
	}
}

// SetPublisher installs the cross-instance notifier used by Notify.
func (h *Hub) SetPublisher(p Publisher) {
	h.mu.Lock()
	h.pub = p
	h.mu.Unlock()
}

// Subscribe registers a subscriber. The returned channel holds at most one
// pending snapshot; if a newer one arrives before the subscriber reads,
// the older one is dropped. The last broadcast snapshot, if any, is
// delivered immediately. Call cancel to unsubscribe.
func (h *Hub) Subscribe() (id string, ch <-chan Snapshot, cancel func()) {
	id = uuid.NewString()
	c := make(chan Snapshot, 1)

	h.mu.Lock()
	h.subs[id] = c
	if h.last != nil {
		c <- *h.last
	}
	h.mu.Unlock()

	var once sync.Once
	return id, c, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Last returns the most recent snapshot and whether one exists.
func (h *Hub) Last() (Snapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.last == nil {
		return Snapshot{}, false
	}
	return *h.last, true
}

// Refresh re-reads the catalog and broadcasts it. On a load error the
// previous snapshot stays in place and nothing is sent.
//
// The sequence number is reserved before the read starts. When reads
// overlap, a result that finishes after a later-started read has been
// published is discarded.
func (h *Hub) Refresh(ctx context.Context) error {
	h.mu.Lock()
	h.seq++
	ticket := h.seq
	h.mu.Unlock()

	tasks, err := h.load(ctx)
	if err != nil {
		h.log.Warn("catalog reload failed", zap.Error(err))
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.last != nil && h.last.Seq > ticket {
		h.log.Debug("discarding superseded catalog snapshot",
			zap.Uint64("seq", ticket), zap.Uint64("last_seq", h.last.Seq))
		return nil
	}
	snap := Snapshot{Seq: ticket, Tasks: tasks}
	h.last = &snap

	for _, c := range h.subs {
		offer(c, snap)
	}
	return nil
}

// Notify is called after a local catalog write: it refreshes this
// instance and tells the others.
func (h *Hub) Notify(ctx context.Context) {
	_ = h.Refresh(ctx)

	h.mu.Lock()
	pub := h.pub
	h.mu.Unlock()
	if pub != nil {
		if err := pub.Publish(ctx); err != nil {
			h.log.Warn("catalog change publish failed", zap.Error(err))
		}
	}
}

// offer delivers snap without blocking, replacing an unread older
// snapshot. Callers hold h.mu, so the hub is the only sender.
func offer(c chan Snapshot, snap Snapshot) {
	select {
	case c <- snap:
		return
	default:
	}
	select {
	case <-c:
	default:
	}
	select {
	case c <- snap:
	default:
	}
}
