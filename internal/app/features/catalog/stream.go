package catalog

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dalemusser/tasktracker/internal/app/system/auth"
	"github.com/dalemusser/tasktracker/internal/app/system/catalogsync"
	"go.uber.org/zap"
)

// StreamTask is one catalog entry as sent to the browser.
type StreamTask struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// StreamEvent is the data of a "catalog" server-sent event.
type StreamEvent struct {
	Seq   uint64       `json:"seq"`
	Tasks []StreamTask `json:"tasks"`
}

// NewStreamEvent converts a snapshot for the wire.
func NewStreamEvent(s catalogsync.Snapshot) StreamEvent {
	ev := StreamEvent{Seq: s.Seq, Tasks: make([]StreamTask, 0, len(s.Tasks))}
	for _, t := range s.Tasks {
		ev.Tasks = append(ev.Tasks, StreamTask{ID: t.ID.Hex(), Title: t.Title})
	}
	return ev
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /catalog/stream                                                         |
| Server-sent events: one "catalog" event with the full list whenever it      |
| changes, starting with the current list.                                    |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	if _, ok := h.Hub.Last(); !ok {
		_ = h.Hub.Refresh(ctx)
	}

	id, snaps, cancel := h.Hub.Subscribe()
	defer cancel()

	var uid string
	if u, ok := auth.CurrentUser(r); ok {
		uid = u.ID
	}
	h.Log.Debug("catalog stream opened", zap.String("subscriber", id), zap.String("uid", uid))
	defer h.Log.Debug("catalog stream closed", zap.String("subscriber", id))

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	keepalive := h.Keepalive
	if keepalive <= 0 {
		keepalive = DefaultKeepalive
	}
	ticker := time.NewTicker(keepalive)
	defer ticker.Stop()

	var cache catalogsync.Cache
	sent := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case snap := <-snaps:
			change, applied := cache.Reconcile(snap)
			if !applied || (sent && change.Empty()) {
				continue
			}
			if sent {
				h.Log.Debug("catalog changed",
					zap.String("subscriber", id),
					zap.Uint64("seq", snap.Seq),
					zap.Int("added", len(change.Added)),
					zap.Int("removed", len(change.Removed)),
					zap.Int("changed", len(change.Changed)))
			}
			if err := writeEvent(w, NewStreamEvent(snap)); err != nil {
				h.Log.Debug("catalog stream write failed", zap.String("subscriber", id), zap.Error(err))
				return
			}
			flusher.Flush()
			sent = true
		}
	}
}

func writeEvent(w http.ResponseWriter, ev StreamEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: catalog\nid: %d\ndata: %s\n\n", ev.Seq, data)
	return err
}
