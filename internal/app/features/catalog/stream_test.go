package catalog_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/tasktracker/internal/app/features/catalog"
	"github.com/dalemusser/tasktracker/internal/app/system/catalogsync"
	"github.com/dalemusser/tasktracker/internal/domain/models"
	"github.com/dalemusser/tasktracker/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type memCatalog struct {
	mu    sync.Mutex
	tasks []models.AvailableTask
}

func (m *memCatalog) load(context.Context) ([]models.AvailableTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.AvailableTask(nil), m.tasks...), nil
}

func (m *memCatalog) add(title string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = append(m.tasks, models.AvailableTask{ID: primitive.NewObjectID(), Title: title, CreatedAt: time.Now()})
}

// readEvent returns the data line of the next "catalog" event.
func readEvent(t *testing.T, br *bufio.Reader) catalog.StreamEvent {
	t.Helper()
	var name, data string
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && name != "":
			if name != "catalog" {
				t.Fatalf("event = %q, want catalog", name)
			}
			var ev catalog.StreamEvent
			if err := json.Unmarshal([]byte(data), &ev); err != nil {
				t.Fatalf("decode event %q: %v", data, err)
			}
			return ev
		}
	}
}

func TestServeStream_InitialAndChange(t *testing.T) {
	mem := &memCatalog{}
	mem.add("Clean Lobby")
	hub := catalogsync.NewHub(mem.load, zap.NewNop())
	h := &catalog.Handler{Log: zap.NewNop(), Hub: hub, Keepalive: time.Hour}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeStream(w, testutil.WithUser(r, testutil.RegularUser()))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, "GET", srv.URL, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	br := bufio.NewReader(resp.Body)

	first := readEvent(t, br)
	if len(first.Tasks) != 1 || first.Tasks[0].Title != "Clean Lobby" {
		t.Fatalf("first event = %+v", first)
	}

	// An unchanged reload is not pushed; the next event carries the addition.
	if err := hub.Refresh(ctx); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	mem.add("Water Plants")
	if err := hub.Refresh(ctx); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	second := readEvent(t, br)
	if len(second.Tasks) != 2 || second.Tasks[1].Title != "Water Plants" {
		t.Fatalf("second event = %+v", second)
	}
	if second.Seq <= first.Seq {
		t.Errorf("seq did not advance: %d then %d", first.Seq, second.Seq)
	}
}

func TestServeStream_UnsubscribesOnDisconnect(t *testing.T) {
	mem := &memCatalog{}
	hub := catalogsync.NewHub(mem.load, zap.NewNop())
	h := &catalog.Handler{Log: zap.NewNop(), Hub: hub, Keepalive: time.Hour}

	srv := httptest.NewServer(http.HandlerFunc(h.ServeStream))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	req, _ := http.NewRequestWithContext(ctx, "GET", srv.URL, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		cancel()
		t.Fatalf("connect: %v", err)
	}
	readEvent(t, bufio.NewReader(resp.Body))
	if n := hub.Subscribers(); n != 1 {
		t.Errorf("subscribers = %d, want 1", n)
	}

	cancel()
	resp.Body.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("subscriber not released, still %d", hub.Subscribers())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestStreamRoutes_RequiresSignIn(t *testing.T) {
	hub := catalogsync.NewHub((&memCatalog{}).load, zap.NewNop())
	h := &catalog.Handler{Log: zap.NewNop(), Hub: hub}
	router := catalog.StreamRoutes(h, testutil.NewSessionManager(t))

	req := httptest.NewRequest("GET", "/stream", nil)
	req.Header.Set("Accept", "text/event-stream")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}
