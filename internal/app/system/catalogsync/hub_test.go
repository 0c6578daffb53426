package catalogsync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/tasktracker/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fakeCatalog struct {
	mu    sync.Mutex
	tasks []models.AvailableTask
	err   error
}

func (f *fakeCatalog) load(context.Context) ([]models.AvailableTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]models.AvailableTask(nil), f.tasks...), nil
}

func (f *fakeCatalog) add(title string) models.AvailableTask {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := models.AvailableTask{ID: primitive.NewObjectID(), Title: title, CreatedAt: time.Now().UTC()}
	f.tasks = append(f.tasks, t)
	return t
}

type countingPublisher struct{ n int }

func (p *countingPublisher) Publish(context.Context) error {
	p.n++
	return nil
}

func TestHub_SubscribeReceivesRefresh(t *testing.T) {
	cat := &fakeCatalog{}
	cat.add("Clean Lobby")
	h := NewHub(cat.load, zap.NewNop())

	_, ch, cancel := h.Subscribe()
	defer cancel()

	if err := h.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	select {
	case s := <-ch:
		if s.Seq != 1 || len(s.Tasks) != 1 || s.Tasks[0].Title != "Clean Lobby" {
			t.Errorf("got %+v", s)
		}
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
	}
}

func TestHub_LateSubscriberGetsLastSnapshot(t *testing.T) {
	cat := &fakeCatalog{}
	cat.add("Water Plants")
	h := NewHub(cat.load, zap.NewNop())
	_ = h.Refresh(context.Background())

	_, ch, cancel := h.Subscribe()
	defer cancel()

	select {
	case s := <-ch:
		if s.Seq != 1 {
			t.Errorf("seq = %d, want 1", s.Seq)
		}
	default:
		t.Fatal("expected the last snapshot to be queued on subscribe")
	}
}

func TestHub_SlowSubscriberKeepsOnlyLatest(t *testing.T) {
	cat := &fakeCatalog{}
	h := NewHub(cat.load, zap.NewNop())
	_, ch, cancel := h.Subscribe()
	defer cancel()

	for i := 0; i < 5; i++ {
		cat.add("task")
		_ = h.Refresh(context.Background())
	}

	s := <-ch
	if s.Seq != 5 || len(s.Tasks) != 5 {
		t.Errorf("got seq %d with %d tasks, want the latest (5, 5)", s.Seq, len(s.Tasks))
	}
	select {
	case extra := <-ch:
		t.Errorf("unexpected extra snapshot %d", extra.Seq)
	default:
	}
}

func TestHub_LoadErrorKeepsPreviousSnapshot(t *testing.T) {
	cat := &fakeCatalog{}
	cat.add("A")
	h := NewHub(cat.load, zap.NewNop())
	_ = h.Refresh(context.Background())

	cat.err = errors.New("db down")
	if err := h.Refresh(context.Background()); err == nil {
		t.Fatal("expected Refresh to fail")
	}
	last, ok := h.Last()
	if !ok || last.Seq != 1 {
		t.Errorf("last = %+v (%v), want seq 1", last, ok)
	}
}

func TestHub_CancelUnsubscribes(t *testing.T) {
	h := NewHub((&fakeCatalog{}).load, zap.NewNop())
	_, _, cancel := h.Subscribe()
	if h.Subscribers() != 1 {
		t.Fatalf("subscribers = %d, want 1", h.Subscribers())
	}
	cancel()
	cancel()
	if h.Subscribers() != 0 {
		t.Errorf("subscribers = %d, want 0", h.Subscribers())
	}
}

func TestHub_NotifyPublishes(t *testing.T) {
	cat := &fakeCatalog{}
	h := NewHub(cat.load, zap.NewNop())
	pub := &countingPublisher{}
	h.SetPublisher(pub)

	h.Notify(context.Background())
	if pub.n != 1 {
		t.Errorf("published %d times, want 1", pub.n)
	}
	if _, ok := h.Last(); !ok {
		t.Error("Notify should refresh the local snapshot")
	}
}

func TestHub_OverlappingRefreshLatestReadWins(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var calls int
	var mu sync.Mutex

	load := func(context.Context) ([]models.AvailableTask, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			// The first read sees the catalog before the second write and is slow.
			close(started)
			<-release
			return []models.AvailableTask{{Title: "old"}}, nil
		}
		return []models.AvailableTask{{Title: "new"}}, nil
	}
	h := NewHub(load, zap.NewNop())
	_, ch, cancel := h.Subscribe()
	defer cancel()

	slow := make(chan error, 1)
	go func() { slow <- h.Refresh(context.Background()) }()
	<-started

	if err := h.Refresh(context.Background()); err != nil {
		t.Fatalf("second Refresh failed: %v", err)
	}
	close(release)
	if err := <-slow; err != nil {
		t.Fatalf("first Refresh failed: %v", err)
	}

	last, ok := h.Last()
	if !ok || last.Seq != 2 || len(last.Tasks) != 1 || last.Tasks[0].Title != "new" {
		t.Fatalf("last = %+v, want seq 2 with \"new\"", last)
	}

	s := <-ch
	if s.Tasks[0].Title != "new" {
		t.Errorf("subscriber got %q, want new", s.Tasks[0].Title)
	}
	select {
	case extra := <-ch:
		t.Errorf("unexpected stale snapshot seq %d %q", extra.Seq, extra.Tasks[0].Title)
	default:
	}
}

func TestHub_ConcurrentRefreshEndsOnHighestSeq(t *testing.T) {
	cat := &fakeCatalog{}
	h := NewHub(cat.load, zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.Refresh(context.Background())
		}()
	}
	wg.Wait()

	last, ok := h.Last()
	if !ok {
		t.Fatal("expected a snapshot")
	}
	if last.Seq != 8 {
		t.Errorf("seq = %d, want 8", last.Seq)
	}
}
