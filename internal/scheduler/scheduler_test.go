package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/MRegirouard/StreakCode/internal/model"
	"github.com/MRegirouard/StreakCode/internal/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeStore is an in-memory Store with optional hooks to observe and stall
// loads, for exercising the in-flight guard.
type fakeStore struct {
	mu      sync.Mutex
	tenants map[string]*model.Tenant

	loadStarted chan struct{}
	loadGate    chan struct{}
}

func newFakeStore(tenants ...*model.Tenant) *fakeStore {
	s := &fakeStore{tenants: map[string]*model.Tenant{}}
	for _, t := range tenants {
		s.tenants[t.ID] = t.Clone()
	}
	return s
}

func (s *fakeStore) LoadAll(ctx context.Context) ([]*model.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Tenant
	for _, t := range s.tenants {
		out = append(out, t.Clone())
	}
	return out, nil
}

func (s *fakeStore) Load(ctx context.Context, id string) (*model.Tenant, error) {
	s.mu.Lock()
	started := s.loadStarted
	gate := s.loadGate
	s.mu.Unlock()
	if started != nil {
		select {
		case started <- struct{}{}:
		default:
		}
	}
	if gate != nil {
		<-gate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	return t.Clone(), nil
}

func (s *fakeStore) Save(ctx context.Context, t *model.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.tenants[t.ID]
	if ok && cur.Revision != t.Revision {
		return fmt.Errorf("%w: %s", storage.ErrConflict, t.ID)
	}
	if !ok && t.Revision != 0 {
		return fmt.Errorf("%w: %s", storage.ErrConflict, t.ID)
	}
	next := t.Clone()
	next.Revision++
	s.tenants[t.ID] = next
	t.Revision = next.Revision
	return nil
}

func (s *fakeStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tenants, id)
	return nil
}

func (s *fakeStore) Close() error { return nil }

type recordSink struct {
	mu       sync.Mutex
	messages []string
	roles    []string
}

func (r *recordSink) SendMessage(_ context.Context, channelID, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, text)
	return nil
}

func (r *recordSink) SetMemberRole(_ context.Context, guildID, memberID, roleID string, add bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roles = append(r.roles, fmt.Sprintf("%s/%s/%s/%v", guildID, memberID, roleID, add))
	return nil
}

func TestScheduleReplaceUnschedule(t *testing.T) {
	t.Parallel()
	s := New(newFakeStore(), &recordSink{}, discardLogger())

	s.Schedule("g1", "America/New_York")
	tz, ok := s.Scheduled("g1")
	if !ok || tz != "America/New_York" {
		t.Fatalf("Scheduled = %q, %v", tz, ok)
	}

	s.Reschedule("g1", "Asia/Jakarta")
	tz, ok = s.Scheduled("g1")
	if !ok || tz != "Asia/Jakarta" {
		t.Fatalf("after reschedule: %q, %v", tz, ok)
	}

	s.Unschedule("g1")
	if _, ok := s.Scheduled("g1"); ok {
		t.Fatal("timer still present after unschedule")
	}
	// Unschedule of an unknown tenant is a no-op.
	s.Unschedule("missing")
}

func TestScheduleTimezoneFallbacks(t *testing.T) {
	t.Parallel()
	s := New(newFakeStore(), &recordSink{}, discardLogger())

	s.Schedule("g1", "")
	if tz, _ := s.Scheduled("g1"); tz != "UTC" {
		t.Fatalf("empty tz: got %q, want UTC", tz)
	}

	s.Schedule("g2", "Not/AZone")
	if tz, _ := s.Scheduled("g2"); tz != "UTC" {
		t.Fatalf("invalid tz: got %q, want UTC", tz)
	}
}

func TestStartSchedulesStoredTenants(t *testing.T) {
	t.Parallel()
	t1 := model.NewTenant("g1")
	t1.Timezone = "Asia/Jakarta"
	t2 := model.NewTenant("g2")
	t2.Timezone = ""

	s := New(newFakeStore(t1, t2), &recordSink{}, discardLogger())
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop(context.Background())

	if tz, ok := s.Scheduled("g1"); !ok || tz != "Asia/Jakarta" {
		t.Fatalf("g1: %q, %v", tz, ok)
	}
	if tz, ok := s.Scheduled("g2"); !ok || tz != "UTC" {
		t.Fatalf("g2: %q, %v", tz, ok)
	}
}

func TestTriggerNowRunsAndPersistsRollover(t *testing.T) {
	t.Parallel()
	tn := model.NewTenant("g1")
	tn.ProblemsPerDay = 2
	tn.ProblemPool = []string{"p1", "p2", "p3"}
	tn.UpdatesChannel = "c1"
	store := newFakeStore(tn)
	sink := &recordSink{}

	s := New(store, sink, discardLogger())
	if err := s.TriggerNow("g1"); err != nil {
		t.Fatalf("TriggerNow: %v", err)
	}

	got, err := store.Load(context.Background(), "g1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.TodayProblems) != 2 || got.TodayProblems[0] != "p1" || got.TodayProblems[1] != "p2" {
		t.Fatalf("todayProblems = %v", got.TodayProblems)
	}
	if len(got.ProblemPool) != 1 || got.ProblemPool[0] != "p3" {
		t.Fatalf("problemPool = %v", got.ProblemPool)
	}
	if len(sink.messages) != 1 || sink.messages[0] != "Today's problems: p1, p2" {
		t.Fatalf("messages = %v", sink.messages)
	}
}

func TestTriggerNowMissingTenantIsSkipped(t *testing.T) {
	t.Parallel()
	s := New(newFakeStore(), &recordSink{}, discardLogger())
	if err := s.TriggerNow("gone"); err != nil {
		t.Fatalf("missing tenant should be a logged skip, got %v", err)
	}
}

func TestFireSkipsWhileInFlight(t *testing.T) {
	t.Parallel()
	tn := model.NewTenant("g1")
	store := newFakeStore(tn)
	store.loadStarted = make(chan struct{}, 1)
	store.loadGate = make(chan struct{})

	s := New(store, &recordSink{}, discardLogger())

	done := make(chan error, 1)
	go func() { done <- s.TriggerNow("g1") }()

	select {
	case <-store.loadStarted:
	case <-time.After(5 * time.Second):
		t.Fatal("first fire never reached the store")
	}

	if err := s.TriggerNow("g1"); !errors.Is(err, ErrInFlight) {
		t.Fatalf("overlapping fire: got %v, want ErrInFlight", err)
	}

	close(store.loadGate)
	if err := <-done; err != nil {
		t.Fatalf("first fire: %v", err)
	}
}
