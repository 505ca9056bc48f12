package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/MRegirouard/StreakCode/internal/engine"
	"github.com/MRegirouard/StreakCode/internal/kit"
	"github.com/MRegirouard/StreakCode/internal/model"
	"github.com/MRegirouard/StreakCode/internal/storage"
)

// midnightSpec fires once daily at local midnight in the cron's location.
const midnightSpec = "0 0 * * *"

// ErrInFlight means a fire was skipped because the previous one for the
// same tenant had not finished persisting yet.
var ErrInFlight = errors.New("rollover already in flight")

type entry struct {
	c  *cron.Cron
	tz string
}

type runState struct {
	mu sync.Mutex
}

// Service keys one active timer per tenant id.
type Service struct {
	log   *slog.Logger
	store storage.Store
	sink  kit.Sink

	mu      sync.Mutex
	entries map[string]*entry
	states  map[string]*runState

	runCtx    context.Context
	runCancel context.CancelFunc

	rngMu sync.Mutex
	rng   *rand.Rand
}

func New(store storage.Store, sink kit.Sink, log *slog.Logger) *Service {
	return &Service{
		log:     log,
		store:   store,
		sink:    sink,
		entries: map[string]*entry{},
		states:  map[string]*runState{},
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Start loads every stored tenant and schedules its daily timer. A tenant
// with no stored timezone runs on UTC.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.runCtx != nil {
		s.mu.Unlock()
		return nil
	}
	s.runCtx, s.runCancel = context.WithCancel(context.WithoutCancel(ctx))
	s.mu.Unlock()

	tenants, err := s.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("scheduler start: %w", err)
	}
	for _, t := range tenants {
		s.Schedule(t.ID, t.Timezone)
	}
	s.log.Info("scheduler started", slog.Int("tenants", len(tenants)))
	return nil
}

// Stop cancels every timer. In-flight fires run to completion.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	entries := s.entries
	s.entries = map[string]*entry{}
	cancel := s.runCancel
	s.runCtx, s.runCancel = nil, nil
	s.mu.Unlock()

	for _, e := range entries {
		<-e.c.Stop().Done()
	}
	if cancel != nil {
		cancel()
	}
	s.log.Info("scheduler stopped")
}

// Schedule creates or replaces the tenant's daily midnight timer. The new
// timer is installed before the old one is stopped.
func (s *Service) Schedule(tenantID, tz string) {
	loc := s.loadLocation(tenantID, tz)

	c := cron.New(cron.WithLocation(loc))
	_, err := c.AddFunc(midnightSpec, func() {
		if err := s.fire(tenantID); err != nil {
			s.log.Warn("rollover fire failed",
				slog.String("tenant", tenantID), slog.Any("err", err))
		}
	})
	if err != nil {
		// Static spec: only reachable if midnightSpec itself is broken.
		s.log.Error("cron registration failed",
			slog.String("tenant", tenantID), slog.Any("err", err))
		return
	}
	c.Start()

	s.mu.Lock()
	old := s.entries[tenantID]
	s.entries[tenantID] = &entry{c: c, tz: loc.String()}
	if _, ok := s.states[tenantID]; !ok {
		s.states[tenantID] = &runState{}
	}
	s.mu.Unlock()

	if old != nil {
		// Stop asynchronously: Done() waits for a possibly slow in-flight
		// fire, and the run guard already serializes per tenant.
		go func() { <-old.c.Stop().Done() }()
		s.log.Info("tenant timer replaced",
			slog.String("tenant", tenantID), slog.String("tz", loc.String()))
	} else {
		s.log.Info("tenant timer scheduled",
			slog.String("tenant", tenantID), slog.String("tz", loc.String()))
	}
}

// Unschedule cancels and removes the tenant's timer, if any.
func (s *Service) Unschedule(tenantID string) {
	s.mu.Lock()
	e := s.entries[tenantID]
	delete(s.entries, tenantID)
	delete(s.states, tenantID)
	s.mu.Unlock()

	if e == nil {
		return
	}
	go func() { <-e.c.Stop().Done() }()
	s.log.Info("tenant timer cancelled", slog.String("tenant", tenantID))
}

// Reschedule atomically replaces the tenant's timer with one in the new
// timezone.
func (s *Service) Reschedule(tenantID, newTZ string) {
	s.Schedule(tenantID, newTZ)
}

// Scheduled reports whether the tenant currently has a timer, and its zone.
func (s *Service) Scheduled(tenantID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[tenantID]
	if !ok {
		return "", false
	}
	return e.tz, true
}

// TriggerNow runs the tenant's rollover immediately, outside its timer.
func (s *Service) TriggerNow(tenantID string) error {
	return s.fire(tenantID)
}

func (s *Service) fire(tenantID string) error {
	s.mu.Lock()
	st, ok := s.states[tenantID]
	if !ok {
		st = &runState{}
		s.states[tenantID] = st
	}
	ctx := s.runCtx
	s.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	if !st.mu.TryLock() {
		s.log.Warn("rollover skipped, previous run still in flight",
			slog.String("tenant", tenantID))
		return fmt.Errorf("%w: %s", ErrInFlight, tenantID)
	}
	defer st.mu.Unlock()

	start := time.Now()

	// Rollover runs inside the retry loop so a conflicting write from the
	// poller is absorbed by recomputing against fresh state. Only the
	// committed attempt's effects are dispatched.
	var effects []engine.Effect
	_, err := storage.Update(ctx, s.store, tenantID, func(t *model.Tenant) error {
		effects = s.rollover(t)
		return nil
	})
	if errors.Is(err, storage.ErrNotFound) {
		s.log.Warn("rollover skipped, tenant no longer stored",
			slog.String("tenant", tenantID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("rollover %s: %w", tenantID, err)
	}

	engine.Dispatch(ctx, s.sink, tenantID, effects, s.log)
	s.log.Info("rollover complete",
		slog.String("tenant", tenantID),
		slog.Int("effects", len(effects)),
		slog.Duration("took", time.Since(start)))
	return nil
}

func (s *Service) rollover(t *model.Tenant) []engine.Effect {
	// rand.Rand is not safe for concurrent use across tenant fires.
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return engine.Rollover(t, s.rng)
}

func (s *Service) loadLocation(tenantID, tz string) *time.Location {
	if tz == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		// Stored state should never hold an invalid zone (validated at the
		// mutation boundary), but a hand-edited record must not kill the timer.
		s.log.Warn("invalid tenant timezone, falling back to UTC",
			slog.String("tenant", tenantID), slog.String("tz", tz))
		return time.UTC
	}
	return loc
}
