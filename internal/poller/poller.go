package poller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MRegirouard/StreakCode/internal/engine"
	"github.com/MRegirouard/StreakCode/internal/kit"
	"github.com/MRegirouard/StreakCode/internal/model"
	"github.com/MRegirouard/StreakCode/internal/storage"
)

const defaultInterval = time.Minute

type Config struct {
	Interval time.Duration
}

// Service polls the judge on a fixed interval, independent of any
// tenant's timezone.
type Service struct {
	log    *slog.Logger
	store  storage.Store
	source kit.SubmissionSource
	sink   kit.Sink

	mu       sync.Mutex
	interval time.Duration
	reset    chan struct{}
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

func New(cfg Config, store storage.Store, source kit.SubmissionSource, sink kit.Sink, log *slog.Logger) *Service {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Service{
		log:      log,
		store:    store,
		source:   source,
		sink:     sink,
		interval: interval,
	}
}

// SetInterval applies a new tick interval. A running poll loop picks it
// up immediately; otherwise it takes effect on the next Start.
func (s *Service) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	s.mu.Lock()
	s.interval = d
	reset := s.reset
	s.mu.Unlock()
	if reset != nil {
		select {
		case reset <- struct{}{}:
		default:
		}
	}
}

func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.reset = make(chan struct{}, 1)
	interval := s.interval
	reset := s.reset
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-reset:
				s.mu.Lock()
				d := s.interval
				s.mu.Unlock()
				ticker.Reset(d)
				s.log.Info("poll interval changed", slog.Duration("interval", d))
			case <-ticker.C:
				if err := s.PollOnce(runCtx); err != nil {
					s.log.Warn("poll tick failed", slog.Any("err", err))
				}
			}
		}
	}()
	s.log.Info("poller started", slog.Duration("interval", interval))
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.reset = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
	s.log.Info("poller stopped")
}

// memberWork is everything one tick learned for one member: the full
// accepted list (to converge shared-account members onto the union) and
// the subset that is new to the whole group (drives points and
// notifications).
type memberWork struct {
	memberID string
	account  string
	subs     []kit.Submission
	newly    map[string]bool
}

// PollOnce runs one dedup cycle: group members by judge account, query
// the judge once per unique account, fan results back out, persist every
// mutated tenant exactly once, then announce new solves.
func (s *Service) PollOnce(ctx context.Context) error {
	tick := uuid.NewString()[:8]
	log := s.log.With(slog.String("tick", tick))

	tenants, err := s.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("poll: %w", err)
	}

	groups := buildGroups(tenants)
	pending := map[string][]memberWork{} // tenant id -> work
	var tenantOrder []string

	for _, g := range groups {
		subs, err := s.source.RecentAccepted(ctx, g.account)
		if err != nil {
			// Skip this account for the tick; the next tick retries naturally.
			log.Warn("submission fetch failed",
				slog.String("account", g.account), slog.Any("err", err))
			continue
		}
		subs = dedupeSubmissions(subs)

		newly := map[string]bool{}
		for _, sub := range subs {
			if !g.completed[sub.ProblemID] {
				newly[sub.ProblemID] = true
			}
		}
		if len(newly) == 0 {
			continue
		}

		for _, ref := range g.members {
			if _, ok := pending[ref.tenantID]; !ok {
				tenantOrder = append(tenantOrder, ref.tenantID)
			}
			pending[ref.tenantID] = append(pending[ref.tenantID], memberWork{
				memberID: ref.memberID,
				account:  g.account,
				subs:     subs,
				newly:    newly,
			})
		}
	}

	for _, tenantID := range tenantOrder {
		work := pending[tenantID]
		var effects []engine.Effect

		_, err := storage.Update(ctx, s.store, tenantID, func(t *model.Tenant) error {
			// Recomputed per attempt: the mutation must be re-derivable
			// against fresh state after a revision conflict.
			effects = s.apply(t, work)
			return nil
		})
		if err != nil {
			log.Warn("tenant save failed",
				slog.String("tenant", tenantID), slog.Any("err", err))
			continue
		}
		engine.Dispatch(ctx, s.sink, tenantID, effects, log)
	}

	log.Debug("poll complete",
		slog.Int("tenants", len(tenants)),
		slog.Int("accounts", len(groups)),
		slog.Int("updated", len(tenantOrder)))
	return nil
}

// apply folds one tick's findings into a freshly loaded tenant. Members
// converge onto the full accepted set for their account; points and
// announcements only follow problems that were new to the account group
// this tick, so a member joining an established shared account syncs
// silently.
func (s *Service) apply(t *model.Tenant, work []memberWork) []engine.Effect {
	var effects []engine.Effect
	for _, w := range work {
		m := t.Member(w.memberID)
		if m == nil || m.Account != w.account {
			// Member left or reconnected under a different account since
			// the tick loaded its snapshot.
			continue
		}
		for _, sub := range w.subs {
			if !t.AcceptsLang(sub.Lang) || m.HasCompleted(sub.ProblemID) {
				continue
			}
			m.CompletedProblems = append(m.CompletedProblems, sub.ProblemID)
			if !w.newly[sub.ProblemID] {
				continue
			}
			m.Points += solvePoints(t, sub)
			if t.UpdatesChannel != "" {
				effects = append(effects, engine.SendMessage{
					ChannelID: t.UpdatesChannel,
					Text:      solveText(m.ID, sub),
				})
			}
		}
	}
	return effects
}

func solvePoints(t *model.Tenant, sub kit.Submission) int {
	var pts int
	switch sub.Difficulty {
	case "hard":
		pts = t.Points.Hard
	case "medium":
		pts = t.Points.Medium
	default:
		pts = t.Points.Easy
	}
	if model.Contains(t.TodayProblems, sub.ProblemID) {
		pts += t.Points.DailyProblem
	}
	return pts
}

func solveText(memberID string, sub kit.Submission) string {
	name := sub.Title
	if name == "" {
		name = sub.ProblemID
	}
	return fmt.Sprintf("<@%s> solved %s!", memberID, name)
}
