package core

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/MRegirouard/StreakCode/internal/leetcode"
	"github.com/MRegirouard/StreakCode/internal/model"
	"github.com/MRegirouard/StreakCode/internal/scheduler"
	"github.com/MRegirouard/StreakCode/internal/storage"
)

// Ops is the validated tenant-mutation API: everything a command surface
// (or admin tooling) is allowed to change. Each operation validates its
// input first, persists through the conflict-retried update path, and only
// then triggers side effects such as a timer reschedule. Invalid values
// are rejected here and never reach stored state.
type Ops struct {
	store storage.Store
	sched *scheduler.Service
	log   *slog.Logger
}

func NewOps(store storage.Store, sched *scheduler.Service, log *slog.Logger) *Ops {
	return &Ops{store: store, sched: sched, log: log}
}

// upsert runs fn against the tenant record, creating the tenant with
// defaults on first contact. A freshly created tenant gets its daily
// timer scheduled.
func (o *Ops) upsert(ctx context.Context, tenantID string, fn func(*model.Tenant) error) (*model.Tenant, error) {
	t, err := storage.UpdateOrCreate(ctx, o.store, tenantID, fn)
	if err != nil {
		return nil, err
	}
	if t.Revision == 1 {
		o.sched.Schedule(t.ID, t.Timezone)
	}
	return t, nil
}

// ConnectAccount links a member to a judge account, creating the member on
// first contact. Reconnecting under a different account resets the solved
// set and the streak; accumulated points are retained.
func (o *Ops) ConnectAccount(ctx context.Context, tenantID, memberID, account string) error {
	account = strings.TrimSpace(account)
	if account == "" {
		return fmt.Errorf("%w: account name is empty", model.ErrInvalidConfig)
	}
	_, err := o.upsert(ctx, tenantID, func(t *model.Tenant) error {
		m := t.EnsureMember(memberID)
		if m.Account == account {
			return storage.ErrSkip
		}
		m.Account = account
		m.CompletedProblems = nil
		m.StreakCount = 0
		return nil
	})
	if err == nil {
		o.log.Info("account connected",
			slog.String("tenant", tenantID), slog.String("member", memberID))
	}
	return err
}

// DisconnectAccount removes the member entirely.
func (o *Ops) DisconnectAccount(ctx context.Context, tenantID, memberID string) error {
	_, err := storage.Update(ctx, o.store, tenantID, func(t *model.Tenant) error {
		if !t.RemoveMember(memberID) {
			return storage.ErrSkip
		}
		return nil
	})
	if err == nil {
		o.log.Info("account disconnected",
			slog.String("tenant", tenantID), slog.String("member", memberID))
	}
	return err
}

// SetTimezone validates and stores the zone, then atomically replaces the
// tenant's daily timer.
func (o *Ops) SetTimezone(ctx context.Context, tenantID, tz string) error {
	if err := model.ValidateTimezone(tz); err != nil {
		return err
	}
	t, err := o.upsert(ctx, tenantID, func(t *model.Tenant) error {
		t.Timezone = tz
		return nil
	})
	if err != nil {
		return err
	}
	o.sched.Reschedule(t.ID, tz)
	return nil
}

func (o *Ops) SetStreakThreshold(ctx context.Context, tenantID string, n int) error {
	if err := model.ValidateStreakThreshold(n); err != nil {
		return err
	}
	_, err := o.upsert(ctx, tenantID, func(t *model.Tenant) error {
		t.StreakThreshold = n
		return nil
	})
	return err
}

// SetStreakRole sets the role granted above the threshold. Empty clears it.
func (o *Ops) SetStreakRole(ctx context.Context, tenantID, roleID string) error {
	_, err := o.upsert(ctx, tenantID, func(t *model.Tenant) error {
		t.StreakRole = roleID
		return nil
	})
	return err
}

func (o *Ops) SetLostStreakRole(ctx context.Context, tenantID, roleID string) error {
	_, err := o.upsert(ctx, tenantID, func(t *model.Tenant) error {
		t.LostStreakRole = roleID
		return nil
	})
	return err
}

func (o *Ops) SetUpdatesChannel(ctx context.Context, tenantID, channelID string) error {
	_, err := o.upsert(ctx, tenantID, func(t *model.Tenant) error {
		t.UpdatesChannel = channelID
		return nil
	})
	return err
}

func (o *Ops) AddLanguage(ctx context.Context, tenantID, lang string) error {
	if !leetcode.KnownLang(lang) {
		return fmt.Errorf("%w: unknown language %q", model.ErrInvalidConfig, lang)
	}
	_, err := o.upsert(ctx, tenantID, func(t *model.Tenant) error {
		t.Languages = model.AddUnique(t.Languages, lang)
		t.AllowAnyLanguage = false
		return nil
	})
	return err
}

func (o *Ops) RemoveLanguage(ctx context.Context, tenantID, lang string) error {
	_, err := o.upsert(ctx, tenantID, func(t *model.Tenant) error {
		var ok bool
		t.Languages, ok = model.Remove(t.Languages, lang)
		if !ok {
			return storage.ErrSkip
		}
		return nil
	})
	return err
}

func (o *Ops) ClearLanguages(ctx context.Context, tenantID string) error {
	_, err := o.upsert(ctx, tenantID, func(t *model.Tenant) error {
		t.Languages = nil
		return nil
	})
	return err
}

// SetAcceptAllLanguages makes every submission language count again.
func (o *Ops) SetAcceptAllLanguages(ctx context.Context, tenantID string) error {
	_, err := o.upsert(ctx, tenantID, func(t *model.Tenant) error {
		t.AllowAnyLanguage = true
		return nil
	})
	return err
}

// AddProblem appends one problem slug to the pool. Problems already
// pooled or currently assigned are rejected to keep the pool
// duplicate-free and disjoint from todayProblems.
func (o *Ops) AddProblem(ctx context.Context, tenantID, problem string) error {
	return o.AddProblems(ctx, tenantID, []string{problem})
}

// AddProblems is the bulk form; the whole batch is validated before any
// of it is stored.
func (o *Ops) AddProblems(ctx context.Context, tenantID string, problems []string) error {
	cleaned := make([]string, 0, len(problems))
	for _, p := range problems {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		cleaned = append(cleaned, p)
	}
	if len(cleaned) == 0 {
		return fmt.Errorf("%w: no problems given", model.ErrInvalidConfig)
	}
	_, err := o.upsert(ctx, tenantID, func(t *model.Tenant) error {
		for _, p := range cleaned {
			if model.Contains(t.ProblemPool, p) {
				return fmt.Errorf("%w: problem %q already pooled", model.ErrInvalidConfig, p)
			}
			if model.Contains(t.TodayProblems, p) {
				return fmt.Errorf("%w: problem %q is assigned today", model.ErrInvalidConfig, p)
			}
			t.ProblemPool = append(t.ProblemPool, p)
		}
		return nil
	})
	return err
}

func (o *Ops) RemoveProblem(ctx context.Context, tenantID, problem string) error {
	return o.RemoveProblems(ctx, tenantID, []string{problem})
}

func (o *Ops) RemoveProblems(ctx context.Context, tenantID string, problems []string) error {
	_, err := o.upsert(ctx, tenantID, func(t *model.Tenant) error {
		removed := false
		for _, p := range problems {
			var ok bool
			t.ProblemPool, ok = model.Remove(t.ProblemPool, strings.TrimSpace(p))
			removed = removed || ok
		}
		if !removed {
			return storage.ErrSkip
		}
		return nil
	})
	return err
}

func (o *Ops) ClearProblems(ctx context.Context, tenantID string) error {
	_, err := o.upsert(ctx, tenantID, func(t *model.Tenant) error {
		t.ProblemPool = nil
		return nil
	})
	return err
}

func (o *Ops) SetProblemsPerDay(ctx context.Context, tenantID string, n int) error {
	if err := model.ValidateProblemsPerDay(n); err != nil {
		return err
	}
	_, err := o.upsert(ctx, tenantID, func(t *model.Tenant) error {
		t.ProblemsPerDay = n
		return nil
	})
	return err
}

func (o *Ops) SetRandomize(ctx context.Context, tenantID string, randomize bool) error {
	_, err := o.upsert(ctx, tenantID, func(t *model.Tenant) error {
		t.Randomize = randomize
		return nil
	})
	return err
}

// SetPoints replaces the tenant's point award configuration.
func (o *Ops) SetPoints(ctx context.Context, tenantID string, pc model.PointsConfig) error {
	for name, v := range map[string]int{
		"hard": pc.Hard, "medium": pc.Medium, "easy": pc.Easy,
		"const streak": pc.ConstStreak, "daily problem": pc.DailyProblem,
	} {
		if err := model.ValidatePointValue(name, v); err != nil {
			return err
		}
	}
	_, err := o.upsert(ctx, tenantID, func(t *model.Tenant) error {
		t.Points = pc
		return nil
	})
	return err
}

// Tenant returns a copy of the stored record.
func (o *Ops) Tenant(ctx context.Context, tenantID string) (*model.Tenant, error) {
	return o.store.Load(ctx, tenantID)
}

// OnTenantConfigChanged routes a generic field change to the matching
// typed operation. Unknown fields and unparsable values are rejected.
func (o *Ops) OnTenantConfigChanged(ctx context.Context, tenantID, field, value string) error {
	switch field {
	case "timezone":
		return o.SetTimezone(ctx, tenantID, value)
	case "streak_threshold":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: streak_threshold %q", model.ErrInvalidConfig, value)
		}
		return o.SetStreakThreshold(ctx, tenantID, n)
	case "streak_role":
		return o.SetStreakRole(ctx, tenantID, value)
	case "lost_streak_role":
		return o.SetLostStreakRole(ctx, tenantID, value)
	case "updates_channel":
		return o.SetUpdatesChannel(ctx, tenantID, value)
	case "problems_per_day":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: problems_per_day %q", model.ErrInvalidConfig, value)
		}
		return o.SetProblemsPerDay(ctx, tenantID, n)
	case "randomize":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: randomize %q", model.ErrInvalidConfig, value)
		}
		return o.SetRandomize(ctx, tenantID, b)
	default:
		return fmt.Errorf("%w: unknown field %q", model.ErrInvalidConfig, field)
	}
}
