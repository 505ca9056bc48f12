package core

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/MRegirouard/StreakCode/internal/model"
	"github.com/MRegirouard/StreakCode/internal/scheduler"
	"github.com/MRegirouard/StreakCode/internal/storage"
	"github.com/MRegirouard/StreakCode/pkg/logx"
)

type nopSink struct{}

func (nopSink) SendMessage(ctx context.Context, channelID, text string) error { return nil }
func (nopSink) SetMemberRole(ctx context.Context, guildID, memberID, roleID string, add bool) error {
	return nil
}

func newTestOps(t *testing.T) (*Ops, storage.Store, *scheduler.Service) {
	t.Helper()
	store, err := storage.Open(storage.Config{Driver: "file", Path: t.TempDir()}, logx.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	sched := scheduler.New(store, nopSink{}, log)
	t.Cleanup(func() { sched.Stop(context.Background()) })
	return NewOps(store, sched, log), store, sched
}

func TestConnectAccountCreatesTenant(t *testing.T) {
	t.Parallel()
	ops, store, sched := newTestOps(t)
	ctx := context.Background()

	if err := ops.ConnectAccount(ctx, "g1", "m1", "alice"); err != nil {
		t.Fatalf("ConnectAccount: %v", err)
	}

	ten, err := store.Load(ctx, "g1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	m := ten.Member("m1")
	if m == nil || m.Account != "alice" {
		t.Fatalf("member = %+v", m)
	}
	if _, ok := sched.Scheduled("g1"); !ok {
		t.Fatal("new tenant should get a daily timer")
	}
}

func TestConnectAccountValidation(t *testing.T) {
	t.Parallel()
	ops, _, _ := newTestOps(t)
	if err := ops.ConnectAccount(context.Background(), "g1", "m1", "  "); !errors.Is(err, model.ErrInvalidConfig) {
		t.Fatalf("err = %v, want ErrInvalidConfig", err)
	}
}

func TestReconnectResetsProgressKeepsPoints(t *testing.T) {
	t.Parallel()
	ops, store, _ := newTestOps(t)
	ctx := context.Background()

	if err := ops.ConnectAccount(ctx, "g1", "m1", "alice"); err != nil {
		t.Fatal(err)
	}
	_, err := storage.Update(ctx, store, "g1", func(ten *model.Tenant) error {
		m := ten.Member("m1")
		m.CompletedProblems = []string{"two-sum"}
		m.StreakCount = 4
		m.Points = 17
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := ops.ConnectAccount(ctx, "g1", "m1", "bob"); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	ten, _ := store.Load(ctx, "g1")
	m := ten.Member("m1")
	if m.Account != "bob" {
		t.Fatalf("account = %q", m.Account)
	}
	if len(m.CompletedProblems) != 0 || m.StreakCount != 0 {
		t.Fatalf("progress not reset: %+v", m)
	}
	if m.Points != 17 {
		t.Fatalf("points = %d, want retained 17", m.Points)
	}
}

func TestReconnectSameAccountNoWrite(t *testing.T) {
	t.Parallel()
	ops, store, _ := newTestOps(t)
	ctx := context.Background()

	if err := ops.ConnectAccount(ctx, "g1", "m1", "alice"); err != nil {
		t.Fatal(err)
	}
	before, _ := store.Load(ctx, "g1")
	if err := ops.ConnectAccount(ctx, "g1", "m1", "alice"); err != nil {
		t.Fatal(err)
	}
	after, _ := store.Load(ctx, "g1")
	if after.Revision != before.Revision {
		t.Fatalf("revision bumped %d -> %d on no-op reconnect", before.Revision, after.Revision)
	}
}

func TestDisconnectAccount(t *testing.T) {
	t.Parallel()
	ops, store, _ := newTestOps(t)
	ctx := context.Background()

	if err := ops.ConnectAccount(ctx, "g1", "m1", "alice"); err != nil {
		t.Fatal(err)
	}
	if err := ops.DisconnectAccount(ctx, "g1", "m1"); err != nil {
		t.Fatalf("DisconnectAccount: %v", err)
	}
	ten, _ := store.Load(ctx, "g1")
	if ten.Member("m1") != nil {
		t.Fatal("member still stored")
	}

	// Unknown member is a no-op, not an error.
	if err := ops.DisconnectAccount(ctx, "g1", "nobody"); err != nil {
		t.Fatalf("disconnect unknown member: %v", err)
	}
}

func TestSetTimezoneReschedules(t *testing.T) {
	t.Parallel()
	ops, _, sched := newTestOps(t)
	ctx := context.Background()

	if err := ops.SetTimezone(ctx, "g1", "America/New_York"); err != nil {
		t.Fatalf("SetTimezone: %v", err)
	}
	if tz, ok := sched.Scheduled("g1"); !ok || tz != "America/New_York" {
		t.Fatalf("scheduled tz = %q, %v", tz, ok)
	}

	if err := ops.SetTimezone(ctx, "g1", "Not/AZone"); !errors.Is(err, model.ErrInvalidConfig) {
		t.Fatalf("err = %v, want ErrInvalidConfig", err)
	}
	if tz, _ := sched.Scheduled("g1"); tz != "America/New_York" {
		t.Fatalf("invalid zone replaced timer: %q", tz)
	}
}

func TestLanguageOps(t *testing.T) {
	t.Parallel()
	ops, store, _ := newTestOps(t)
	ctx := context.Background()

	if err := ops.AddLanguage(ctx, "g1", "klingon"); !errors.Is(err, model.ErrInvalidConfig) {
		t.Fatalf("err = %v, want ErrInvalidConfig", err)
	}
	if err := ops.AddLanguage(ctx, "g1", "go"); err != nil {
		t.Fatal(err)
	}
	if err := ops.AddLanguage(ctx, "g1", "rust"); err != nil {
		t.Fatal(err)
	}
	ten, _ := store.Load(ctx, "g1")
	if ten.AllowAnyLanguage {
		t.Fatal("filter list should disable allow-any")
	}
	if !ten.AcceptsLang("go") || ten.AcceptsLang("java") {
		t.Fatal("filter not applied")
	}

	if err := ops.SetAcceptAllLanguages(ctx, "g1"); err != nil {
		t.Fatal(err)
	}
	ten, _ = store.Load(ctx, "g1")
	if !ten.AcceptsLang("java") {
		t.Fatal("allow-any not restored")
	}
}

func TestProblemPoolOps(t *testing.T) {
	t.Parallel()
	ops, store, _ := newTestOps(t)
	ctx := context.Background()

	if err := ops.AddProblems(ctx, "g1", []string{"p1", "p2"}); err != nil {
		t.Fatal(err)
	}
	if err := ops.AddProblem(ctx, "g1", "p1"); !errors.Is(err, model.ErrInvalidConfig) {
		t.Fatalf("duplicate add err = %v", err)
	}

	_, err := storage.Update(ctx, store, "g1", func(ten *model.Tenant) error {
		ten.TodayProblems = []string{"p9"}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := ops.AddProblem(ctx, "g1", "p9"); !errors.Is(err, model.ErrInvalidConfig) {
		t.Fatalf("assigned-today add err = %v", err)
	}

	if err := ops.RemoveProblem(ctx, "g1", "p1"); err != nil {
		t.Fatal(err)
	}
	ten, _ := store.Load(ctx, "g1")
	if model.Contains(ten.ProblemPool, "p1") || !model.Contains(ten.ProblemPool, "p2") {
		t.Fatalf("pool = %v", ten.ProblemPool)
	}

	if err := ops.ClearProblems(ctx, "g1"); err != nil {
		t.Fatal(err)
	}
	ten, _ = store.Load(ctx, "g1")
	if len(ten.ProblemPool) != 0 {
		t.Fatalf("pool not cleared: %v", ten.ProblemPool)
	}
}

func TestSetPointsValidation(t *testing.T) {
	t.Parallel()
	ops, store, _ := newTestOps(t)
	ctx := context.Background()

	bad := model.PointsConfig{Hard: -1, Medium: 3, Easy: 2, ConstStreak: 1, DailyProblem: 1}
	if err := ops.SetPoints(ctx, "g1", bad); !errors.Is(err, model.ErrInvalidConfig) {
		t.Fatalf("err = %v, want ErrInvalidConfig", err)
	}

	good := model.PointsConfig{Hard: 10, Medium: 5, Easy: 2, ConstStreak: 2, DailyProblem: 3}
	if err := ops.SetPoints(ctx, "g1", good); err != nil {
		t.Fatal(err)
	}
	ten, _ := store.Load(ctx, "g1")
	if ten.Points != good {
		t.Fatalf("points = %+v", ten.Points)
	}
}

func TestOnTenantConfigChanged(t *testing.T) {
	t.Parallel()
	ops, store, sched := newTestOps(t)
	ctx := context.Background()

	cases := []struct {
		field, value string
		check        func(*model.Tenant) bool
	}{
		{"timezone", "Europe/Berlin", func(t *model.Tenant) bool { return t.Timezone == "Europe/Berlin" }},
		{"streak_threshold", "3", func(t *model.Tenant) bool { return t.StreakThreshold == 3 }},
		{"streak_role", "r1", func(t *model.Tenant) bool { return t.StreakRole == "r1" }},
		{"lost_streak_role", "r2", func(t *model.Tenant) bool { return t.LostStreakRole == "r2" }},
		{"updates_channel", "c1", func(t *model.Tenant) bool { return t.UpdatesChannel == "c1" }},
		{"problems_per_day", "2", func(t *model.Tenant) bool { return t.ProblemsPerDay == 2 }},
		{"randomize", "true", func(t *model.Tenant) bool { return t.Randomize }},
	}
	for _, tc := range cases {
		if err := ops.OnTenantConfigChanged(ctx, "g1", tc.field, tc.value); err != nil {
			t.Fatalf("%s: %v", tc.field, err)
		}
		ten, _ := store.Load(ctx, "g1")
		if !tc.check(ten) {
			t.Fatalf("%s = %s not applied", tc.field, tc.value)
		}
	}
	if tz, _ := sched.Scheduled("g1"); tz != "Europe/Berlin" {
		t.Fatalf("timezone change did not reschedule, tz = %q", tz)
	}

	if err := ops.OnTenantConfigChanged(ctx, "g1", "streak_threshold", "zero"); !errors.Is(err, model.ErrInvalidConfig) {
		t.Fatalf("bad int err = %v", err)
	}
	if err := ops.OnTenantConfigChanged(ctx, "g1", "no_such_field", "x"); !errors.Is(err, model.ErrInvalidConfig) {
		t.Fatalf("unknown field err = %v", err)
	}
}
