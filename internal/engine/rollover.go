package engine

import (
	"math/rand"
	"strings"

	"github.com/MRegirouard/StreakCode/internal/model"
)

// Rollover advances one tenant across its local-midnight boundary:
//
//  1. draw the next problemsPerDay problems out of the pool
//  2. evaluate every member's streak against the day that is ending
//  3. move todayProblems into history and install the drawn set
//  4. derive role add/remove effects from the new streak counts
//  5. derive the updates-channel announcement
//
// The order matters: streaks are judged against the todayProblems that
// existed before step 3 replaces them. The tenant is mutated in place and
// the effects are returned for the caller to dispatch and persist. If
// persistence later fails, nothing was committed and re-running against
// the old state is the same transition happening one tick later.
//
// A tenant whose todayProblems is empty (nothing was assigned) counts as
// trivially kept for every member: no assignment, no streak penalty.
func Rollover(t *model.Tenant, rng *rand.Rand) []Effect {
	next := draw(t, rng)

	trivial := len(t.TodayProblems) == 0
	for _, m := range t.Members {
		if kept(m, t.TodayProblems) {
			m.StreakCount++
			if !trivial {
				m.Points += streakBonus(t.Points, m.StreakCount)
			}
		} else {
			m.StreakCount = 0
		}
	}

	for _, p := range t.TodayProblems {
		t.HistoryProblems = model.AddUnique(t.HistoryProblems, p)
	}
	t.TodayProblems = next

	var effects []Effect
	effects = append(effects, roleEffects(t)...)

	if t.UpdatesChannel != "" {
		effects = append(effects, SendMessage{
			ChannelID: t.UpdatesChannel,
			Text:      "Today's problems: " + joinOrNone(next),
		})
	}
	return effects
}

// draw removes the next assignment from the pool: the first n in order,
// or n drawn uniformly without replacement when the tenant randomizes.
func draw(t *model.Tenant, rng *rand.Rand) []string {
	n := t.ProblemsPerDay
	if n > len(t.ProblemPool) {
		n = len(t.ProblemPool)
	}
	if n <= 0 {
		return nil
	}

	if !t.Randomize {
		next := append([]string(nil), t.ProblemPool[:n]...)
		t.ProblemPool = append([]string(nil), t.ProblemPool[n:]...)
		return next
	}

	pool := append([]string(nil), t.ProblemPool...)
	next := make([]string, 0, n)
	for i := 0; i < n; i++ {
		j := rng.Intn(len(pool))
		next = append(next, pool[j])
		pool = append(pool[:j], pool[j+1:]...)
	}
	t.ProblemPool = pool
	return next
}

// kept reports whether the member solved everything assigned for the day
// that is ending. An empty assignment is trivially kept.
func kept(m *model.Member, today []string) bool {
	for _, p := range today {
		if !m.HasCompleted(p) {
			return false
		}
	}
	return true
}

func streakBonus(p model.PointsConfig, streak int) int {
	if p.DynamicStreak {
		return p.ConstStreak * streak
	}
	return p.ConstStreak
}

// roleEffects pairs up add/remove so that applying them in order leaves a
// member holding at most one of the two roles. Unconfigured roles are
// suppressed, and a tenant with no members or no roles emits nothing.
func roleEffects(t *model.Tenant) []Effect {
	if len(t.Members) == 0 {
		return nil
	}
	if t.StreakRole == "" && t.LostStreakRole == "" {
		return nil
	}
	var effects []Effect
	for _, m := range t.Members {
		onStreak := m.StreakCount > t.StreakThreshold
		if t.StreakRole != "" {
			effects = append(effects, SetRole{MemberID: m.ID, RoleID: t.StreakRole, Add: onStreak})
		}
		if t.LostStreakRole != "" {
			effects = append(effects, SetRole{MemberID: m.ID, RoleID: t.LostStreakRole, Add: !onStreak})
		}
	}
	return effects
}

func joinOrNone(ps []string) string {
	if len(ps) == 0 {
		return "None"
	}
	return strings.Join(ps, ", ")
}
