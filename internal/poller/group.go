package poller

import (
	"sort"

	"github.com/MRegirouard/StreakCode/internal/kit"
	"github.com/MRegirouard/StreakCode/internal/model"
)

// memberRef points into the tenant set loaded for one tick.
type memberRef struct {
	tenantID string
	memberID string
}

// accountGroup is the per-tick merge of every member sharing one judge
// account. completed is the union of all their solved sets: a submission
// is "new" for the group only if no member anywhere has it yet.
type accountGroup struct {
	account   string
	members   []memberRef
	completed map[string]bool
}

// buildGroups indexes all tracked members by judge account. Members with
// no connected account are skipped. Groups come back sorted by account
// name so a tick processes them in a stable order.
func buildGroups(tenants []*model.Tenant) []*accountGroup {
	byAccount := map[string]*accountGroup{}
	for _, t := range tenants {
		for _, m := range t.Members {
			if m.Account == "" {
				continue
			}
			g := byAccount[m.Account]
			if g == nil {
				g = &accountGroup{account: m.Account, completed: map[string]bool{}}
				byAccount[m.Account] = g
			}
			g.members = append(g.members, memberRef{tenantID: t.ID, memberID: m.ID})
			for _, p := range m.CompletedProblems {
				g.completed[p] = true
			}
		}
	}

	groups := make([]*accountGroup, 0, len(byAccount))
	for _, g := range byAccount {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].account < groups[j].account })
	return groups
}

// dedupeSubmissions drops repeat accepted submissions for the same
// problem, keeping the first occurrence.
func dedupeSubmissions(subs []kit.Submission) []kit.Submission {
	seen := map[string]bool{}
	out := subs[:0:0]
	for _, s := range subs {
		if s.ProblemID == "" || seen[s.ProblemID] {
			continue
		}
		seen[s.ProblemID] = true
		out = append(out, s)
	}
	return out
}
