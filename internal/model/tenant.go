package model

// Tenant is one tracked community (a Discord guild): the unit of
// configuration, scheduling and persistence. A Tenant exclusively owns its
// Members; a Member has no existence outside its Tenant.
type Tenant struct {
	ID       string `json:"id"`
	Revision int64  `json:"revision"`

	Timezone string `json:"timezone"`

	Languages        []string `json:"languages,omitempty"`
	AllowAnyLanguage bool     `json:"allow_any_language"`

	StreakRole      string `json:"streak_role,omitempty"`
	LostStreakRole  string `json:"lost_streak_role,omitempty"`
	UpdatesChannel  string `json:"updates_channel,omitempty"`
	StreakThreshold int    `json:"streak_threshold"`

	// ProblemPool is the ordered backlog of not-yet-assigned problems.
	// TodayProblems is the set assigned for the active day.
	// HistoryProblems is append-only: everything ever assigned.
	ProblemPool     []string `json:"problem_pool"`
	TodayProblems   []string `json:"today_problems"`
	HistoryProblems []string `json:"history_problems"`

	ProblemsPerDay int  `json:"problems_per_day"`
	Randomize      bool `json:"randomize"`

	Points PointsConfig `json:"points"`

	Members []*Member `json:"members"`
}

// PointsConfig holds per-tenant point award values.
type PointsConfig struct {
	Hard   int `json:"hard"`
	Medium int `json:"medium"`
	Easy   int `json:"easy"`
	// ConstStreak is the flat bonus for keeping a streak through a rollover.
	// When DynamicStreak is set the bonus scales with the streak length
	// (ConstStreak * streakCount) instead.
	ConstStreak   int  `json:"const_streak"`
	DynamicStreak bool `json:"dynamic_streak"`
	// DailyProblem is the extra award for solving a currently-assigned problem.
	DailyProblem int `json:"daily_problem"`
}

// Member is one tracked individual within a Tenant.
type Member struct {
	ID string `json:"id"`
	// Account is the judge-service username; empty until connected.
	Account           string   `json:"account,omitempty"`
	CompletedProblems []string `json:"completed_problems"`
	StreakCount       int      `json:"streak_count"`
	Points            int      `json:"points"`
}

const (
	DefaultTimezone        = "UTC"
	DefaultStreakThreshold = 5
	DefaultProblemsPerDay  = 1
)

// DefaultPoints mirrors the stock award values.
var DefaultPoints = PointsConfig{
	Hard:         5,
	Medium:       3,
	Easy:         2,
	ConstStreak:  1,
	DailyProblem: 1,
}

// NewTenant returns a Tenant with stock defaults.
func NewTenant(id string) *Tenant {
	return &Tenant{
		ID:               id,
		Timezone:         DefaultTimezone,
		AllowAnyLanguage: true,
		StreakThreshold:  DefaultStreakThreshold,
		ProblemsPerDay:   DefaultProblemsPerDay,
		Points:           DefaultPoints,
	}
}

// Member returns the member with the given id, or nil.
func (t *Tenant) Member(id string) *Member {
	for _, m := range t.Members {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// EnsureMember returns the member with the given id, creating it if absent.
func (t *Tenant) EnsureMember(id string) *Member {
	if m := t.Member(id); m != nil {
		return m
	}
	m := &Member{ID: id}
	t.Members = append(t.Members, m)
	return m
}

// RemoveMember deletes the member with the given id.
// It reports whether a member was removed.
func (t *Tenant) RemoveMember(id string) bool {
	for i, m := range t.Members {
		if m.ID == id {
			t.Members = append(t.Members[:i], t.Members[i+1:]...)
			return true
		}
	}
	return false
}

// AcceptsLang reports whether submissions in the given judge language
// count for this tenant.
func (t *Tenant) AcceptsLang(lang string) bool {
	if t.AllowAnyLanguage {
		return true
	}
	return Contains(t.Languages, lang)
}

// HasCompleted reports whether the member has solved the given problem.
func (m *Member) HasCompleted(problemID string) bool {
	return Contains(m.CompletedProblems, problemID)
}

// Contains reports whether s holds v.
func Contains(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

// AddUnique appends v to s if not already present.
func AddUnique(s []string, v string) []string {
	if Contains(s, v) {
		return s
	}
	return append(s, v)
}

// Remove deletes the first occurrence of v from s, preserving order.
// It reports whether anything was removed.
func Remove(s []string, v string) ([]string, bool) {
	for i, x := range s {
		if x == v {
			return append(s[:i], s[i+1:]...), true
		}
	}
	return s, false
}

// Clone returns a deep copy of the tenant.
func (t *Tenant) Clone() *Tenant {
	cp := *t
	cp.Languages = append([]string(nil), t.Languages...)
	cp.ProblemPool = append([]string(nil), t.ProblemPool...)
	cp.TodayProblems = append([]string(nil), t.TodayProblems...)
	cp.HistoryProblems = append([]string(nil), t.HistoryProblems...)
	cp.Members = make([]*Member, len(t.Members))
	for i, m := range t.Members {
		mc := *m
		mc.CompletedProblems = append([]string(nil), m.CompletedProblems...)
		cp.Members[i] = &mc
	}
	return &cp
}
