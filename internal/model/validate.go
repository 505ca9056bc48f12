package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig marks tenant configuration rejected at the mutation
// boundary. Invalid values never reach the scheduler or the rollover
// engine, so both operate on already-validated state.
var ErrInvalidConfig = errors.New("invalid configuration")

// ValidateTimezone checks that tz is a loadable IANA zone name.
func ValidateTimezone(tz string) error {
	if tz == "" {
		return fmt.Errorf("%w: timezone is empty", ErrInvalidConfig)
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return fmt.Errorf("%w: unknown timezone %q", ErrInvalidConfig, tz)
	}
	return nil
}

// ValidateStreakThreshold checks the minimum streak length for the role.
func ValidateStreakThreshold(n int) error {
	if n < 1 {
		return fmt.Errorf("%w: streak threshold %d, must be >= 1", ErrInvalidConfig, n)
	}
	return nil
}

// ValidateProblemsPerDay checks the daily assignment count.
func ValidateProblemsPerDay(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: problems per day %d, must be >= 0", ErrInvalidConfig, n)
	}
	return nil
}

// ValidatePointValue checks a single point award value.
func ValidatePointValue(name string, n int) error {
	if n < 0 {
		return fmt.Errorf("%w: %s points %d, must be >= 0", ErrInvalidConfig, name, n)
	}
	return nil
}

// Validate checks the whole tenant. LoadAll uses it to skip hand-edited
// or out-of-band-written records.
func (t *Tenant) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("%w: tenant id is empty", ErrInvalidConfig)
	}
	if err := ValidateTimezone(t.Timezone); err != nil {
		return err
	}
	if err := ValidateStreakThreshold(t.StreakThreshold); err != nil {
		return err
	}
	if err := ValidateProblemsPerDay(t.ProblemsPerDay); err != nil {
		return err
	}
	for name, v := range map[string]int{
		"hard": t.Points.Hard, "medium": t.Points.Medium, "easy": t.Points.Easy,
		"const streak": t.Points.ConstStreak, "daily problem": t.Points.DailyProblem,
	} {
		if err := ValidatePointValue(name, v); err != nil {
			return err
		}
	}
	seen := make(map[string]bool, len(t.ProblemPool))
	for _, p := range t.ProblemPool {
		if seen[p] {
			return fmt.Errorf("%w: duplicate problem %q in pool", ErrInvalidConfig, p)
		}
		seen[p] = true
		if Contains(t.TodayProblems, p) {
			return fmt.Errorf("%w: problem %q both pooled and assigned", ErrInvalidConfig, p)
		}
	}
	for _, m := range t.Members {
		if m.ID == "" {
			return fmt.Errorf("%w: member with empty id", ErrInvalidConfig)
		}
		if m.StreakCount < 0 || m.Points < 0 {
			return fmt.Errorf("%w: member %s has negative counters", ErrInvalidConfig, m.ID)
		}
	}
	return nil
}
