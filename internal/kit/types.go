package kit

import (
	"context"
	"time"
)

// Sink delivers user-visible side effects to the chat platform.
//
// Implementations must be safe for concurrent use; callers treat every
// error as transient (log and move on).
type Sink interface {
	// SendMessage posts text to a channel.
	SendMessage(ctx context.Context, channelID, text string) error
	// SetMemberRole adds (add=true) or removes a role on a guild member.
	SetMemberRole(ctx context.Context, guildID, memberID, roleID string, add bool) error
}

// Submission is one accepted submission reported by the judge service.
type Submission struct {
	ProblemID  string // problem slug, e.g. "two-sum"
	Title      string
	Lang       string // judge language value, e.g. "cpp"
	Difficulty string // "easy" | "medium" | "hard", empty when unknown
	AcceptedAt time.Time
}

// SubmissionSource fetches recent accepted submissions for one external
// account. The judge is an already-throttled black box: one call per
// account per poll tick, errors are skip-and-retry-next-tick.
type SubmissionSource interface {
	RecentAccepted(ctx context.Context, account string) ([]Submission, error)
}
