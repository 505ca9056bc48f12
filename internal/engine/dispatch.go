package engine

import (
	"context"
	"log/slog"

	"github.com/MRegirouard/StreakCode/internal/kit"
)

// Dispatch applies effects against the sink in emitted order. Delivery
// failures are logged with tenant context and never abort the remaining
// effects: a member's failed role update must not block the rest.
func Dispatch(ctx context.Context, sink kit.Sink, tenantID string, effects []Effect, log *slog.Logger) {
	for _, e := range effects {
		switch ef := e.(type) {
		case SendMessage:
			if err := sink.SendMessage(ctx, ef.ChannelID, ef.Text); err != nil {
				log.Warn("message send failed",
					slog.String("tenant", tenantID),
					slog.String("channel", ef.ChannelID),
					slog.Any("err", err))
			}
		case SetRole:
			if err := sink.SetMemberRole(ctx, tenantID, ef.MemberID, ef.RoleID, ef.Add); err != nil {
				log.Warn("role update failed",
					slog.String("tenant", tenantID),
					slog.String("member", ef.MemberID),
					slog.String("role", ef.RoleID),
					slog.Bool("add", ef.Add),
					slog.Any("err", err))
			}
		}
	}
}
