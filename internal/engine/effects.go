package engine

// Effect is one user-visible side effect produced by a rollover or a poll
// tick. Effects are values: produced in order, dispatched once, discarded.
type Effect interface {
	effect()
}

// SendMessage posts text to a channel.
type SendMessage struct {
	ChannelID string
	Text      string
}

// SetRole adds or removes a role on a guild member.
type SetRole struct {
	MemberID string
	RoleID   string
	Add      bool
}

func (SendMessage) effect() {}
func (SetRole) effect()     {}
