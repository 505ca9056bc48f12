// Package discord adapts the bot's notification surface onto Discord.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
)

type Config struct {
	Token string
}

// Adapter implements kit.Sink over a single gateway session.
type Adapter struct {
	cfg Config
	log *slog.Logger

	session *discordgo.Session

	runMu   sync.Mutex
	running bool
}

func New(cfg Config, log *slog.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("discord token is empty")
	}
	s, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, err
	}
	// Role and message management only; no privileged message-content intent.
	s.Identify.Intents = discordgo.IntentsGuilds
	return &Adapter{cfg: cfg, log: log, session: s}, nil
}

func (a *Adapter) Start(ctx context.Context) error {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	if a.running {
		return nil
	}

	a.session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		a.log.Info("discord session ready",
			slog.String("user", r.User.Username),
			slog.Int("guilds", len(r.Guilds)))
	})

	if err := a.session.Open(); err != nil {
		return fmt.Errorf("discord open: %w", err)
	}
	a.running = true
	return nil
}

func (a *Adapter) Stop(ctx context.Context) error {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	if !a.running {
		return nil
	}
	a.running = false
	return a.session.Close()
}

func (a *Adapter) SendMessage(ctx context.Context, channelID, text string) error {
	if channelID == "" {
		return errors.New("send: empty channel id")
	}
	_, err := a.session.ChannelMessageSend(channelID, text, discordgo.WithContext(ctx))
	return err
}

func (a *Adapter) SetMemberRole(ctx context.Context, guildID, memberID, roleID string, add bool) error {
	if guildID == "" || memberID == "" || roleID == "" {
		return errors.New("role update: empty id")
	}
	if add {
		return a.session.GuildMemberRoleAdd(guildID, memberID, roleID, discordgo.WithContext(ctx))
	}
	return a.session.GuildMemberRoleRemove(guildID, memberID, roleID, discordgo.WithContext(ctx))
}
