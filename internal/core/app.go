package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/MRegirouard/StreakCode/internal/adapters/discord"
	"github.com/MRegirouard/StreakCode/internal/config"
	"github.com/MRegirouard/StreakCode/internal/leetcode"
	"github.com/MRegirouard/StreakCode/internal/logging"
	"github.com/MRegirouard/StreakCode/internal/poller"
	"github.com/MRegirouard/StreakCode/internal/scheduler"
	"github.com/MRegirouard/StreakCode/internal/storage"
	logx "github.com/MRegirouard/StreakCode/pkg/logx"
)

// App wires configuration, logging, storage, the Discord adapter, the
// per-tenant scheduler and the submission poller into one process.
type App struct {
	cfgPath string
	cfgm    *config.Manager

	logs *logging.Service
	log  *slog.Logger

	adapter *discord.Adapter
	store   storage.Store
	sched   *scheduler.Service
	poll    *poller.Service
	ops     *Ops

	stopMu  sync.Mutex
	stopFns []func()
	started bool

	cfgMu  sync.Mutex
	curCfg *config.Config
}

func NewApp(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	bootLog := logx.NewConsole(cfg.Logging.Level)
	cfgm.SetLogger(bootLog.With(logx.String("comp", "config")))

	ad, err := discord.New(discord.Config{Token: cfg.Discord.Token},
		slog.New(logging.NewPrettyHandler(logging.Stdout(), slog.LevelInfo)).
			With(slog.String("comp", "discord")))
	if err != nil {
		return nil, err
	}

	logSvc, log := logging.New(mapLogging(cfg), ad)
	log = log.With(slog.String("comp", "app"))

	busyTimeout, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busyTimeout,
	}, bootLog.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	lcTimeout, err := config.ParseDurationField("leetcode.timeout", cfg.LeetCode.Timeout)
	if err != nil {
		return nil, err
	}
	source := leetcode.New(leetcode.Config{
		Endpoint: cfg.LeetCode.Endpoint,
		Limit:    cfg.LeetCode.Limit,
		Timeout:  lcTimeout,
	}, log.With(slog.String("comp", "leetcode")))

	pollInterval, err := config.ParseDurationField("poller.interval", cfg.Poller.Interval)
	if err != nil {
		return nil, err
	}

	sched := scheduler.New(store, ad, log.With(slog.String("comp", "scheduler")))
	poll := poller.New(poller.Config{Interval: pollInterval},
		store, source, ad, log.With(slog.String("comp", "poller")))
	ops := NewOps(store, sched, log.With(slog.String("comp", "ops")))

	return &App{
		cfgPath: cfgPath,
		cfgm:    cfgm,
		logs:    logSvc,
		log:     log,
		adapter: ad,
		store:   store,
		sched:   sched,
		poll:    poll,
		ops:     ops,
		curCfg:  cfg,
	}, nil
}

func (a *App) Start(ctx context.Context) error {
	a.stopMu.Lock()
	defer a.stopMu.Unlock()
	if a.started {
		return nil
	}

	if err := a.adapter.Start(ctx); err != nil {
		return err
	}
	if err := a.sched.Start(ctx); err != nil {
		_ = a.adapter.Stop(ctx)
		return err
	}
	a.poll.Start(ctx)

	// Config hot reload: log settings and poll interval apply live; token
	// and storage changes need a restart and are called out in the log.
	watchCtx, watchCancel := context.WithCancel(context.WithoutCancel(ctx))
	sub := a.cfgm.Subscribe(1)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = a.cfgm.Watch(watchCtx)
	}()
	go func() {
		defer wg.Done()
		for {
			select {
			case <-watchCtx.Done():
				return
			case cfg, ok := <-sub:
				if !ok {
					return
				}
				a.applyConfig(cfg)
			}
		}
	}()
	a.stopFns = append(a.stopFns, func() {
		watchCancel()
		a.cfgm.Unsubscribe(sub)
		wg.Wait()
	})

	a.started = true
	a.log.Info("bot started")
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	a.stopMu.Lock()
	defer a.stopMu.Unlock()
	if !a.started {
		return nil
	}
	a.started = false

	for _, fn := range a.stopFns {
		fn()
	}
	a.stopFns = nil

	a.poll.Stop(ctx)
	a.sched.Stop(ctx)
	err := a.adapter.Stop(ctx)
	_ = a.logs.Close()
	if cerr := a.store.Close(); err == nil {
		err = cerr
	}
	a.log.Info("bot stopped")
	return err
}

func (a *App) applyConfig(cfg *config.Config) {
	a.logs.Apply(mapLogging(cfg))
	if d, err := config.ParseDurationField("poller.interval", cfg.Poller.Interval); err == nil && d > 0 {
		a.poll.SetInterval(d)
	}

	a.cfgMu.Lock()
	old := a.curCfg
	a.curCfg = cfg
	a.cfgMu.Unlock()
	if old != nil && (old.Discord.Token != cfg.Discord.Token ||
		old.Storage != cfg.Storage) {
		a.log.Warn("discord/storage config changed; restart required to apply")
	}
	a.log.Info("config applied")
}

// Ops exposes the validated tenant-mutation API.
func (a *App) Ops() *Ops { return a.ops }

// TriggerRolloverNow runs one tenant's rollover outside its timer.
func (a *App) TriggerRolloverNow(tenantID string) error {
	return a.sched.TriggerNow(tenantID)
}

// PollOnce runs one dedup poll cycle outside the ticker.
func (a *App) PollOnce(ctx context.Context) error {
	return a.poll.PollOnce(ctx)
}

func mapLogging(cfg *config.Config) logging.Config {
	return logging.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logging.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Discord: logging.DiscordConfig{
			Enabled:    cfg.Logging.Discord.Enabled,
			ChannelID:  cfg.Discord.LogChannel,
			MinLevel:   cfg.Logging.Discord.MinLevel,
			RatePerSec: cfg.Logging.Discord.RatePerSec,
		},
	}
}
