package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Versifine/hamster/internal/config"
	"github.com/Versifine/hamster/internal/event"
	"github.com/Versifine/hamster/internal/hook"
	"github.com/Versifine/hamster/internal/logger"
	"github.com/Versifine/hamster/internal/proxy"
	"github.com/Versifine/hamster/internal/scheduler"
	"github.com/Versifine/hamster/internal/session"
	"github.com/Versifine/hamster/internal/symbol"
	"github.com/Versifine/hamster/internal/wire"
)

func main() {

	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	cfg.Defaults()
	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
		Color:  cfg.Logging.Color,
	}); err != nil {
		slog.Error("Failed to init logger", "error", err)
		os.Exit(1)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	prof := hostProfile(cfg.Host)
	reg := symbol.NewRegistry()
	if err := proxy.RegisterTypes(reg, prof); err != nil {
		slog.Error("Failed to register host types", "error", err)
		os.Exit(1)
	}
	version := cfg.Symbols.Version
	if version == "" {
		version = symbol.DetectVersion(reg, symbol.MinecraftLegacyPrefix)
	}
	resolver := symbol.NewMinecraft(reg, version, symbol.MergeRenames(symbol.DefaultRenames, cfg.Symbols.Renames))
	slog.Info("Host profile", "release", prof.Name, "protocol", prof.Protocol, "version", version)

	sched, err := scheduler.New(time.Duration(cfg.Scheduler.TickMillis)*time.Millisecond, cfg.Scheduler.Workers)
	if err != nil {
		slog.Error("Failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Close()

	hooks := hook.NewRegistry()
	if cfg.Logging.Level == "debug" {
		hooks.Register(packetTrace{})
	}
	bus := event.NewBus()
	manager := session.NewManager(resolver, sched, retryPolicy(cfg.Injection), session.WithHooks(hooks))
	manager.Subscribe(bus)

	server := proxy.NewServer(cfg.Listen.Addr(), cfg.Backend.Addr(), bus)
	err = server.Start(ctx)
	manager.Close()
	stats := resolver.Stats()
	slog.Info("Symbol resolver stats", "sweeps", stats.Sweeps, "scans", stats.Scans)
	if err != nil {
		slog.Error("Failed to start server", "error", err)
		os.Exit(1)
	}

}

func hostProfile(cfg config.HostConfig) wire.Profile {
	if cfg.ProtocolVersion > 0 {
		return wire.ProfileFor(int32(cfg.ProtocolVersion))
	}
	if cfg.Legacy {
		return wire.ProfileLegacy
	}
	return wire.ProfileModern
}

func retryPolicy(cfg config.InjectionConfig) session.RetryPolicy {
	return session.RetryPolicy{
		Attempts:        max(cfg.RetryAttempts, 0),
		Delay:           cfg.RetryDelayTicks,
		ReconcileDelay:  cfg.ReconcileDelayTicks,
		ReconcilePeriod: cfg.ReconcilePeriodTicks,
	}
}

// packetTrace logs every decoded message crossing a session.
type packetTrace struct{}

func (packetTrace) OnReceive(e *hook.ReceiveEvent) {
	slog.Debug("C->S", "name", e.Player, "packet", e.Message.Name())
}

func (packetTrace) OnSend(e *hook.SendEvent) {
	slog.Debug("S->C", "name", e.Player, "packet", e.Message.Name())
}
