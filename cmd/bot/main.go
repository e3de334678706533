package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/Spok95/channel-pass-bot/internal/bot"
	"github.com/Spok95/channel-pass-bot/internal/config"
	"github.com/Spok95/channel-pass-bot/internal/dialog"
	"github.com/Spok95/channel-pass-bot/internal/domain/memberships"
	"github.com/Spok95/channel-pass-bot/internal/domain/tariffs"
	"github.com/Spok95/channel-pass-bot/internal/domain/tokens"
	"github.com/Spok95/channel-pass-bot/internal/domain/users"
	"github.com/Spok95/channel-pass-bot/internal/eventbus"
	"github.com/Spok95/channel-pass-bot/internal/infra/cache"
	"github.com/Spok95/channel-pass-bot/internal/infra/db"
	httpx "github.com/Spok95/channel-pass-bot/internal/infra/http"
	"github.com/Spok95/channel-pass-bot/internal/infra/logger"
	"github.com/Spok95/channel-pass-bot/internal/infra/metrics"
	"github.com/Spok95/channel-pass-bot/internal/reactors"
	"github.com/Spok95/channel-pass-bot/internal/sweeper"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

func runMigrations(dsn string) error {
	sqlDB, err := goose.OpenDBWithDriver("postgres", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()
	return goose.Up(sqlDB, "migrations")
}

func main() {
	cfg, err := config.Load("config/example.yaml")
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.App.Env)

	if err := runMigrations(cfg.Postgres.DSN); err != nil {
		log.Error("migrations failed", "err", err)
		return
	}
	log.Info("migrations applied")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Error("db connect failed", "err", err)
		return
	}
	defer pool.Close()
	log.Info("db connected")

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	// Репозитории
	usersRepo := users.NewRepo(pool)
	statesRepo := dialog.NewRepo(pool)
	tariffsRepo := tariffs.NewRepo(pool)
	tokensRepo := tokens.NewRepo(pool)
	membersRepo := memberships.NewRepo(pool)

	// Чтение тарифов — напрямую или через Redis-кэш
	var (
		tariffReader     tokens.TariffReader = tariffsRepo
		invalidateTariff func(ctx context.Context, id int64)
	)
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		defer func() { _ = rdb.Close() }()
		tariffCache := cache.NewTariffCache(rdb, tariffsRepo, cfg.Redis.TTL, logger.WithComponent(log, "tariff-cache"))
		tariffReader = tariffCache
		invalidateTariff = tariffCache.Invalidate
		log.Info("tariff cache enabled", "addr", cfg.Redis.Addr)
	}

	bus := eventbus.New(logger.WithComponent(log, "eventbus"),
		cfg.EventBus.HandlerTimeout, cfg.EventBus.MaxInflight, m)

	tokenSvc := tokens.NewService(tokensRepo, tariffReader, membersRepo, bus,
		logger.WithComponent(log, "tokens"), m)

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		log.Error("telegram init failed", "err", err)
		return
	}
	log.Info("telegram bot authorized", "username", api.Self.UserName)

	botUsername := cfg.Telegram.BotUsername
	if botUsername == "" {
		botUsername = api.Self.UserName
	}

	// Реакторы подписываются до первого события
	reactors.NewVIPSync(usersRepo, logger.WithComponent(log, "vip-sync")).Register(bus)
	reactors.NewNotifier(api, cfg.Telegram.AdminChatID, logger.WithComponent(log, "notifier")).Register(bus)

	sw := sweeper.New(tokensRepo, usersRepo, membersRepo, bus,
		logger.WithComponent(log, "sweeper"), m, cfg.Sweeper.Interval)
	go func() {
		if err := sw.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("sweeper stopped", "err", err)
		}
	}()

	srv := httpx.New(cfg.HTTP.Addr, cfg.Metrics.Enabled, reg)
	go func() {
		if err := srv.Start(); err != nil && err.Error() != "http: Server closed" {
			log.Error("http server error", "err", err)
		}
	}()
	log.Info("HTTP server started", "addr", cfg.HTTP.Addr)

	tg := bot.New(api, logger.WithComponent(log, "bot"),
		usersRepo, statesRepo, tariffsRepo, tokenSvc, tokensRepo,
		cfg.Telegram.AdminChatID, cfg.Telegram.ChannelID, botUsername,
		invalidateTariff)
	go func() {
		if err := tg.Run(ctx, 30); err != nil && ctx.Err() == nil {
			log.Error("bot stopped", "err", err)
		}
	}()
	log.Info("bot started")

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	if err := bus.Close(shutdownCtx); err != nil {
		log.Warn("event bus drain timed out", "err", err)
	}
	log.Info("graceful shutdown complete")
}
