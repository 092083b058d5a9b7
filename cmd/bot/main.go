package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Freeeeeet/medbooking_bot/internal/apiclient"
	"github.com/Freeeeeet/medbooking_bot/internal/app"
	"github.com/Freeeeeet/medbooking_bot/internal/config"
	"github.com/Freeeeeet/medbooking_bot/internal/controller"
	"github.com/Freeeeeet/medbooking_bot/internal/controller/state"
	"github.com/Freeeeeet/medbooking_bot/internal/metrics"
	"github.com/Freeeeeet/medbooking_bot/internal/repository"
	"github.com/Freeeeeet/medbooking_bot/internal/service"
	"github.com/Freeeeeet/medbooking_bot/internal/service/appointments"
	"github.com/Freeeeeet/medbooking_bot/internal/service/booking"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment, cfg.LogLevel)
	defer logger.Sync()

	logger.Sugar().Infow("Starting medbooking bot",
		"environment", cfg.Environment,
		"api_base_url", cfg.APIBaseURL,
		"timezone", cfg.Timezone)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Bot stopped with error", zap.Error(err))
	}
	logger.Info("Bot stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	// База данных
	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return err
	}
	logger.Info("Connected to database")

	migrator, err := app.NewMigrator(pool, logger)
	if err != nil {
		return err
	}
	err = migrator.Run(ctx)
	_ = migrator.Close()
	if err != nil {
		return err
	}

	// Метрики
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	apiMetrics := metrics.NewAPIMetrics(registry)
	bookingMetrics := metrics.NewBookingMetrics(registry)

	// Репозитории и сервисы
	userRepo := repository.NewUserRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)

	apiClient := apiclient.NewClient(apiclient.Config{
		BaseURL:  cfg.APIBaseURL,
		Timeout:  cfg.APITimeout,
		Location: cfg.Location,
	}, logger, apiMetrics)

	userService := service.NewUserService(userRepo, logger)
	sessionService := service.NewSessionService(sessionRepo, apiClient, logger)
	apiClient.OnUnauthorized(sessionService.Invalidate)

	bookingManager := booking.NewManager(booking.Deps{
		Location: cfg.Location,
		Notifier: service.NopNotifier{},
		Metrics:  bookingMetrics,
		Logger:   logger,
		Now:      time.Now,
	})
	appointmentsManager := appointments.NewManager(appointments.Deps{
		Location: cfg.Location,
		Notifier: service.NopNotifier{},
		Metrics:  bookingMetrics,
		Logger:   logger,
	})

	checks := map[string]app.Pinger{"postgres": pool}

	// Хранилище состояний диалогов
	var stateStore state.Store = state.NewManager()
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return err
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
		stateStore = state.NewRedisManager(rdb, logger)
		checks["redis"] = app.PingFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
		logger.Info("Dialog state stored in Redis")
	}

	// Telegram
	b, err := bot.New(cfg.TelegramToken)
	if err != nil {
		return err
	}

	botController := controller.NewBotController(b, controller.Services{
		Users:        userService,
		Sessions:     sessionService,
		Booking:      bookingManager,
		Appointments: appointmentsManager,
		StateStore:   stateStore,
		Location:     cfg.Location,
	}, logger)
	if err := botController.RegisterHandlers(ctx); err != nil {
		// Без меню команд бот остаётся рабочим
		logger.Warn("Failed to register bot commands menu", zap.Error(err))
	}

	opsServer := app.NewOpsServer(cfg.OpsAddr, app.NewOpsRouter(checks, registry, logger), logger)
	scheduler := app.NewScheduler(sessionService, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return botController.Start(gctx)
	})
	g.Go(func() error {
		return opsServer.Run(gctx)
	})
	g.Go(func() error {
		return scheduler.Run(gctx)
	})

	return g.Wait()
}
