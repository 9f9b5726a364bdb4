package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/NasaVasa/nestwatch/internal/config"
	"github.com/NasaVasa/nestwatch/internal/delivery/rest"
	"github.com/NasaVasa/nestwatch/internal/delivery/telegram"
	"github.com/NasaVasa/nestwatch/internal/domain"
	"github.com/NasaVasa/nestwatch/internal/infra/catalogapi"
	"github.com/NasaVasa/nestwatch/internal/infra/db"
	"github.com/NasaVasa/nestwatch/internal/infra/events"
	"github.com/NasaVasa/nestwatch/internal/infra/lease"
	"github.com/NasaVasa/nestwatch/internal/infra/log"
	"github.com/NasaVasa/nestwatch/internal/usecase"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	passes   *usecase.PassCoordinator
	server   *rest.Server
	passLoop *usecase.PassLoop
	delivery *usecase.DeliveryWorker
	bot      *telegram.Bot
	logger   *zap.Logger
	closers  []func() error
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := log.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	a := &App{logger: logger}
	if err := a.build(ctx, cfg); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context, cfg config.Config) error {
	logger := a.logger

	dbConn, err := db.Open(cfg, logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	a.closers = append(a.closers, func() error { return db.Close(dbConn) })

	userRepo := db.NewUserRepository(dbConn)
	alertRepo := db.NewAlertRepository(dbConn)
	notificationRepo := db.NewNotificationRepository(dbConn)

	var catalog domain.PropertyCatalog = db.NewPropertyRepository(dbConn)
	if cfg.CatalogBackend == config.CatalogBackendHTTP {
		catalog = catalogapi.NewClient(cfg.CatalogAPIBaseURL, cfg.CatalogTimeout, logger.Named("catalog"))
	}

	checks := map[string]rest.HealthCheck{"postgres": pingDB(dbConn)}

	var (
		alertLease domain.AlertLease = lease.NewMemoryLease()
		feed       domain.NotificationFeed
		publishers []domain.EventPublisher
	)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		a.closers = append(a.closers, redisClient.Close)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		alertLease = lease.NewRedisLease(redisClient, logger)
		feed = events.NewRedisSubscriber(redisClient)
		publishers = append(publishers, events.NewRedisPublisher(redisClient, logger))
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	} else {
		logger.Info("REDIS_ADDR not set, using in-process alert lease and no live stream")
	}

	if cfg.RabbitMQURL != "" {
		rabbit, err := events.NewRabbitPublisher(cfg.RabbitMQURL, cfg.NotificationsExchange, logger)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, rabbit.Close)
		publishers = append(publishers, rabbit)
	}

	emitter := usecase.NewEmitter(notificationRepo, alertRepo, events.NewMulti(publishers...), logger)
	coordinator := usecase.NewPassCoordinator(alertRepo, catalog, emitter, alertLease, usecase.PassConfig{
		Workers:        cfg.PassWorkers,
		CatalogTimeout: cfg.CatalogTimeout,
		LeaseTTL:       cfg.AlertLeaseTTL,
	}, logger.Named("pass"))
	a.passes = coordinator
	a.passLoop = usecase.NewPassLoop(coordinator, cfg.PassInterval, logger)

	if cfg.TelegramBotToken != "" {
		api, err := telegram.NewAPI(cfg.TelegramBotToken)
		if err != nil {
			return fmt.Errorf("telegram: %w", err)
		}
		userUC := usecase.NewUserUsecase(userRepo)
		alertUC := usecase.NewAlertUsecase(userRepo, alertRepo, notificationRepo)
		handlers := telegram.NewHandlers(userUC, alertUC, logger)
		a.bot = telegram.NewBot(api, handlers, cfg.TelegramPollTimeout, logger)

		notifier := telegram.NewNotifier(api, logger)
		a.delivery = usecase.NewDeliveryWorker(notificationRepo, userRepo, notifier, cfg.DeliveryBatchSize, cfg.DeliveryInterval, logger.Named("delivery"))
	} else {
		logger.Info("TELEGRAM_BOT_TOKEN not set, bot and delivery disabled")
	}

	restHandlers := rest.NewHandlers(coordinator, notificationRepo, feed, checks, logger)
	a.server = rest.NewServer(cfg.HTTPAddr, restHandlers, logger)
	return nil
}

func (a *App) Run(ctx context.Context) error {
	a.logger.Info("nestwatch service starting")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := a.server.Start(); err != nil {
			errCh <- err
		}
	}()

	if a.delivery != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.delivery.Run(ctx)
		}()
	}
	if a.bot != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.bot.Start(ctx); err != nil {
				errCh <- err
			}
		}()
	}

	a.passLoop.Start(ctx)
	a.logger.Info("nestwatch service started")

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		a.logger.Error("component failed", zap.Error(runErr))
	}

	cancel()
	a.passLoop.Stop()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := a.server.Stop(shutdownCtx); err != nil {
		a.logger.Warn("http server shutdown failed", zap.Error(err))
	}

	wg.Wait()
	return runErr
}

// RunOnce performs a single pass without starting the long-running components.
func (a *App) RunOnce(ctx context.Context, now time.Time) (usecase.PassSummary, error) {
	return a.passes.Run(ctx, now.UTC())
}

func (a *App) Shutdown() {
	a.logger.Info("nestwatch service shutting down")
	a.close()
	_ = a.logger.Sync()
}

func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("failed to close resource", zap.Error(err))
		}
	}
	a.closers = nil
}

func pingDB(conn *gorm.DB) rest.HealthCheck {
	return func(ctx context.Context) error {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}
