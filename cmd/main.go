package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/carnival-system/config"
	"github.com/Dosada05/carnival-system/db"
	"github.com/Dosada05/carnival-system/handlers"
	"github.com/Dosada05/carnival-system/live"
	"github.com/Dosada05/carnival-system/repositories"
	api "github.com/Dosada05/carnival-system/routes"
	"github.com/Dosada05/carnival-system/services"
	"github.com/Dosada05/carnival-system/storage"
	"github.com/go-chi/chi/v5"
)

// @title Carnival System API
// @version 1.0
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	// Загрузчик промо-изображений (Cloudflare R2) необязателен
	var uploader storage.FileUploader
	r2Cfg := storage.CloudflareR2UploaderConfig{
		AccountID:       cfg.R2.AccountID,
		AccessKeyID:     cfg.R2.AccessKeyID,
		SecretAccessKey: cfg.R2.SecretAccessKey,
		BucketName:      cfg.R2.BucketName,
		PublicBaseURL:   cfg.R2.PublicBaseURL,
	}
	if r2Cfg.Enabled() {
		uploader, err = storage.NewCloudflareR2Uploader(ctx, r2Cfg)
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Warn("R2 storage not configured, promo image uploads disabled")
	}

	// Инициализация WebSocket Hub
	wsHub := live.NewHub(logger)
	go wsHub.Run(ctx)
	logger.Info("WebSocket Hub started")

	// Уведомления по email
	var notifier services.Notifier = services.NopNotifier{}
	if cfg.SMTPEnabled() {
		emailNotifier := services.NewEmailNotifier(services.NewEmailService(cfg), services.DispatcherConfig{
			QueueSize:   cfg.Notify.QueueSize,
			RatePerSec:  cfg.Notify.RatePerSec,
			Timeout:     cfg.Notify.Timeout,
			MaxAttempts: cfg.Notify.MaxAttempts,
			PublicURL:   cfg.PublicURL,
		}, logger)
		emailNotifier.Start(ctx)
		defer emailNotifier.Stop()
		notifier = emailNotifier
		logger.Info("email notifier started", slog.Int("queue_size", cfg.Notify.QueueSize))
	} else {
		logger.Warn("SMTP not configured, notifications disabled")
	}

	// Инициализация репозиториев
	userRepo := repositories.NewPostgresUserRepository(dbConn)
	clubRepo := repositories.NewPostgresClubRepository(dbConn)
	carnivalRepo := repositories.NewPostgresCarnivalRepository(dbConn)
	regRepo := repositories.NewPostgresRegistrationRepository(dbConn)
	assignRepo := repositories.NewPostgresPlayerAssignmentRepository(dbConn)
	transactor := repositories.NewPostgresTransactor(dbConn, logger)
	logger.Info("Repositories initialized")

	// Инициализация сервисов
	authService := services.NewAuthService(userRepo)
	carnivalService := services.NewCarnivalService(
		transactor, carnivalRepo, regRepo, assignRepo, userRepo, clubRepo, uploader, logger,
	).WithEvents(wsHub)
	ownershipService := services.NewOwnershipService(
		transactor, carnivalRepo, regRepo, assignRepo, userRepo, clubRepo, notifier, logger,
	).WithEvents(wsHub)
	registrationService := services.NewRegistrationService(
		transactor, carnivalRepo, regRepo, assignRepo, userRepo, clubRepo, notifier, logger,
	).WithEvents(wsHub)
	logger.Info("Services initialized")

	// Периодическая сверка счётчиков регистраций
	if cfg.ReconcileInterval > 0 {
		go func() {
			ticker := time.NewTicker(cfg.ReconcileInterval)
			defer ticker.Stop()
			logger.Info("counter reconciliation scheduler started", slog.Duration("interval", cfg.ReconcileInterval))

			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					repaired, err := carnivalService.ReconcileCounters(ctx)
					if err != nil {
						logger.Error("Scheduler: counter reconciliation failed", slog.Any("error", err))
						continue
					}
					logger.Info("Scheduler: counter reconciliation finished", slog.Int("repaired", repaired))
				}
			}
		}()
	}

	// Инициализация обработчиков HTTP
	h := api.Handlers{
		Auth:          handlers.NewAuthHandler(authService, cfg.JWTSecretKey),
		Carnivals:     handlers.NewCarnivalHandler(carnivalService),
		Ownership:     handlers.NewOwnershipHandler(ownershipService),
		Registrations: handlers.NewRegistrationHandler(registrationService),
		WebSocket:     handlers.NewWebSocketHandler(wsHub, carnivalService, cfg.CORSAllowedOrigins, logger),
	}
	logger.Info("HTTP handlers initialized")

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(router, h, cfg.JWTSecretKey, cfg.CORSAllowedOrigins)
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			return
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
		} else {
			logger.Info("server shutdown complete")
		}
	}
	logger.Info("application exited")
}
