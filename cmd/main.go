package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/squad-tournaments/config"
	"github.com/Dosada05/squad-tournaments/db"
	"github.com/Dosada05/squad-tournaments/handlers"
	"github.com/Dosada05/squad-tournaments/middleware"
	"github.com/Dosada05/squad-tournaments/repositories"
	api "github.com/Dosada05/squad-tournaments/routes"
	"github.com/Dosada05/squad-tournaments/services"
	"github.com/Dosada05/squad-tournaments/storage"
	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
)

// @title Squad Tournaments API
// @version 1.0
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	printSchema := flag.Bool("print-schema", false, "print the database schema and exit")
	flag.Parse()
	if *printSchema {
		fmt.Print(db.Schema())
		return
	}

	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded",
		slog.Int("port", cfg.ServerPort),
		slog.Bool("enforce_capacity", cfg.EnforceCapacity),
		slog.Int("max_maps_per_tournament", cfg.MaxMapsPerTournament),
		slog.String("placement_points", config.FormatPlacementPoints(cfg.PlacementPoints)))

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeDB(logger, "player", dbConn)

	// Модераторские операции идут через отдельное подключение с повышенными правами
	moderatorConn := dbConn
	if cfg.ModeratorDatabaseURL != cfg.DatabaseURL {
		moderatorConn, err = db.Connect(cfg.ModeratorDatabaseURL, 5*time.Second)
		if err != nil {
			logger.Error("failed to connect to moderator database", slog.Any("error", err))
			os.Exit(1)
		}
		defer closeDB(logger, "moderator", moderatorConn)
	} else {
		logger.Warn("MODERATOR_DATABASE_URL not set, moderator operations share the player connection")
	}
	logger.Info("database connection established")

	if cfg.AutoMigrate {
		migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := db.Migrate(migrateCtx, moderatorConn)
		cancel()
		if err != nil {
			logger.Error("failed to apply schema", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("database schema applied")
	}

	// Инициализация загрузчика файлов (Cloudflare R2)
	var uploader storage.FileUploader
	if cfg.R2AccountID != "" && cfg.R2BucketName != "" {
		uploader, err = storage.NewCloudflareR2Uploader(context.Background(), storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized", slog.String("bucket", cfg.R2BucketName))
	} else {
		logger.Warn("R2 is not configured, scoreboard uploads are disabled")
	}

	// Инициализация репозиториев
	playerRepo := repositories.NewPostgresPlayerRepository(dbConn)
	teamRepo := repositories.NewPostgresTeamRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	registrationRepo := repositories.NewPostgresRegistrationRepository(dbConn)
	submissionRepo := repositories.NewPostgresSubmissionRepository(dbConn)
	snapshotRepo := repositories.NewPostgresLeaderboardSnapshotRepository(moderatorConn)
	moderationRepo := repositories.NewPostgresModerationRepository(moderatorConn)
	logger.Info("Repositories initialized")

	// Инициализация сервисов
	players := services.NewPlayerDirectory(playerRepo, logger)
	teamService := services.NewTeamService(teamRepo, moderationRepo, players, logger)
	registrationService := services.NewRegistrationService(
		registrationRepo,
		teamRepo,
		tournamentRepo,
		moderationRepo,
		players,
		services.RegistrationServiceOptions{EnforceCapacity: cfg.EnforceCapacity},
		logger,
	)
	submissionService := services.NewSubmissionService(
		submissionRepo,
		registrationRepo,
		teamRepo,
		tournamentRepo,
		moderationRepo,
		uploader,
		players,
		services.SubmissionServiceOptions{
			MaxMapsPerTournament: cfg.MaxMapsPerTournament,
			ScoreboardURLTTL:     cfg.ScoreboardURLTTL,
		},
		logger,
	)
	leaderboardService := services.NewLeaderboardService(
		submissionRepo,
		registrationRepo,
		tournamentRepo,
		snapshotRepo,
		services.ScoringRules{PlacementPoints: cfg.PlacementPoints, PointsPerKill: cfg.PointsPerKill},
		logger,
	)
	logger.Info("Services initialized")

	// Запуск планировщика обновления снимков таблицы лидеров
	scheduler, err := services.StartLeaderboardScheduler(leaderboardService, cfg.LeaderboardSnapshotInterval, logger)
	if err != nil {
		logger.Error("failed to start leaderboard scheduler", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := scheduler.Shutdown(); err != nil {
			logger.Error("failed to stop leaderboard scheduler", slog.Any("error", err))
		}
	}()

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(router, middleware.NewAuthenticator(cfg.JWTSecretKey, logger), cfg.CORSAllowedOrigins, api.Handlers{
		Team:         handlers.NewTeamHandler(teamService),
		Registration: handlers.NewRegistrationHandler(registrationService),
		Submission:   handlers.NewSubmissionHandler(submissionService),
		Leaderboard:  handlers.NewLeaderboardHandler(leaderboardService),
		Moderation:   handlers.NewModerationHandler(teamService, registrationService, submissionService),
	})
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
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

func closeDB(logger *slog.Logger, name string, conn *sql.DB) {
	if err := conn.Close(); err != nil {
		logger.Error("failed to close database connection", slog.String("pool", name), slog.Any("error", err))
		return
	}
	logger.Info("database connection closed", slog.String("pool", name))
}
