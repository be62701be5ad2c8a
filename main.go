package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"dashboard/internal/api_client"
	"dashboard/internal/audit"
	"dashboard/internal/config"
	"dashboard/internal/crypto"
	"dashboard/internal/event_notifier"
	"dashboard/internal/handler"
	"dashboard/internal/middleware"
	"dashboard/internal/repository"
	"dashboard/internal/server"
	"dashboard/internal/service"
	"dashboard/internal/shell"
	"dashboard/internal/telegram_bot"
	"dashboard/internal/views"
	"dashboard/internal/web"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yml", "path to the YAML config")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync() // Flushes buffer, if any
	}()

	accessLog := logrus.New()
	accessLog.SetFormatter(&logrus.JSONFormatter{})
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	baseURL, err := cfg.APIBaseURL()
	if err != nil {
		logger.Fatal("Failed to resolve API base URL", zap.Error(err))
	}
	api := api_client.NewClient(baseURL, cfg.API.Timeout, logger)
	logger.Info("Monitoring API configured", zap.String("base_url", baseURL), zap.String("environment", cfg.API.Environment))

	// Session storage
	var (
		sessionRepo repository.SessionRepository
		db          *repository.DB
	)
	switch cfg.Session.Backend {
	case "memory":
		sessionRepo = repository.NewMemorySessionRepository()
	case "postgres", "sqlite":
		db = openDB(cfg, logger)
		sessionRepo = repository.NewSQLSessionRepository(db, logger)
	default:
		logger.Fatal("Unknown session backend", zap.String("backend", cfg.Session.Backend))
	}
	if db != nil {
		defer db.Close()
	}

	tokenCipher, err := crypto.NewTokenCipher(cfg.Security.Secret)
	if err != nil {
		logger.Fatal("Failed to initialize token cipher", zap.Error(err))
	}

	var auditSink audit.Sink
	if len(cfg.Audit.Brokers) > 0 {
		auditSink = audit.NewKafkaSink(cfg.Audit.Brokers, cfg.Audit.Topic, logger)
		logger.Info("Audit trail published to Kafka", zap.Strings("brokers", cfg.Audit.Brokers), zap.String("topic", cfg.Audit.Topic))
	} else {
		auditSink = audit.NewLogSink(logger)
	}
	defer auditSink.Close()

	sessions := service.NewSessionService(sessionRepo, api, tokenCipher, auditSink, cfg.Session.TTL, logger)
	cookie := middleware.SessionCookie{Name: cfg.Session.CookieName, Secure: cfg.Session.SecureCookie}

	templates, err := web.Templates()
	if err != nil {
		logger.Fatal("Failed to parse templates", zap.Error(err))
	}

	h := handler.NewHandler(sessions, cookie, shell.NewLayout(), views.NewRegistry(), logger)
	srv := server.NewServer(server.Options{
		Handler:   h,
		Sessions:  sessions,
		Cookie:    cookie,
		Templates: templates,
		AccessLog: accessLog,
		Logger:    logger,
	})

	// Context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go sessions.RunPurge(ctx, cfg.Session.PurgeInterval)

	if cfg.Notifier.Enabled {
		subsDB := db
		if subsDB == nil {
			subsDB = openSQLite(cfg, logger)
			defer subsDB.Close()
		}
		startNotifier(ctx, cfg, api, repository.NewSubscriptionRepository(subsDB, logger), accessLog, logger)
	}

	if err := srv.Run(ctx, cfg.Server.Port, cfg.Server.ShutdownTimeout); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
	}

	logger.Info("Application stopped.")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if cfg.Log.Development {
		zapCfg = zap.NewDevelopmentConfig()
	}
	if cfg.Log.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Log.Level)
		if err != nil {
			return nil, err
		}
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}
	return zapCfg.Build()
}

func openDB(cfg *config.Config, logger *zap.Logger) *repository.DB {
	if cfg.Session.Backend == "sqlite" {
		return openSQLite(cfg, logger)
	}

	db, err := repository.NewPostgresDB(cfg.Database.URL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := repository.MigrateDB(db, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	return db
}

func openSQLite(cfg *config.Config, logger *zap.Logger) *repository.DB {
	db, err := repository.NewSQLiteDB(cfg.Database.SQLitePath, logger)
	if err != nil {
		logger.Fatal("Failed to open SQLite database", zap.Error(err))
	}
	if err := repository.MigrateDB(db, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	return db
}

// startNotifier runs the Telegram bot and the event poller with a service
// account of their own.
func startNotifier(ctx context.Context, cfg *config.Config, api *api_client.Client, subs repository.SubscriptionRepository, libLog *logrus.Logger, logger *zap.Logger) {
	account := api.WithCredentials(api_client.NewAccountCredentials(api, cfg.Notifier.Login, cfg.Notifier.Password))

	bot, err := telegram_bot.NewBot(cfg.Notifier.TelegramBotToken, account, subs, libLog, logger)
	if err != nil {
		logger.Warn("Failed to initialize Telegram bot, continuing without notifications", zap.Error(err))
		return
	}

	go func() {
		if err := bot.Start(ctx); err != nil {
			logger.Error("Telegram bot failed", zap.Error(err))
		}
	}()

	notifier := event_notifier.NewNotifier(account, subs, bot, cfg.Notifier.PollInterval, logger.Named("notifier"))
	go notifier.Run(ctx)
}
