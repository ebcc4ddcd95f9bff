package entrypoint

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/shelfwise/shelfwise/internal/auth"
	"github.com/shelfwise/shelfwise/internal/config"
	"github.com/shelfwise/shelfwise/internal/database"
	"github.com/shelfwise/shelfwise/internal/database/books"
	"github.com/shelfwise/shelfwise/internal/database/sections"
	"github.com/shelfwise/shelfwise/internal/database/users"
	"github.com/shelfwise/shelfwise/internal/feedback"
	http_controllers "github.com/shelfwise/shelfwise/internal/http"
	"github.com/shelfwise/shelfwise/internal/ledger"
	"github.com/shelfwise/shelfwise/internal/notify"
	"github.com/shelfwise/shelfwise/internal/stats"
	"github.com/shelfwise/shelfwise/internal/storage"
	"github.com/shelfwise/shelfwise/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// Wait for SIGINT/SIGTERM, then drain with a timeout.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Call shutdown callback first (e.g., to stop task queue and cron)
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting Shelfwise v%s", version)

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	// Initialize database
	db, err := database.New(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatalf("Failed to get SQL DB for sessions: %v", err)
	}

	// File storage for pictures and PDFs
	files, err := storage.NewLocalStore(cfg.Storage.UploadDir)
	if err != nil {
		log.Fatalf("Failed to initialize file storage: %v", err)
	}

	// Repositories
	usersRepo := users.NewRepository(db.DB)
	sectionsRepo := sections.NewRepository(db.DB)
	booksRepo := books.NewRepository(db.DB)

	// Session manager backed by the main database
	sessionManager, err := auth.NewSessionManager(sqlDB, cfg.Auth)
	if err != nil {
		log.Fatalf("Failed to initialize session manager: %v", err)
	}

	// Session signing and reset-token secrets; generated when unset so a
	// bare dev setup still boots.
	sessionSecret := cfg.Auth.SessionSecret
	if sessionSecret == "" {
		sessionSecret, err = auth.GenerateSessionSecret()
		if err != nil {
			log.Fatalf("Failed to generate session secret: %v", err)
		}
		log.Printf("Generated session secret (set AUTH_SESSION_SECRET to persist)")
	}
	csrfSecret, err := hex.DecodeString(sessionSecret)
	if err != nil {
		// Not hex, use as raw bytes
		csrfSecret = []byte(sessionSecret)
	}

	resetSecret := cfg.Auth.ResetSecret
	if resetSecret == "" {
		resetSecret, err = auth.GenerateSessionSecret()
		if err != nil {
			log.Fatalf("Failed to generate reset secret: %v", err)
		}
		log.Printf("Generated reset token secret (set AUTH_RESET_SECRET to persist)")
	}
	resetTokens := auth.NewResetTokens(resetSecret, cfg.Auth.ResetExpiry)

	mailer := notify.NewSMTPMailer(cfg.Mail)

	// Task queue for asynchronous reset email delivery; falls back to
	// inline sending when disabled.
	var resetMailer auth.ResetMailer = notify.NewResetLinkSender(mailer, cfg.Mail.BaseURL)
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	if cfg.Tasks.Enabled {
		taskCfg := tasks.Config{
			Workers:         cfg.Tasks.Workers,
			ReleaseAfter:    cfg.Tasks.ReleaseAfter,
			CleanupInterval: cfg.Tasks.CleanupInterval,
		}

		taskClient, err = tasks.NewClient(cfg.Database.Path, taskCfg)
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		taskClient.Register(
			tasks.NewSendResetQueue(mailer, cfg.Mail.BaseURL),
		)
		resetMailer = tasks.NewResetDispatcher(taskClient)

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)
	}

	// Domain services
	authService := auth.NewService(usersRepo, resetTokens, resetMailer, cfg.Auth, logger)
	authMiddleware := auth.NewMiddleware(authService, sessionManager)
	ledgerService := ledger.NewService(db.DB, logger)
	feedbackService := feedback.NewService(db.DB, logger)
	statsService := stats.NewService(db.DB)

	// Nightly cleanup of expired session rows
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Sessions.PurgeSchedule, func() {
		purged, err := auth.PurgeExpired(sqlDB)
		if err != nil {
			logger.Error("session purge failed", zap.Error(err))
			return
		}
		logger.Info("purged expired sessions", zap.Int64("count", purged))
	}); err != nil {
		log.Fatalf("Invalid session purge schedule %q: %v", cfg.Sessions.PurgeSchedule, err)
	}
	scheduler.Start()

	routerCfg := http_controllers.RouterConfig{
		Database:       db,
		Logger:         logger,
		Ledger:         ledgerService,
		Feedback:       feedbackService,
		Stats:          statsService,
		Sections:       sectionsRepo,
		Books:          booksRepo,
		AuthService:    authService,
		AuthMiddleware: authMiddleware,
		SessionManager: sessionManager,
		CSRFSecret:     csrfSecret,
		SecureCookies:  cfg.Auth.SecureCookies,
		Files:          files,
		UploadDir:      cfg.Storage.UploadDir,
		Version:        version,
	}

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		scheduler.Stop()
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
	}

	Serve(router, cfg, onShutdown)
}
