package entrypoint

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/shelfmark/shelfmark/internal/config"
	"github.com/shelfmark/shelfmark/internal/covers"
	"github.com/shelfmark/shelfmark/internal/database"
	http_controllers "github.com/shelfmark/shelfmark/internal/http"
	"github.com/shelfmark/shelfmark/internal/maintenance"
	"github.com/shelfmark/shelfmark/internal/session"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(handler http.Handler, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: handler,
	}

	go func() {
		log.Printf("Starting server at %s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Call shutdown callback first (e.g., to stop the scheduler)
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting Shelfmark v%s", version)

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	coverStore, err := covers.NewStore(
		cfg.Covers.Dir,
		cfg.Covers.PublicPath,
		cfg.Covers.AllowedTypes,
		cfg.Covers.MaxUploadMB,
	)
	if err != nil {
		log.Fatalf("Failed to initialize cover storage: %v", err)
	}
	log.Printf("Cover storage initialized at %s", coverStore.Dir())

	// Sessions carry flash messages; they live in the catalog database.
	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatalf("Failed to get SQL DB for sessions: %v", err)
	}
	sessions, err := session.NewManager(sqlDB, cfg.Session)
	if err != nil {
		log.Fatalf("Failed to initialize session manager: %v", err)
	}

	csrfSecret := []byte(cfg.Session.Secret)
	if len(csrfSecret) == 0 {
		csrfSecret = make([]byte, 32)
		if _, err := rand.Read(csrfSecret); err != nil {
			log.Fatalf("Failed to generate CSRF secret: %v", err)
		}
		log.Printf("Generated session secret (set SESSION_SECRET to persist)")
	}

	// Periodic sweep for cover files no book references anymore
	var scheduler *cron.Cron
	if cfg.Maintenance.CoverCleanupEnabled {
		sweeper := maintenance.NewCoverSweeper(db, coverStore)
		scheduler = cron.New()
		if _, err := scheduler.AddFunc(cfg.Maintenance.CoverCleanupSchedule, sweeper.Run); err != nil {
			log.Fatalf("Invalid cover cleanup schedule %q: %v", cfg.Maintenance.CoverCleanupSchedule, err)
		}
		scheduler.Start()
		log.Printf("Cover cleanup scheduled: %s", cfg.Maintenance.CoverCleanupSchedule)
	}

	routerCfg := http_controllers.RouterConfig{
		Authors:       db,
		Books:         db,
		Home:          db,
		Covers:        coverStore,
		Sessions:      sessions,
		CSRFSecret:    csrfSecret,
		SecureCookies: cfg.Session.SecureCookies,
		TemplatesPath: cfg.UI.TemplatesPath,
		StaticPath:    cfg.UI.StaticPath,
	}

	router := http_controllers.NewRouter(routerCfg)
	handler := http_controllers.MethodOverride(router)

	onShutdown := func(ctx context.Context) {
		if scheduler != nil {
			stopCtx := scheduler.Stop()
			select {
			case <-stopCtx.Done():
			case <-ctx.Done():
			}
		}
	}

	Serve(handler, cfg, onShutdown)
}
