package entrypoint

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/circulation/internal/audit"
	"github.com/mrlokans/circulation/internal/config"
	"github.com/mrlokans/circulation/internal/controller"
	"github.com/mrlokans/circulation/internal/database"
	"github.com/mrlokans/circulation/internal/downloads"
	"github.com/mrlokans/circulation/internal/feeds"
	http_controllers "github.com/mrlokans/circulation/internal/http"
	"github.com/mrlokans/circulation/internal/scheduler"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Run wires the databases, controller, queue, scheduler and HTTP views
// together and serves until interrupted.
func Run(cfg *config.Config, version string) {
	log.Printf("Starting Circulation v%s", version)

	profiles, err := database.OpenProfilesDatabase(cfg.Library.RootDir)
	if err != nil {
		var open *database.OpenError
		if errors.As(err, &open) {
			for _, cause := range open.Causes {
				log.Printf("Profiles database: %v", cause)
			}
		}
		log.Fatalf("Could not open profiles database at %s: %v", cfg.Library.RootDir, err)
	}
	log.Printf("Profiles database open at %s (%d profiles)", cfg.Library.RootDir, len(profiles.Profiles()))

	// Download queue (the byte-stream download collaborator).
	var downloadClient *downloads.Client
	if cfg.Downloads.Enabled {
		downloadClient, err = downloads.NewClient(cfg.Downloads.DBPath, downloads.Config{
			Workers:         cfg.Downloads.Workers,
			ReleaseAfter:    cfg.Downloads.ReleaseAfter,
			CleanupInterval: cfg.Downloads.CleanupInterval,
		})
		if err != nil {
			log.Fatalf("Could not create download queue: %v", err)
		}
	}

	var downloader controller.Downloader
	if downloadClient != nil {
		downloader = downloadClient
	}
	ctrl := controller.New(controller.Config{
		Profiles:  profiles,
		Transport: feeds.NewHTTPTransport(),
		Parser:    feeds.NewJSONFeedParser(),
		Downloads: downloader,
		Workers:   cfg.Controller.Workers,
	})

	queueCtx, cancelQueue := context.WithCancel(context.Background())
	defer cancelQueue()
	if downloadClient != nil {
		downloadClient.Register(downloads.NewDownloadBookQueue(profiles, ctrl.BookEvents))
		go downloadClient.Start(queueCtx)
	}

	// Audit journal subscribes to every bus.
	var journal *audit.Journal
	var detachJournal func()
	if cfg.Audit.Enabled {
		journal, err = audit.Open(cfg.Audit.DBPath)
		if err != nil {
			log.Fatalf("Could not open audit journal: %v", err)
		}
		detachJournal = journal.Attach(ctrl)
		if cfg.Audit.RetentionDays > 0 {
			cutoff := time.Now().AddDate(0, 0, -cfg.Audit.RetentionDays)
			if pruned, err := journal.DeleteBefore(cutoff); err == nil && pruned > 0 {
				log.Printf("Audit journal: pruned %d old events", pruned)
			}
		}
	}

	var syncScheduler *scheduler.CatalogSyncScheduler
	if cfg.Sync.Enabled {
		syncScheduler = scheduler.NewCatalogSyncScheduler(ctrl, cfg.Sync.Schedule)
		if err := syncScheduler.Start(queueCtx); err != nil {
			log.Fatalf("Could not start catalog sync scheduler: %v", err)
		}
	}

	router := http_controllers.NewRouter(http_controllers.RouterConfig{
		Profiles: profiles,
		Version:  version,
	})

	Serve(router, cfg, func(ctx context.Context) {
		if syncScheduler != nil {
			syncScheduler.Stop()
		}
		ctrl.Stop()
		if downloadClient != nil {
			downloadClient.Stop(ctx)
			cancelQueue()
			downloadClient.Close()
		}
		if journal != nil {
			if detachJournal != nil {
				detachJournal()
			}
			journal.Close()
		}
	})
}

// Serve runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully within the configured timeout.
func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting server at %s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Shutdown callback first so in-flight controller work drains before
	// the listener closes.
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}
