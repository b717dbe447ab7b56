// Package main is the entry point for the Douro Annotate API server.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/michitomo/douroannotate/internal/config"
	"github.com/michitomo/douroannotate/internal/router"
	"github.com/michitomo/douroannotate/internal/services/export"
	"github.com/michitomo/douroannotate/internal/services/font"
	"github.com/michitomo/douroannotate/internal/services/worker"
	"github.com/michitomo/douroannotate/internal/session"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("🚀 Douro Annotate API %s starting...", Version)

	// Step 1: Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	log.Printf("📋 Config loaded: port=%s, workers=%d, gin_mode=%s", cfg.Port, cfg.WorkerCount, cfg.GinMode)

	os.Setenv("GIN_MODE", cfg.GinMode)

	// Step 2: Create Services
	fonts := font.New(cfg.UnicodeFontURL, cfg.FontFetchTimeout)
	if cfg.UnicodeFontURL != "" {
		log.Printf("🔤 Unicode font source: %s", cfg.UnicodeFontURL)
	} else {
		log.Println("⚠️  No Unicode font configured (exports fall back to built-in Helvetica)")
	}

	exporter := export.New(fonts)

	sessions := session.NewRegistry(cfg.SessionTTL)
	defer sessions.Close()
	log.Printf("✅ Session registry ready (TTL: %s)", cfg.SessionTTL)

	// Step 3: Create and Start Worker Pool
	wp := worker.NewPool(cfg.WorkerCount, cfg.JobQueueSize, exporter)
	wp.Start()
	defer wp.Stop()

	// Step 4: Setup HTTP Router
	r := router.Setup(sessions, wp, cfg)

	// Step 5: Start the HTTP Server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("🌐 Server listening on http://localhost:%s", cfg.Port)
		log.Printf("📖 Health check: http://localhost:%s/api/v1/health", cfg.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server failed: %v", err)
		}
	}()

	// Step 6: Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Printf("🛑 Received signal %v, shutting down gracefully...", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("⚠️  Server forced to shutdown: %v", err)
	}

	log.Println("👋 Server stopped. Goodbye!")
}
