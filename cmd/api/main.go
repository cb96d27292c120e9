package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"shagym.org/internal/ai"
	"shagym.org/internal/chat"
	"shagym.org/internal/httpapi"
	"shagym.org/internal/obs"
	"shagym.org/internal/otp"
	"shagym.org/internal/registry"
	"shagym.org/internal/store/pg"
	"shagym.org/internal/stream"
	"shagym.org/internal/workflow"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	_ = godotenv.Load()

	obs.Init()
	obs.InitBuildInfo(version, commit)

	users := registry.NewSeeded()
	resolver := chat.NewResolver(users)
	events := stream.New()

	opts := []workflow.Option{workflow.WithChatGate(resolver)}

	var store *pg.Store
	if dsn := os.Getenv("SHAGYM_PG_DSN"); dsn != "" {
		var err error
		store, err = pg.Open(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		opts = append(opts, workflow.WithPersister(store))
	}

	svc := workflow.NewInMemory(users, opts...)
	if store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := svc.Restore(ctx); err != nil {
			cancel()
			log.Fatalf("restore complaints: %v", err)
		}
		cancel()
	}
	if os.Getenv("SHAGYM_DEMO_SEED") == "1" {
		svc.Preload(workflow.DemoComplaints())
	}

	var assistant *ai.Assistant
	if key := os.Getenv("SHAGYM_GEMINI_API_KEY"); key != "" {
		assistant = ai.NewAssistant(ai.NewGemini(key))
	}

	cfg := httpapi.Config{
		Version:   version,
		Workflow:  svc,
		Users:     users,
		Chat:      resolver,
		OTP:       otp.NewService(),
		Assistant: assistant,
		Stream:    events,
	}
	if store != nil {
		cfg.Ready = httpapi.ReadyProbe{DB: store.DB()}
	}
	api := httpapi.New(cfg)

	addr := os.Getenv("SHAGYM_HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting shagym-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if store != nil {
		_ = store.Close()
	}
	log.Println("Stopped")
}
