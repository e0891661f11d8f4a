package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/renhao-x/gatechat/backend/internal/config"
	"github.com/renhao-x/gatechat/backend/internal/handler"
	"github.com/renhao-x/gatechat/backend/internal/service/ai"
	"github.com/renhao-x/gatechat/backend/internal/service/chat"
	"github.com/renhao-x/gatechat/backend/internal/service/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	var provider chat.ResponseProvider
	if cfg.AI.Enabled() {
		aiService, err := ai.NewService(ctx, cfg.AI, cfg.Auth.ModelOptions)
		if err != nil {
			log.Fatalf("failed to initialize AI service: %v", err)
		}
		provider = aiService
		log.Println("AI service initialized successfully")
	} else {
		// Sessions still work; prompts come back as error turns.
		provider = ai.Unavailable{}
		log.Println("Ark credentials not configured, responses will report the backend as unavailable")
	}

	sessions := session.NewService(session.Config{
		Secret:       cfg.Auth.Secret,
		MaxAttempts:  cfg.Auth.MaxAttempts,
		Timeout:      cfg.Auth.Timeout,
		ModelOptions: cfg.Auth.ModelOptions,
		DefaultModel: cfg.Auth.DefaultModel,
	}, provider)

	router := handler.NewRouter(sessions)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("gatechat backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
