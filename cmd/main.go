package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/Vishalkumjan/realtime-code-collab/config"
	"github.com/Vishalkumjan/realtime-code-collab/internal/collab"
	"github.com/Vishalkumjan/realtime-code-collab/internal/durability"
	"github.com/Vishalkumjan/realtime-code-collab/internal/postgres"
	"github.com/Vishalkumjan/realtime-code-collab/internal/security"
	"github.com/Vishalkumjan/realtime-code-collab/internal/service"
	httpx "github.com/Vishalkumjan/realtime-code-collab/internal/transport/http"
	"github.com/Vishalkumjan/realtime-code-collab/internal/transport/ws"
	"github.com/Vishalkumjan/realtime-code-collab/internal/worker"
	"github.com/Vishalkumjan/realtime-code-collab/pkg/logger"
)

func main() {
	// --- config ---
	_ = godotenv.Load()
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.Env(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting collab-server",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version)

	// --- postgres ---
	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer db.Close()

	if err := postgres.RunMigrations(ctx, db); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	// --- redis / task queue ---
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
	defer func() { _ = rdb.Close() }()

	redisOpt := asynq.RedisClientOpt{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB}
	taskClient := asynq.NewClient(redisOpt)
	defer func() { _ = taskClient.Close() }()

	// --- repos ---
	roomRepo := postgres.NewRoomRepository(db.Pool)
	userRepo := postgres.NewUserRepository(db.Pool)
	fileRepo := postgres.NewFileRepository(db.Pool)
	messageRepo := postgres.NewMessageRepository(db.Pool)

	// --- collab core ---
	store := durability.NewBridge(roomRepo, taskClient)
	registry := collab.NewRegistry()
	broker := collab.NewBroker(registry, store)

	// --- services ---
	signer := security.NewJWTSigner(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	authSvc := service.NewAuthService(userRepo, signer)
	roomSvc := service.NewRoomService(roomRepo, registry)
	chatSvc := service.NewChatService(messageRepo)
	fileSvc := service.NewFileService(fileRepo, broker, cfg.Files.MaxSizeBytes)

	// --- transports ---
	wsServer := ws.NewServer(broker, signer, cfg.WS, cfg.Auth.Required)
	handler := httpx.NewHandler(authSvc, roomSvc, chatSvc, fileSvc)
	router := httpx.NewRouter(handler, wsServer, signer, rdb, cfg.CORSAllow)
	httpSrv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- background worker ---
	workerSrv := worker.NewServer(redisOpt, worker.NewHandlers(roomRepo, messageRepo))

	// --- run ---
	errCh := make(chan error, 2)

	go func() {
		slog.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	go func() {
		if err := workerSrv.Run(); err != nil {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal", "sig", sig)
	case err := <-errCh:
		slog.Error("server error", "err", err)
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpSrv.Shutdown(ctxShutdown)
	workerSrv.Shutdown()
	slog.Info("stopped")
}
