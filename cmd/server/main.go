// Server entrypoint. Wires configuration, storage, the completion provider
// and the HTTP surface, then runs until interrupted.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"scubaai/internal/ai"
	"scubaai/internal/audit"
	"scubaai/internal/audit/kafka"
	auditpg "scubaai/internal/audit/store/postgres"
	authhandler "scubaai/internal/auth/handler"
	authservice "scubaai/internal/auth/service"
	authstore "scubaai/internal/auth/store"
	"scubaai/internal/auth/store/revocation"
	"scubaai/internal/auth/store/session"
	"scubaai/internal/auth/store/stats"
	"scubaai/internal/auth/store/user"
	chathandler "scubaai/internal/chat/handler"
	chatservice "scubaai/internal/chat/service"
	"scubaai/internal/chat/store/conversation"
	"scubaai/internal/chat/store/message"
	httpapi "scubaai/internal/http"
	instrhandler "scubaai/internal/instruction/handler"
	instrservice "scubaai/internal/instruction/service"
	instructions "scubaai/internal/instruction/store/instruction"
	"scubaai/internal/platform/config"
	"scubaai/internal/platform/httpserver"
	"scubaai/internal/platform/logger"
	"scubaai/internal/platform/metrics"
	"scubaai/internal/platform/postgres"
	redisplatform "scubaai/internal/platform/redis"
	settingshandler "scubaai/internal/settings/handler"
	settingsservice "scubaai/internal/settings/service"
	settingsstore "scubaai/internal/settings/store/setting"
	"scubaai/internal/token"
	"scubaai/pkg/platform/middleware/ratelimit"
)

const (
	auditBuffer     = 256
	shutdownTimeout = 10 * time.Second
)

func main() {
	// Missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		log.Error("failed to open postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := postgres.Migrate(db); err != nil {
		log.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	redisClient, err := redisplatform.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	completer, err := ai.NewClient(cfg.AI)
	if err != nil {
		log.Error("failed to configure completion provider", "error", err)
		os.Exit(1)
	}

	m := metrics.New()
	tokens := token.NewService(cfg.JWT)

	// Redis keeps revocations visible across instances; postgres is the
	// single-instance fallback.
	var revocations authstore.RevocationList = revocation.NewPostgresList(db)
	if redisClient != nil {
		revocations = revocation.NewRedisList(redisClient.Client)
	}

	publisher := audit.NewPublisher(auditBuffer, log)
	var workerOpts []audit.WorkerOption
	if len(cfg.Kafka.Brokers) > 0 {
		sink, err := kafka.New(ctx, cfg.Kafka)
		if err != nil {
			log.Error("failed to connect to kafka", "error", err)
			os.Exit(1)
		}
		defer sink.Close()
		workerOpts = append(workerOpts, audit.WithSink(sink))
	}
	auditWorker := audit.NewWorker(auditpg.New(db), publisher.Inbox(), log, workerOpts...)

	authSvc := authservice.New(
		user.NewPostgresStore(db),
		session.NewPostgresStore(db),
		revocations,
		tokens,
		publisher,
		m,
		log,
		authservice.WithActivityCounter(stats.NewPostgresStore(db)),
	)
	if err := authSvc.EnsureAdmin(ctx, cfg.Admin.InitialPassword); err != nil {
		log.Error("failed to seed admin account", "error", err)
		os.Exit(1)
	}

	instrSvc := instrservice.New(instructions.NewPostgresStore(db), publisher, log)
	chatSvc := chatservice.New(
		conversation.NewPostgresStore(db),
		message.NewPostgresStore(db),
		completer,
		instrSvc,
		publisher,
		m,
		log,
	)
	settingsSvc := settingsservice.New(
		settingsstore.NewPostgresStore(db),
		authSvc,
		instrSvc,
		chatSvc,
		publisher,
		log,
	)

	limiter := ratelimit.NewLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	router := httpapi.New(httpapi.Deps{
		Logger:     log,
		Metrics:    m,
		DB:         db,
		Redis:      redisClient,
		CORSOrigin: cfg.Server.CORSOrigin,
		Auth:       authhandler.New(authSvc, tokens, revocations, log),
		Chat: chathandler.New(chatSvc, tokens, revocations, log,
			chathandler.WithCompletionLimit(ratelimit.Middleware(limiter, log))),
		Instructions: instrhandler.New(instrSvc, tokens, revocations, log),
		Settings:     settingshandler.New(settingsSvc, tokens, revocations, log),
		Models:       completer,
		JWTValidator: tokens,
		Revocations:  revocations,
	})

	srv := httpserver.New(cfg.Server.Addr, router)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return auditWorker.Run(gctx)
	})

	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
