// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"telegram-github-helper/internal/application"
	"telegram-github-helper/internal/config"
	"telegram-github-helper/internal/domain/ports/repository"
	gh "telegram-github-helper/internal/infra/adapters/github"
	tele "telegram-github-helper/internal/infra/adapters/telegram"
	pg "telegram-github-helper/internal/infra/db/postgres"
	"telegram-github-helper/internal/infra/i18n"
	"telegram-github-helper/internal/infra/logging"
	"telegram-github-helper/internal/infra/memory"
	"telegram-github-helper/internal/infra/metrics"
	red "telegram-github-helper/internal/infra/redis"
	"telegram-github-helper/internal/infra/scheduler"
	"telegram-github-helper/internal/infra/security"
	"telegram-github-helper/internal/infra/web"
	"telegram-github-helper/internal/usecase"
)

// set with -ldflags "-X main.version=... -X main.commit=..."
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, unredacted tokens)")
	lang := flag.String("lang", "en", "locale of bot messages")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	go pg.ReportPoolStats(ctx, pool, 15*time.Second)

	// ---- Encryption ----
	cipher, err := security.NewCipher(cfg.Security.EncryptionKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("encryption")
	}

	// ---- Redis (optional) ----
	var (
		creds    repository.CredentialRepository = pg.NewPostgresCredentialRepo(pool)
		sessions repository.FlowSessionRepository
		locker   repository.Locker
		limiter  tele.RateLimiter
		sweeper  *scheduler.Scheduler
		checks   = map[string]web.Check{"postgres": func(ctx context.Context) error { return pool.Ping(ctx) }}
	)
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer redisClient.Close()
		creds = pg.NewCredentialRepoCacheDecorator(creds, redisClient, cfg.Redis.TTL, logger)
		sessions = red.NewFlowSessionRepo(redisClient, cfg.Flow.SessionTTL)
		locker = red.NewLocker(redisClient)
		limiter = red.NewRateLimiter(redisClient)
		checks["redis"] = redisClient.Ping
		logger.Info().Msg("flow sessions and locks in redis")
	} else {
		memSessions := memory.NewFlowSessionRepo(cfg.Flow.SessionTTL)
		sessions = memSessions
		locker = memory.NewLocker()
		sweeper = scheduler.NewScheduler(cfg.Flow.SweepInterval, memSessions, logger)
		logger.Info().Msg("redis.url empty; flow sessions kept in memory, rate limiting disabled")
	}

	// ---- GitHub ----
	clients, err := gh.NewFactory(&http.Client{Timeout: cfg.GitHub.Timeout}, cfg.GitHub.BaseURL, cfg.GitHub.PerPage)
	if err != nil {
		logger.Fatal().Err(err).Msg("github")
	}

	// ---- Use cases ----
	vaultUC := usecase.NewVaultUseCase(creds, cipher, clients, cfg.GitHub.Timeout, cfg.Runtime.Dev, logger)
	githubUC := usecase.NewGitHubUseCase(vaultUC, clients, cfg.GitHub.Timeout, logger)
	flowUC := usecase.NewFlowUseCase(sessions, locker, vaultUC, githubUC, usecase.FlowOptions{
		LockTTL:  cfg.Flow.LockTTL,
		LockWait: cfg.Flow.LockWait,
	}, logger)

	// ---- Facade ----
	tr, err := i18n.NewTranslator(i18n.LocalesFS, *lang)
	if err != nil {
		logger.Fatal().Err(err).Msg("i18n")
	}
	facade := application.NewBotFacade(vaultUC, githubUC, flowUC, tr, logger)

	// ---- Telegram ----
	botAdapter, err := tele.NewRealTelegramBotAdapter(&cfg.Bot, cfg.RateLimit, facade, tr, limiter, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("telegram")
	}
	pollDone := make(chan struct{})
	go func() {
		defer close(pollDone)
		if err := botAdapter.StartPolling(ctx); err != nil {
			logger.Error().Err(err).Msg("telegram polling stopped")
			cancel()
		}
	}()

	// ---- Admin HTTP ----
	var admin *web.Server
	if cfg.Admin.Port > 0 {
		admin = web.NewServer(cfg.Admin.Port, checks, logger)
		go func() {
			if err := admin.Start(); err != nil {
				logger.Error().Err(err).Msg("admin http server")
			}
		}()
	}

	// ---- Idle session sweeper ----
	if sweeper != nil {
		sweeper.Start(ctx)
		defer sweeper.Stop()
	}

	// ---- Graceful shutdown ----
	<-ctx.Done()
	logger.Info().Msg("shutdown requested")
	botAdapter.StopPolling()
	select {
	case <-pollDone:
	case <-time.After(10 * time.Second):
		logger.Warn().Msg("telegram workers did not stop in time")
	}
	if admin != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := admin.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("admin http shutdown")
		}
	}
}
