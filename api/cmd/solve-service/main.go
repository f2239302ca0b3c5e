package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"go.uber.org/zap"

	"reshalka/api/internal/config"
	"reshalka/api/internal/engine"
	"reshalka/api/internal/engine/gemini"
	"reshalka/api/internal/engine/openai"
	"reshalka/api/internal/handle"
	"reshalka/api/internal/logger"
	"reshalka/api/internal/store"
)

func main() {
	cfg, err := config.LoadService()
	if err != nil {
		logger.New("", "").Fatal("config", zap.Error(err))
	}
	log := logger.New(cfg.Env, cfg.LogFile)
	defer func() { _ = log.Sync() }()

	engines := &engine.Engines{
		OpenAI: openai.New(cfg.OpenAIAPIKey, cfg.OpenAIModel),
		Gemini: gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel),
	}
	if _, err := engines.GetEngine(cfg.SolveEngine); err != nil {
		log.Fatal("engine", zap.String("name", cfg.SolveEngine), zap.Error(err))
	}
	h := handle.New(engines, cfg.SolveEngine, log.Named("solve"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Postgres (необязательный кэш решений) ---
	if dsn := resolveDSN(cfg.DatabaseURL); dsn != "" {
		db, err := openDB(ctx, dsn)
		if err != nil {
			log.Fatal("db", zap.Error(err))
		}
		defer db.Close()
		log.Info("db connected", zap.String("dsn", safeDSNSummary(dsn)))

		repo := store.NewSolutionRepo(db, cfg.CacheTTL)
		if err := repo.EnsureSchema(ctx); err != nil {
			log.Fatal("db", zap.Error(err))
		}
		h.WithCache(repo)
		go purgeLoop(ctx, log, repo, cfg.CacheTTL)
	} else {
		log.Info("solution cache disabled: DATABASE_URL / POSTGRES_* not set")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
	}()

	log.Info("solve-service listening", zap.String("addr", srv.Addr), zap.String("engine", cfg.SolveEngine))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("http", zap.Error(err))
	}
}

func openDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// connection pool tune
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(1 * time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// purgeLoop раз в сутки удаляет записи старше ttl.
func purgeLoop(ctx context.Context, log *zap.Logger, repo *store.SolutionRepo, ttl time.Duration) {
	t := time.NewTicker(24 * time.Hour)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := repo.PurgeOlderThan(ctx, ttl)
			if err != nil {
				log.Warn("cache purge failed", zap.Error(err))
				continue
			}
			log.Info("cache purged", zap.Int64("deleted", n))
		}
	}
}
