package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"reshalka/api/internal/config"
	"reshalka/api/internal/logger"
	"reshalka/api/internal/submit"
	"reshalka/api/internal/telegram"
)

func main() {
	cfg, err := config.LoadBot()
	if err != nil {
		logger.New("", "").Fatal("config", zap.Error(err))
	}
	log := logger.New(cfg.Env, cfg.LogFile)
	defer func() { _ = log.Sync() }()

	// адрес solve-сервиса берётся из статического func2url, а не из кода
	endpoints, err := config.LoadEndpoints(cfg.EndpointsFile)
	if err != nil {
		log.Fatal("endpoints", zap.Error(err))
	}
	solveURL, err := endpoints.Resolve(cfg.SolveEndpointName)
	if err != nil {
		log.Fatal("endpoints", zap.Error(err))
	}
	solver := submit.New(solveURL, cfg.SolveTimeout, log.Named("submit"))

	// --- Telegram bot ---
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		log.Fatal("telegram", zap.Error(err))
	}
	bot.Debug = false
	log.Info("bot authorized", zap.String("username", bot.Self.UserName), zap.String("solve_url", solveURL))

	r := telegram.NewRouter(bot, telegram.Options{
		Solver:        solver,
		MaxImageBytes: cfg.MaxImageBytes,
		SubmitTimeout: cfg.SolveTimeout,
		SessionTTL:    cfg.SessionTTL,
		Log:           log.Named("telegram"),
	})
	defer r.Sessions.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- HTTP mux (DefaultServeMux) ---
	// ListenForWebhook регистрирует обработчик на DefaultServeMux, поэтому healthz там же.
	http.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	srv := &http.Server{Addr: "0.0.0.0:" + cfg.Port, ReadHeaderTimeout: 10 * time.Second}

	// --- Choose mode: Webhook vs Polling ---
	if webhookURL := strings.TrimSpace(cfg.WebhookURL); webhookURL != "" {
		startWebhookMode(ctx, log, srv, bot, r, webhookURL)
	} else {
		startPollingMode(ctx, log, srv, bot, r)
	}
	log.Info("bot stopped")
}

// ---------------- Modes -----------------

func startWebhookMode(ctx context.Context, log *zap.Logger, srv *http.Server, bot *tgbotapi.BotAPI, r *telegram.Router, baseURL string) {
	// секретный путь вебхука
	path := "/webhook/" + shortHash(bot.Token)
	public := strings.TrimRight(baseURL, "/") + path

	wh, err := tgbotapi.NewWebhook(public)
	if err != nil {
		log.Fatal("webhook", zap.Error(err))
	}
	wh.DropPendingUpdates = true
	if _, err := bot.Request(wh); err != nil {
		log.Fatal("set webhook", zap.Error(err))
	}

	updates := bot.ListenForWebhook(path)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case upd := <-updates:
				r.HandleUpdate(upd)
			}
		}
	}()

	log.Info("webhook listening", zap.String("addr", srv.Addr), zap.String("path", path))
	serve(ctx, log, srv)
}

func startPollingMode(ctx context.Context, log *zap.Logger, srv *http.Server, bot *tgbotapi.BotAPI, r *telegram.Router) {
	// healthz для платформы, для polling он не обязателен
	go serve(ctx, log, srv)

	// вебхук мог остаться от прошлого деплоя, с ним getUpdates не работает
	if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		log.Warn("delete webhook", zap.Error(err))
	}
	runPolling(ctx, log, bot, r.HandleUpdate)
}

func serve(ctx context.Context, log *zap.Logger, srv *http.Server) {
	go func() {
		<-ctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
	}()
	log.Info("health server listening", zap.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("http", zap.Error(err))
	}
}
