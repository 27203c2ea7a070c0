package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/otabekdev/restockbot/internal/config"
	"github.com/otabekdev/restockbot/internal/report"
	"github.com/otabekdev/restockbot/internal/repository/mongodb"
	"github.com/otabekdev/restockbot/internal/repository/sheets"
	"github.com/otabekdev/restockbot/internal/scheduler"
	"github.com/otabekdev/restockbot/internal/server/handlers"
	"github.com/otabekdev/restockbot/internal/server/router"
	botsvc "github.com/otabekdev/restockbot/internal/service/bot"
	"github.com/otabekdev/restockbot/internal/session"
	telegramclient "github.com/otabekdev/restockbot/pkg/clients/telegram"
	"github.com/otabekdev/restockbot/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New())
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	allowListRepo, err := sheets.NewGoogleSheetRepository(context.Background(), cfg.Sheets, baseLogger.Named("repo.sheets"))
	if err != nil {
		baseLogger.Fatal("failed to init allow-list repository", zap.Error(err))
	}

	activityRepo, err := mongodb.NewMongoDBRepository(context.Background(), cfg.MongoDB.URI, cfg.MongoDB.DBName)
	if err != nil {
		baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
	}
	defer func() {
		if err := activityRepo.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close mongodb connection", zap.Error(err))
		}
	}()

	processor := report.NewProcessor(cfg.Report, baseLogger.Named("report"))
	sessions := session.NewManager(func() *session.Machine {
		return session.NewMachine(processor, baseLogger.Named("session"))
	})

	tgClient := telegramclient.NewClient(cfg.Telegram)
	botService := botsvc.NewTelegramService(cfg.Telegram, tgClient, sessions, allowListRepo, activityRepo, baseLogger.Named("svc.bot"))
	webhookHandler := handlers.NewWebhookHandler(botService, cfg.Telegram.WebhookSecret, baseLogger.Named("handlers.webhook"))
	engine := router.New(webhookHandler, baseLogger.Named("router"))

	sched, err := scheduler.NewScheduler(*cfg, activityRepo, tgClient, baseLogger.Named("scheduler"))
	if err != nil {
		baseLogger.Fatal("failed to init scheduler", zap.Error(err))
	}
	sched.Start()
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
