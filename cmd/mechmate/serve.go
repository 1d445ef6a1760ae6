package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/AaronL1011/mechmate-sub000/internal/assistant"
	"github.com/AaronL1011/mechmate-sub000/internal/bot"
	"github.com/AaronL1011/mechmate-sub000/internal/httpapi"
	"github.com/AaronL1011/mechmate-sub000/internal/llm"
	"github.com/AaronL1011/mechmate-sub000/internal/service"
)

const (
	jobTimeout      = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the Telegram bot and scheduled due reports",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := openEnv()
			if err != nil {
				return err
			}
			defer rt.Close()
			return serve(cmd.Context(), rt)
		},
	}
}

func serve(ctx context.Context, rt *env) error {
	cfg, logger := rt.cfg, rt.logger
	if cfg.GeminiAPIKey == "" {
		return errors.New("GEMINI_API_KEY must be set to serve")
	}

	model, err := llm.NewGeminiModel(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, logger)
	if err != nil {
		return err
	}

	svc := assistant.Services{
		Equipment:   rt.svc.equipment,
		Tasks:       rt.svc.tasks,
		Maintenance: rt.svc.maintenance,
	}
	pending := assistant.NewMemoryPendingStore(cfg.Assistant.PendingTTL, cfg.Assistant.PendingCap)
	orchestrator := assistant.NewOrchestrator(model, assistant.NewExecutor(svc, logger), pending, cfg.Assistant.MaxIterations, logger)
	confirmer := assistant.NewConfirmer(pending, svc, logger)

	server := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpapi.NewRouter(&httpapi.App{
			Proposer:  orchestrator,
			Confirmer: confirmer,
			Due:       rt.svc.tasks,
			Equipment: rt.svc.equipment,
			Logger:    logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var telegramBot *bot.Bot
	if cfg.TelegramToken != "" {
		telegramBot, err = bot.New(cfg.TelegramToken, bot.Deps{
			Users:      rt.store.Users,
			Proposer:   orchestrator,
			Confirmer:  confirmer,
			Equipment:  rt.svc.equipment,
			Reminder:   rt.svc.reminder,
			WindowDays: cfg.Assistant.UpcomingWindowDays,
			PendingTTL: cfg.Assistant.PendingTTL,
		}, logger)
		if err != nil {
			return err
		}
	} else {
		logger.Info("TELEGRAM_TOKEN not set, bot disabled")
	}

	scheduler := service.NewSchedulerService(time.Local, logger)
	if _, err := scheduler.ScheduleInterval(time.Minute, func() {
		if n := pending.Sweep(time.Now()); n > 0 {
			logger.Debug("swept expired actions", zap.Int("count", n))
		}
	}); err != nil {
		return err
	}
	if telegramBot != nil {
		if err := scheduleReports(scheduler, cfg.ReportTime, cfg.ReportInterval, telegramBot, logger); err != nil {
			return err
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if telegramBot != nil {
		g.Go(func() error {
			return telegramBot.Start(gctx)
		})
	}

	logger.Info("mechmate started")
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

// scheduleReports registers the due report at a fixed time of day when
// reportTime is set, otherwise every interval.
func scheduleReports(scheduler *service.SchedulerService, reportTime string, interval time.Duration, b *bot.Bot, logger *zap.Logger) error {
	job := func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		if err := b.SendDueReports(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("due report", zap.Error(err))
		}
	}
	if reportTime != "" {
		_, err := scheduler.ScheduleDaily(reportTime, job)
		return err
	}
	_, err := scheduler.ScheduleInterval(interval, job)
	return err
}
