package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AaronL1011/mechmate-sub000/internal/config"
	"github.com/AaronL1011/mechmate-sub000/internal/logging"
	"github.com/AaronL1011/mechmate-sub000/internal/repository"
	"github.com/AaronL1011/mechmate-sub000/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mechmate",
		Short:         "Maintenance tracker with a confirm-before-write assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newDueCmd())
	return root
}

// env holds what every command opens from the configuration.
type env struct {
	cfg    config.Config
	logger *zap.Logger
	store  *repository.Store
	svc    services
}

type services struct {
	equipment   *service.EquipmentService
	tasks       *service.TaskService
	maintenance *service.MaintenanceService
	reminder    *service.ReminderService
}

func openEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	db, err := repository.NewDB(cfg.DatabaseURL, logger)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}
	store := repository.NewStore(db)

	locks := service.NewTaskLocks()
	tasks := service.NewTaskService(store, locks, cfg.Assistant.UpcomingWindowDays, logger)
	return &env{
		cfg:    cfg,
		logger: logger,
		store:  store,
		svc: services{
			equipment:   service.NewEquipmentService(store, logger),
			tasks:       tasks,
			maintenance: service.NewMaintenanceService(store, locks, logger),
			reminder:    service.NewReminderService(tasks),
		},
	}, nil
}

func (r *env) Close() {
	if err := r.store.Close(); err != nil {
		r.logger.Warn("close db", zap.Error(err))
	}
	_ = r.logger.Sync()
}
