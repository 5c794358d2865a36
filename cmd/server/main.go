package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/cesargomez89/ytmanager/internal/constants"
	"github.com/cesargomez89/ytmanager/internal/domain"
	"github.com/cesargomez89/ytmanager/internal/logger"
)

func main() {
	cmd := &cli.Command{
		Name:  "ytmanager",
		Usage: "Subscribe to video playlists and keep their newest videos downloaded",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a TOML configuration file",
				Sources: cli.EnvVars("YTM_CONFIG_FILE"),
			},
		},
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API and the background scheduler",
				Action: serve,
			},
			{
				Name:   "sync",
				Usage:  "Synchronize every subscription once and exit",
				Action: syncOnce,
			},
			{
				Name:   "recover",
				Usage:  "Mark executions left running by a crashed process as interrupted",
				Action: recoverExecutions,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "ytmanager:", err)
		os.Exit(1)
	}
}

func setup(cmd *cli.Command) (*application, error) {
	cfg, err := loadConfig(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	return newApplication(cfg, logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	}))
}

func serve(ctx context.Context, cmd *cli.Command) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.shutdown(constants.DefaultShutdownTimeout)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.sched.Start(ctx); err != nil {
		return err
	}
	if err := a.manager.ScheduleGlobalSync(a.cfg.SyncSchedule); err != nil {
		return fmt.Errorf("invalid sync schedule: %w", err)
	}
	if err := a.manager.SchedulePruneHistory(a.cfg.PruneSchedule); err != nil {
		return fmt.Errorf("invalid prune schedule: %w", err)
	}

	srv := &http.Server{
		Addr:    ":" + a.cfg.Port,
		Handler: a.handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	a.log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.DefaultShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	a.log.Info("Server exiting")
	return nil
}

func syncOnce(ctx context.Context, cmd *cli.Command) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.shutdown(constants.DefaultShutdownTimeout)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.sched.Start(ctx); err != nil {
		return err
	}
	handle, err := a.manager.SyncNow()
	if err != nil {
		return err
	}
	status, err := handle.Wait(ctx)
	if err != nil {
		return err
	}
	if status != domain.JobStatusFinished {
		return fmt.Errorf("synchronization ended with status %s", status)
	}
	a.log.Info("Synchronization finished", "execution_id", handle.ExecutionID())
	return nil
}

func recoverExecutions(ctx context.Context, cmd *cli.Command) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.shutdown(constants.DefaultShutdownTimeout)

	n, err := a.db.RecoverInterrupted()
	if err != nil {
		return err
	}
	a.log.Info("Recovered executions", "count", n)
	return nil
}
