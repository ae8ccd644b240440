package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"vodforge/internal/config"
	"vodforge/internal/encoding"
	"vodforge/internal/logging"
	"vodforge/internal/objectstore"
	"vodforge/internal/preflight"
	"vodforge/internal/publish"
	"vodforge/internal/queue"
	"vodforge/internal/tracker"
	"vodforge/internal/workflow"
)

func newWorkerCommand(ctx *commandContext) *cobra.Command {
	var drain bool
	var skipPreflight bool
	var workerID string

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Process queued jobs until interrupted",
		Long: `Process queued jobs until interrupted.

With --drain the worker exits once the queue is empty. An interrupt stops
claiming new jobs; jobs already claimed finish before the worker exits.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				logger, err := processLogger(cfg)
				if err != nil {
					return err
				}
				rt, err := newWorkerRuntime(cfg, store, logger, workflow.WithOwner(strings.TrimSpace(workerID)))
				if err != nil {
					return err
				}
				defer rt.close()

				if !skipPreflight {
					if err := rt.preflight(cmd.Context()); err != nil {
						return err
					}
				}
				if drain {
					count, err := rt.manager.Drain(cmd.Context())
					if err != nil {
						return err
					}
					if ctx.JSONMode() {
						return writeJSON(cmd, map[string]any{"processed": count, "worker": rt.manager.Owner()})
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Processed %d job(s)\n", count)
					return nil
				}
				if !ctx.JSONMode() {
					fmt.Fprintf(cmd.OutOrStdout(), "Worker %s ready\n", rt.manager.Owner())
				}
				return rt.run(cmd.Context())
			})
		},
	}

	cmd.Flags().BoolVar(&drain, "drain", false, "Exit once the queue is empty")
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Start without checking directories, ffmpeg, storage and tracker")
	cmd.Flags().StringVar(&workerID, "worker-id", "", "Lease owner id (defaults to a random UUID)")
	return cmd
}

type workerRuntime struct {
	cfg     *config.Config
	logger  *slog.Logger
	objects objectstore.Store
	tracker tracker.Tracker
	manager *workflow.Manager
}

func newWorkerRuntime(cfg *config.Config, store *queue.Store, logger *slog.Logger, opts ...workflow.ManagerOption) (*workerRuntime, error) {
	objects, err := objectstore.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init object store: %w", err)
	}
	trk, err := tracker.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init tracker: %w", err)
	}
	manager := workflow.NewManager(cfg, store, workflow.Dependencies{
		Encoder:   encoding.NewFFmpeg(cfg.Encoding.FFmpegBinary, logger),
		Publisher: publish.New(objects, cfg.Storage.UploadConcurrency, logger),
		Status:    trk,
	}, logger, opts...)
	return &workerRuntime{
		cfg:     cfg,
		logger:  logger,
		objects: objects,
		tracker: trk,
		manager: manager,
	}, nil
}

// targets exposes the live services the runtime was built with.
func (r *workerRuntime) targets() preflight.Targets {
	targets := preflight.Targets{}
	if checker, ok := r.objects.(preflight.StorageChecker); ok {
		targets.Storage = checker
	}
	if pinger, ok := r.tracker.(preflight.Pinger); ok {
		targets.Tracker = pinger
	}
	return targets
}

func (r *workerRuntime) preflight(ctx context.Context) error {
	failed := preflight.Failed(preflight.RunAll(ctx, r.cfg, r.targets()))
	if len(failed) == 0 {
		return nil
	}
	details := make([]string, 0, len(failed))
	for _, result := range failed {
		logging.ErrorWithContext(r.logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
		)
		details = append(details, result.Name+": "+result.Detail)
	}
	return fmt.Errorf("preflight failed: %s", strings.Join(details, "; "))
}

func (r *workerRuntime) run(ctx context.Context) error {
	if err := r.manager.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	r.logger.Info("shutdown requested; waiting for in-flight jobs",
		logging.String(logging.FieldEventType, "worker_shutdown"),
	)
	r.manager.Stop()
	return nil
}

func (r *workerRuntime) close() {
	if err := r.tracker.Close(); err != nil {
		logging.WarnWithContext(r.logger, "tracker close failed", "tracker_close_failed", logging.Error(err))
	}
}
