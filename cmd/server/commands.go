package main

import (
	"context"
	"time"

	"github.com/PaulBabatuyi/files-manager/internal/access"
	"github.com/PaulBabatuyi/files-manager/internal/api"
	"github.com/PaulBabatuyi/files-manager/internal/observability"
	"github.com/PaulBabatuyi/files-manager/internal/server"
	"github.com/PaulBabatuyi/files-manager/internal/service"
	"github.com/PaulBabatuyi/files-manager/internal/storage"
	"github.com/PaulBabatuyi/files-manager/internal/worker"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const retryBackoff = 10 * time.Second

func newRootCommand() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "server",
		Short:         "Files manager API, thumbnail worker and schema migrations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file loaded before reading the environment")

	root.AddCommand(newServeCommand(&envFile))
	root.AddCommand(newWorkerCommand(&envFile))
	root.AddCommand(newMigrateCommand(&envFile))
	return root
}

func newServeCommand(envFile *string) *cobra.Command {
	var withWorker bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx, *envFile, "api")
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			metricsSrv := observability.StartMetricsServer(a.metricsPort(), a.logger)
			defer metricsSrv.Shutdown(context.Background())

			store, closeStore, err := a.tokenStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			blobs := storage.NewFilesystemStorage(afero.NewOsFs(), a.cfg.FolderPath)
			files := service.NewFileService(blobs, a.db, service.Options{
				MaxConcurrentUploads: int64(a.cfg.UploadMaxConcurrent),
				WriteTimeout:         a.cfg.UploadWriteTimeout(),
				JobMaxAttempts:       a.cfg.JobMaxAttempts,
			}, a.logger)
			users := service.NewUserService(a.db, store, a.cfg.JobMaxAttempts, a.logger)
			status := service.NewStatusService(store, a.db, a.db, a.logger)

			handler := api.NewRouter(api.NewHandler(files, users, status, a.logger), api.RouterOptions{
				MaxBodyBytes: a.cfg.MaxUploadBytes,
				Resolver:     access.NewResolver(store),
			})

			if withWorker {
				w := newWorker(a, blobs)
				w.Start(ctx)
				defer w.Stop()
			}

			return server.New(a.cfg.Port, handler, a.logger).Run(ctx)
		},
	}
	cmd.Flags().BoolVar(&withWorker, "with-worker", false, "also run the job worker in this process")
	return cmd
}

func newWorkerCommand(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Process thumbnail and welcome jobs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx, *envFile, "worker")
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			metricsSrv := observability.StartMetricsServer(a.metricsPort(), a.logger)
			defer metricsSrv.Shutdown(context.Background())

			w := newWorker(a, storage.NewFilesystemStorage(afero.NewOsFs(), a.cfg.FolderPath))
			w.Start(ctx)
			<-ctx.Done()
			w.Stop()
			return nil
		},
	}
}

func newMigrateCommand(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := bootstrap(cmd.Context(), *envFile, "migrate")
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			if err := a.db.Migrate(cmd.Context()); err != nil {
				return err
			}
			a.logger.Info("migrations applied")
			return nil
		},
	}
}

func newWorker(a *app, blobs worker.BlobStore) *worker.ProcessingWorker {
	a.logger.Info("starting job worker",
		zap.Int("concurrency", a.cfg.WorkerConcurrency),
		zap.Int("max_attempts", a.cfg.JobMaxAttempts),
	)
	return worker.NewProcessingWorker(&worker.WorkerConfig{
		DB:           a.db,
		Storage:      blobs,
		Logger:       a.logger,
		Concurrency:  a.cfg.WorkerConcurrency,
		PollInterval: a.cfg.WorkerPollInterval(),
		JobTimeout:   a.cfg.JobTimeout(),
		Lease:        a.cfg.JobLease(),
		RetryBackoff: retryBackoff,
	})
}
