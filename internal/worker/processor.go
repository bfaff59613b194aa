package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/PaulBabatuyi/files-manager/internal/common"
	"github.com/PaulBabatuyi/files-manager/internal/models"
	"github.com/PaulBabatuyi/files-manager/internal/observability"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Database interface {
	ClaimNextJob(ctx context.Context, lease time.Duration) (*models.Job, error)
	CompleteJob(ctx context.Context, jobID int64) error
	FailJob(ctx context.Context, jobID int64, reason string) error
	RetryJob(ctx context.Context, jobID int64, reason string, backoff time.Duration) (models.JobStatus, error)
	GetOwnedFile(ctx context.Context, fileID, userID string) (*models.FileRecord, error)
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
}

type WorkerConfig struct {
	DB           Database
	Storage      BlobStore
	Logger       *zap.Logger
	Concurrency  int
	PollInterval time.Duration
	JobTimeout   time.Duration
	Lease        time.Duration
	RetryBackoff time.Duration
}

// ProcessingWorker drains the jobs table with a fixed number of pollers.
type ProcessingWorker struct {
	config *WorkerConfig
	images *ImageProcessor
	logger *zap.Logger
	done   chan struct{}
	wg     sync.WaitGroup
}

func NewProcessingWorker(config *WorkerConfig) *ProcessingWorker {
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	if config.PollInterval == 0 {
		config.PollInterval = 2 * time.Second
	}
	if config.JobTimeout == 0 {
		config.JobTimeout = time.Minute
	}
	if config.Lease == 0 {
		config.Lease = 5 * time.Minute
	}
	if config.RetryBackoff == 0 {
		config.RetryBackoff = 10 * time.Second
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	logger := config.Logger.Named("worker")
	return &ProcessingWorker{
		config: config,
		images: NewImageProcessor(config.Storage, logger),
		logger: logger,
		done:   make(chan struct{}),
	}
}

func (pw *ProcessingWorker) Start(ctx context.Context) {
	for i := 0; i < pw.config.Concurrency; i++ {
		pw.wg.Add(1)
		go pw.run(ctx, i)
	}
	pw.logger.Info("processing worker started",
		zap.Int("concurrency", pw.config.Concurrency),
		zap.Duration("poll_interval", pw.config.PollInterval),
	)
}

// Stop waits for in-flight jobs to finish.
func (pw *ProcessingWorker) Stop() {
	close(pw.done)
	pw.wg.Wait()
	pw.logger.Info("processing worker stopped")
}

func (pw *ProcessingWorker) run(ctx context.Context, slot int) {
	defer pw.wg.Done()
	pw.logger.Debug("poller started", zap.Int("slot", slot))
	ticker := time.NewTicker(pw.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-pw.done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			// drain before waiting for the next tick
			for pw.ProcessNext(ctx) {
				select {
				case <-pw.done:
					return
				default:
				}
			}
		}
	}
}

// ProcessNext claims and settles one job. It reports whether a job was claimed.
func (pw *ProcessingWorker) ProcessNext(ctx context.Context) bool {
	job, err := pw.config.DB.ClaimNextJob(ctx, pw.config.Lease)
	if err != nil {
		pw.logger.Error("failed to claim job", zap.Error(err))
		return false
	}
	if job == nil {
		return false
	}

	log := pw.logger.With(
		zap.Int64("job_id", job.ID),
		zap.String("kind", string(job.Kind)),
		zap.String("file_id", job.FileID),
		zap.Int("attempt", job.Attempts),
	)

	// A lease expired on a job that already used its last attempt.
	if job.Attempts > job.MaxAttempts {
		pw.retry(ctx, log, job, errors.New("attempts exhausted"))
		return true
	}

	log.Info("processing job")
	err = pw.handle(ctx, job)
	switch {
	case err == nil:
		if err := pw.config.DB.CompleteJob(ctx, job.ID); err != nil {
			log.Error("failed to complete job", zap.Error(err))
			return true
		}
		observability.JobsTotal.WithLabelValues(string(job.Kind), string(models.JobCompleted)).Inc()
		log.Info("job completed", zap.String("status", string(models.JobCompleted)))
	case IsPermanent(err):
		if ferr := pw.config.DB.FailJob(ctx, job.ID, err.Error()); ferr != nil {
			log.Error("failed to mark job failed", zap.Error(ferr))
			return true
		}
		observability.JobsTotal.WithLabelValues(string(job.Kind), string(models.JobFailed)).Inc()
		log.Warn("job failed permanently", zap.String("status", string(models.JobFailed)), zap.Error(err))
	default:
		pw.retry(ctx, log, job, err)
	}
	return true
}

func (pw *ProcessingWorker) retry(ctx context.Context, log *zap.Logger, job *models.Job, cause error) {
	backoff := pw.config.RetryBackoff * time.Duration(max(job.Attempts, 1))
	status, err := pw.config.DB.RetryJob(ctx, job.ID, cause.Error(), backoff)
	if err != nil {
		log.Error("failed to requeue job", zap.Error(err))
		return
	}
	observability.JobsTotal.WithLabelValues(string(job.Kind), string(status)).Inc()
	log.Warn("job attempt failed",
		zap.String("status", string(status)),
		zap.Duration("backoff", backoff),
		zap.Error(cause),
	)
}

// handle runs the job under the per-job timeout. Hitting the timeout is retryable.
func (pw *ProcessingWorker) handle(ctx context.Context, job *models.Job) error {
	ctx, cancel := context.WithTimeout(ctx, pw.config.JobTimeout)
	defer cancel()

	var err error
	switch job.Kind {
	case models.JobThumbnail:
		err = pw.thumbnail(ctx, job)
	case models.JobWelcome:
		err = pw.welcome(ctx, job)
	default:
		err = Permanent(fmt.Errorf("unknown job kind %q", job.Kind))
	}
	if err != nil && !IsPermanent(err) && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return Retryable(fmt.Errorf("job timed out after %s: %w", pw.config.JobTimeout, err))
	}
	return err
}

func (pw *ProcessingWorker) thumbnail(ctx context.Context, job *models.Job) error {
	if job.UserID == "" || job.FileID == "" {
		return Permanent(ErrMissingJobField)
	}
	if _, err := uuid.Parse(job.FileID); err != nil {
		return Permanent(ErrFileNotFound)
	}

	file, err := pw.config.DB.GetOwnedFile(ctx, job.FileID, job.UserID)
	if errors.Is(err, common.ErrNotFound) {
		return Permanent(ErrFileNotFound)
	}
	if err != nil {
		return Retryable(err)
	}
	if file.Kind != models.KindImage {
		return Permanent(ErrNotAnImage)
	}

	if err := pw.images.GenerateVariants(ctx, file.LocalPath); err != nil {
		return Retryable(fmt.Errorf("%w: %v", ErrThumbnailGenerationFailed, err))
	}
	return nil
}

func (pw *ProcessingWorker) welcome(ctx context.Context, job *models.Job) error {
	if job.UserID == "" {
		return Permanent(ErrMissingJobField)
	}
	user, err := pw.config.DB.GetUserByID(ctx, job.UserID)
	if errors.Is(err, common.ErrNotFound) {
		return Permanent(ErrUserNotFound)
	}
	if err != nil {
		return Retryable(err)
	}
	pw.logger.Info(fmt.Sprintf("Welcome %s!", user.Email), zap.String("user_id", user.ID))
	return nil
}
