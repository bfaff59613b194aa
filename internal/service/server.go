package service

import (
	"context"
	"time"

	"github.com/PaulBabatuyi/files-manager/internal/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type StorageInterface interface {
	WriteBlob(ctx context.Context, data []byte) (string, error)
	ReadBlob(ctx context.Context, path string) ([]byte, error)
	DeleteBlob(path string) error
}

type DatabaseInterface interface {
	SaveFile(ctx context.Context, rec *models.FileRecord) error
	GetFile(ctx context.Context, fileID string) (*models.FileRecord, error)
	ListFiles(ctx context.Context, userID string, parent models.ParentRef, limit, offset int) ([]*models.FileRecord, error)
	SetPublic(ctx context.Context, fileID, userID string, public bool) (*models.FileRecord, error)
	EnqueueJob(ctx context.Context, kind models.JobKind, userID, fileID string, maxAttempts int) (int64, error)
}

// Options tunes the file pipeline. Zero values fall back to defaults.
type Options struct {
	MaxConcurrentUploads int64
	WriteTimeout         time.Duration
	JobMaxAttempts       int
}

type FileService struct {
	storage      StorageInterface
	database     DatabaseInterface
	uploadSem    *semaphore.Weighted
	writeTimeout time.Duration
	maxAttempts  int
	logger       *zap.Logger
	tracer       trace.Tracer
}

func NewFileService(storage StorageInterface, db DatabaseInterface, opts Options, logger *zap.Logger) *FileService {
	if opts.MaxConcurrentUploads <= 0 {
		opts.MaxConcurrentUploads = 16
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 30 * time.Second
	}
	if opts.JobMaxAttempts <= 0 {
		opts.JobMaxAttempts = 3
	}
	return &FileService{
		storage:      storage,
		database:     db,
		uploadSem:    semaphore.NewWeighted(opts.MaxConcurrentUploads),
		writeTimeout: opts.WriteTimeout,
		maxAttempts:  opts.JobMaxAttempts,
		logger:       logger.Named("files"),
		tracer:       otel.Tracer("github.com/PaulBabatuyi/files-manager/internal/service"),
	}
}
