package service

import (
	"context"
	"errors"

	"github.com/PaulBabatuyi/files-manager/internal/access"
	"github.com/PaulBabatuyi/files-manager/internal/common"
	"github.com/PaulBabatuyi/files-manager/internal/models"
	"github.com/PaulBabatuyi/files-manager/internal/observability"
	"github.com/PaulBabatuyi/files-manager/internal/storage"
	"github.com/dustin/go-humanize"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// FileContent is the payload of a byte retrieval.
type FileContent struct {
	Name     string
	MimeType string
	Data     []byte
}

// Upload validates req, persists the blob (if any) and then the record, and
// enqueues thumbnail work for images.
func (s *FileService) Upload(ctx context.Context, id access.Identity, req UploadRequest) (*models.FileRecord, error) {
	ctx, span := s.tracer.Start(ctx, "FileService.Upload")
	defer span.End()

	rec, err := s.upload(ctx, id, req)
	result := "ok"
	if err != nil {
		result = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	kind := string(req.Type)
	if !req.Type.Valid() {
		kind = "invalid"
	}
	observability.UploadsTotal.WithLabelValues(kind, result).Inc()
	return rec, err
}

func (s *FileService) upload(ctx context.Context, id access.Identity, req UploadRequest) (*models.FileRecord, error) {
	if id.IsAnonymous() {
		return nil, common.ErrUnauthorized
	}
	data, err := validateUpload(&req)
	if err != nil {
		return nil, err
	}
	if err := s.checkParent(ctx, id, req.ParentID); err != nil {
		return nil, err
	}

	rec := &models.FileRecord{
		UserID:   id.UserID,
		Name:     req.Name,
		Kind:     req.Type,
		IsPublic: req.IsPublic,
		Parent:   req.ParentID,
	}

	if req.Type == models.KindFolder {
		if err := s.database.SaveFile(ctx, rec); err != nil {
			s.logger.Error("failed to save folder", zap.String("user_id", id.UserID), zap.Error(err))
			return nil, err
		}
		s.logger.Info("folder created", zap.String("file_id", rec.ID), zap.String("user_id", id.UserID))
		return rec, nil
	}

	path, err := s.writeBlob(ctx, data)
	if err != nil {
		return nil, err
	}
	rec.LocalPath = path

	if err := s.database.SaveFile(ctx, rec); err != nil {
		s.logger.Error("failed to save file metadata",
			zap.String("user_id", id.UserID),
			zap.String("path", path),
			zap.Error(err),
		)
		if delErr := s.storage.DeleteBlob(path); delErr != nil {
			s.logger.Warn("orphaned blob left behind", zap.String("path", path), zap.Error(delErr))
		}
		return nil, err
	}

	observability.UploadedBytes.Add(float64(len(data)))
	s.logger.Info("file uploaded",
		zap.String("file_id", rec.ID),
		zap.String("user_id", id.UserID),
		zap.String("kind", string(rec.Kind)),
		zap.String("size", humanize.Bytes(uint64(len(data)))),
	)

	if rec.Kind == models.KindImage {
		// The upload stands even when enqueueing fails.
		if _, err := s.database.EnqueueJob(ctx, models.JobThumbnail, rec.UserID, rec.ID, s.maxAttempts); err != nil {
			s.logger.Warn("failed to enqueue thumbnail job", zap.String("file_id", rec.ID), zap.Error(err))
		}
	}
	return rec, nil
}

// checkParent reports a parent the caller cannot see the same way as a
// missing one.
func (s *FileService) checkParent(ctx context.Context, id access.Identity, parent models.ParentRef) error {
	if parent.IsRoot() {
		return nil
	}
	if !validID(parent.ID()) {
		return common.ErrParentNotFound
	}
	p, err := s.database.GetFile(ctx, parent.ID())
	if errors.Is(err, common.ErrNotFound) {
		return common.ErrParentNotFound
	}
	if err != nil {
		return err
	}
	if !access.CanView(id, p) {
		return common.ErrParentNotFound
	}
	if p.Kind != models.KindFolder {
		return common.ErrParentNotFolder
	}
	return nil
}

func (s *FileService) writeBlob(ctx context.Context, data []byte) (string, error) {
	if err := s.uploadSem.Acquire(ctx, 1); err != nil {
		return "", common.ErrStorageWriteFailed
	}
	defer s.uploadSem.Release(1)

	writeCtx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()

	path, err := s.storage.WriteBlob(writeCtx, data)
	if err != nil {
		s.logger.Error("blob write failed",
			zap.String("size", humanize.Bytes(uint64(len(data)))),
			zap.Error(err),
		)
		return "", common.ErrStorageWriteFailed
	}
	return path, nil
}

// Show returns a record the caller is allowed to see.
func (s *FileService) Show(ctx context.Context, id access.Identity, fileID string) (*models.FileRecord, error) {
	if id.IsAnonymous() {
		return nil, common.ErrUnauthorized
	}
	return s.visibleFile(ctx, id, fileID)
}

func (s *FileService) visibleFile(ctx context.Context, id access.Identity, fileID string) (*models.FileRecord, error) {
	if !validID(fileID) {
		return nil, common.ErrNotFound
	}
	rec, err := s.database.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if !access.CanView(id, rec) {
		return nil, common.ErrNotFound
	}
	return rec, nil
}

// List returns one page of the caller's records under parent, in insertion
// order. Pages past the end are empty.
func (s *FileService) List(ctx context.Context, id access.Identity, parent models.ParentRef, page, pageSize int) ([]*models.FileRecord, error) {
	if id.IsAnonymous() {
		return nil, common.ErrUnauthorized
	}
	if page < 0 {
		page = 0
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	if !parent.IsRoot() && !validID(parent.ID()) {
		return []*models.FileRecord{}, nil
	}
	return s.database.ListFiles(ctx, id.UserID, parent, pageSize, page*pageSize)
}

// SetPublic flips the visibility of a record owned by the caller.
func (s *FileService) SetPublic(ctx context.Context, id access.Identity, fileID string, public bool) (*models.FileRecord, error) {
	if id.IsAnonymous() {
		return nil, common.ErrUnauthorized
	}
	if !validID(fileID) {
		return nil, common.ErrNotFound
	}
	rec, err := s.database.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if !access.CanMutate(id, rec) {
		return nil, common.ErrNotFound
	}
	updated, err := s.database.SetPublic(ctx, fileID, id.UserID, public)
	if err != nil {
		return nil, err
	}
	s.logger.Info("visibility changed",
		zap.String("file_id", fileID),
		zap.Bool("is_public", public),
	)
	return updated, nil
}

// GetFileBytes resolves fileID and an optional variant size to content.
// The caller may be anonymous.
func (s *FileService) GetFileBytes(ctx context.Context, id access.Identity, fileID, size string) (*FileContent, error) {
	ctx, span := s.tracer.Start(ctx, "FileService.GetFileBytes")
	defer span.End()
	span.SetAttributes(attribute.String("file.id", fileID), attribute.String("file.size", size))

	rec, err := s.visibleFile(ctx, id, fileID)
	if err != nil {
		return nil, err
	}
	if rec.Kind == models.KindFolder {
		return nil, common.ErrFolderHasNoContent
	}
	variant, err := parseVariantSize(size)
	if err != nil {
		return nil, err
	}

	path := rec.LocalPath
	if variant > 0 {
		path = storage.VariantPath(path, variant)
	}
	data, err := s.storage.ReadBlob(ctx, path)
	if errors.Is(err, storage.ErrBlobNotFound) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		s.logger.Error("blob read failed", zap.String("file_id", fileID), zap.Error(err))
		return nil, err
	}

	return &FileContent{
		Name:     rec.Name,
		MimeType: contentTypeFor(rec.Name),
		Data:     data,
	}, nil
}
