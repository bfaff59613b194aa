package worker

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/PaulBabatuyi/files-manager/internal/models"
	"github.com/PaulBabatuyi/files-manager/internal/observability"
	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type BlobStore interface {
	ReadBlob(ctx context.Context, path string) ([]byte, error)
	WriteVariant(ctx context.Context, path string, size int, data []byte) error
}

// ImageProcessor renders the fixed-width variants of a primary image blob.
type ImageProcessor struct {
	storage BlobStore
	sizes   []int
	logger  *zap.Logger
	tracer  trace.Tracer
}

func NewImageProcessor(storage BlobStore, logger *zap.Logger) *ImageProcessor {
	return &ImageProcessor{
		storage: storage,
		sizes:   models.VariantSizes,
		logger:  logger.Named("thumbnails"),
		tracer:  otel.Tracer("github.com/PaulBabatuyi/files-manager/internal/worker"),
	}
}

// GenerateVariants writes every variant of the blob at path, overwriting
// earlier ones. It succeeds only when all sizes were written.
func (ip *ImageProcessor) GenerateVariants(ctx context.Context, path string) error {
	ctx, span := ip.tracer.Start(ctx, "ImageProcessor.GenerateVariants")
	defer span.End()
	start := time.Now()

	data, err := ip.storage.ReadBlob(ctx, path)
	if err != nil {
		return fmt.Errorf("read source: %w", err)
	}

	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}
	format := encodingFormat(data)
	span.SetAttributes(
		attribute.Int("image.width", src.Bounds().Dx()),
		attribute.Int("image.height", src.Bounds().Dy()),
		attribute.String("image.format", format.String()),
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, size := range ip.sizes {
		g.Go(func() error {
			thumb := imaging.Resize(src, size, 0, imaging.Lanczos)

			var buf bytes.Buffer
			if err := imaging.Encode(&buf, thumb, format); err != nil {
				return fmt.Errorf("encode %d: %w", size, err)
			}
			if err := ip.storage.WriteVariant(gctx, path, size, buf.Bytes()); err != nil {
				return fmt.Errorf("write %d: %w", size, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	elapsed := time.Since(start)
	observability.ThumbnailDuration.Observe(elapsed.Seconds())
	ip.logger.Debug("variants written",
		zap.String("path", path),
		zap.Ints("sizes", ip.sizes),
		zap.Duration("duration", elapsed),
	)
	return nil
}

// encodingFormat keeps the variants in the source's format when imaging can
// write it, and falls back to JPEG.
func encodingFormat(data []byte) imaging.Format {
	ext := mimetype.Detect(data).Extension()
	if f, err := imaging.FormatFromExtension(ext); err == nil {
		return f
	}
	return imaging.JPEG
}
