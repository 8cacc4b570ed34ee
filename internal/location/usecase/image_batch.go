package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/Abdurahmanit/GroupProject/location-service/internal/location/domain"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/platform/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var errNoImageStorage = errors.New("image storage is not configured")

// ImageBatch uploads the images of one location with bounded concurrency.
// A failed item never aborts the batch: a URL input keeps its original
// reference, an inline input yields no reference. Results are index-aligned.
type ImageBatch struct {
	storage     domain.ImageStorage
	fetcher     domain.ImageFetcher
	concurrency int
	logger      *logger.Logger
	metrics     *metrics.MetricsManager
}

// NewImageBatch builds a batch uploader. storage and fetcher may be nil.
func NewImageBatch(storage domain.ImageStorage, fetcher domain.ImageFetcher, concurrency int, log *logger.Logger, m *metrics.MetricsManager) *ImageBatch {
	if concurrency < 1 {
		concurrency = 1
	}
	return &ImageBatch{
		storage:     storage,
		fetcher:     fetcher,
		concurrency: concurrency,
		logger:      log.Named("ImageBatch"),
		metrics:     m,
	}
}

func (b *ImageBatch) Process(ctx context.Context, folder string, inputs []domain.ImageInput) []domain.ImageResult {
	results := make([]domain.ImageResult, len(inputs))
	if len(inputs) == 0 {
		return results
	}

	var g errgroup.Group
	g.SetLimit(b.concurrency)
	for i, in := range inputs {
		g.Go(func() error {
			results[i] = b.processOne(ctx, folder, i, in)
			return nil
		})
	}
	_ = g.Wait()

	var uploaded, kept, failed int
	for _, r := range results {
		switch {
		case r.Err != nil:
			failed++
			b.metrics.ImageUploadsTotal.WithLabelValues("failed").Inc()
		case r.Uploaded:
			uploaded++
			b.metrics.ImageUploadsTotal.WithLabelValues("uploaded").Inc()
		default:
			kept++
			b.metrics.ImageUploadsTotal.WithLabelValues("kept").Inc()
		}
	}
	fields := []zap.Field{
		zap.String("folder", folder),
		zap.Int("total", len(inputs)),
		zap.Int("uploaded", uploaded),
		zap.Int("kept", kept),
		zap.Int("failed", failed),
	}
	if failed > 0 {
		b.logger.Warn("image batch finished with failures", fields...)
	} else {
		b.logger.Info("image batch finished", fields...)
	}
	return results
}

func (b *ImageBatch) processOne(ctx context.Context, folder string, idx int, in domain.ImageInput) domain.ImageResult {
	res := domain.ImageResult{Index: idx, Source: in.URL}
	if in.IsInline() {
		res.Source = in.FileName
		url, err := b.upload(ctx, folder, in.FileName, idx, in.Data)
		if err != nil {
			res.Err = storeErr(err)
			b.logger.Warn("inline image upload failed, dropping it", zap.Int("index", idx), zap.Error(err))
			return res
		}
		res.URL, res.Uploaded = url, true
		return res
	}

	if in.URL == "" {
		res.Err = fmt.Errorf("%w: image %d has neither data nor url", domain.ErrInvalidInput, idx)
		return res
	}
	res.URL = in.URL
	if b.storage != nil && b.storage.Owns(in.URL) {
		return res
	}
	if b.fetcher == nil || b.storage == nil {
		return res
	}

	name, data, err := b.fetcher.Fetch(ctx, in.URL)
	if err != nil {
		res.Err = domain.ErrImageUnavailable
		b.logger.Warn("remote image fetch failed, keeping original reference", zap.Int("index", idx), zap.String("url", in.URL), zap.Error(err))
		return res
	}
	url, err := b.upload(ctx, folder, name, idx, data)
	if err != nil {
		res.Err = storeErr(err)
		b.logger.Warn("re-hosting remote image failed, keeping original reference", zap.Int("index", idx), zap.String("url", in.URL), zap.Error(err))
		return res
	}
	res.URL, res.Uploaded = url, true
	return res
}

// storeErr hides storage details from the per-image result.
func storeErr(err error) error {
	if errors.Is(err, errNoImageStorage) {
		return err
	}
	return domain.ErrImageNotStored
}

func (b *ImageBatch) upload(ctx context.Context, folder, name string, idx int, data []byte) (string, error) {
	if b.storage == nil {
		return "", errNoImageStorage
	}
	if name == "" {
		name = fmt.Sprintf("image-%d", idx)
	}
	return b.storage.Upload(ctx, folder, name, data)
}

// Cleanup deletes every object the batch uploaded. Errors are logged only.
func (b *ImageBatch) Cleanup(ctx context.Context, results []domain.ImageResult) {
	for _, r := range results {
		if !r.Uploaded || r.URL == "" {
			continue
		}
		b.Delete(ctx, r.URL)
	}
}

// Delete removes one image if it lives in our storage. Errors are logged only.
func (b *ImageBatch) Delete(ctx context.Context, url string) {
	if b.storage == nil || !b.storage.Owns(url) {
		return
	}
	if err := b.storage.Delete(ctx, url); err != nil {
		b.logger.Warn("failed to delete image", zap.String("url", url), zap.Error(err))
	}
}

// URLs collects the usable references in input order.
func URLs(results []domain.ImageResult) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		if r.URL != "" {
			out = append(out, r.URL)
		}
	}
	return out
}
