package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yow-cloud/shoplens/internal/domain"
	"github.com/yow-cloud/shoplens/internal/domain/imports"
	"github.com/yow-cloud/shoplens/internal/domain/product"
	"github.com/yow-cloud/shoplens/internal/metrics"
	"github.com/yow-cloud/shoplens/internal/source"
)

// Config holds import pipeline tuning knobs.
type Config struct {
	BatchSize    int
	MaxTries     int
	RetryBase    time.Duration
	RetryCap     time.Duration
	ChunkTimeout time.Duration
}

// Service runs catalog imports: normalize, mirror images, upsert in chunks,
// then advance the index lifecycle. Partial failure is reported, not raised.
type Service struct {
	normalizer Normalizer
	writer     CatalogWriter
	mirror     ImageMirror
	lifecycle  Lifecycle
	cfg        Config
	logger     *zap.Logger
}

// New creates an importer. mirror may be nil when image mirroring is off;
// http(s) reference images are then handed to the backend as-is.
func New(normalizer Normalizer, writer CatalogWriter, mirror ImageMirror, lifecycle Lifecycle, cfg Config, logger *zap.Logger) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.MaxTries <= 0 {
		cfg.MaxTries = 5
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = time.Second
	}
	if cfg.RetryCap <= 0 {
		cfg.RetryCap = 30 * time.Second
	}
	if cfg.ChunkTimeout <= 0 {
		cfg.ChunkTimeout = 30 * time.Second
	}
	return &Service{
		normalizer: normalizer,
		writer:     writer,
		mirror:     mirror,
		lifecycle:  lifecycle,
		cfg:        cfg,
		logger:     logger,
	}
}

// Import submits raw records to the remote catalog and returns a per-batch
// report. The error return is reserved for whole-batch aborts (lifecycle
// bootstrap failure, context cancellation); per-product failures land in the
// report instead.
func (s *Service) Import(ctx context.Context, records []source.Record) (imports.Report, error) {
	batchID := uuid.NewString()
	log := s.logger.With(zap.String("batch_id", batchID))

	if err := s.lifecycle.EnsureIndex(ctx); err != nil {
		return imports.Report{}, fmt.Errorf("bootstrap index: %w", err)
	}

	products, failedIDs := s.normalizeAll(records, log)

	mirrored := make([]product.Product, 0, len(products))
	for _, p := range products {
		mp, err := s.mirrorImage(ctx, p)
		if err != nil {
			log.Warn("image mirror failed",
				zap.String("product_id", p.ID()),
				zap.Error(err),
			)
			failedIDs = append(failedIDs, p.ID())
			continue
		}
		mirrored = append(mirrored, mp)
	}

	succeeded := 0
	for start := 0; start < len(mirrored); start += s.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			for _, p := range mirrored[start:] {
				failedIDs = append(failedIDs, p.ID())
			}
			report := s.finishReport(ctx, batchID, len(records), succeeded, failedIDs, log)
			return report, fmt.Errorf("import canceled: %w", err)
		}

		end := start + s.cfg.BatchSize
		if end > len(mirrored) {
			end = len(mirrored)
		}
		okIDs, badIDs := s.processChunk(ctx, mirrored[start:end], log)
		succeeded += len(okIDs)
		failedIDs = append(failedIDs, badIDs...)
	}

	return s.finishReport(ctx, batchID, len(records), succeeded, failedIDs, log), nil
}

func (s *Service) normalizeAll(records []source.Record, log *zap.Logger) ([]product.Product, []string) {
	products := make([]product.Product, 0, len(records))
	var failedIDs []string
	for i, rec := range records {
		p, err := s.normalizer.Normalize(rec)
		if err != nil {
			log.Warn("record rejected", zap.Int("position", i+1), zap.Error(err))
			failedIDs = append(failedIDs, recordID(rec, i))
			continue
		}
		products = append(products, p)
	}
	return products, failedIDs
}

func (s *Service) mirrorImage(ctx context.Context, p product.Product) (product.Product, error) {
	if s.mirror == nil || !strings.HasPrefix(p.ImageURI(), "http") {
		return p, nil
	}
	uri, err := s.mirror.Mirror(ctx, p.ImageURI(), p.ID())
	if err != nil {
		return product.Product{}, err
	}
	return p.WithImageURI(uri), nil
}

// processChunk upserts one chunk with exponential backoff on transient
// errors. The whole chunk is re-walked on retry; upserts already applied are
// idempotent. Products hit by non-transient errors fail immediately and are
// excluded from retries.
func (s *Service) processChunk(ctx context.Context, chunk []product.Product, log *zap.Logger) (okIDs, badIDs []string) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ChunkTimeout)
	defer cancel()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.cfg.RetryBase
	bo.MaxInterval = s.cfg.RetryCap

	done := make(map[string]bool, len(chunk))
	failed := make(map[string]bool)

	for attempt := 1; attempt <= s.cfg.MaxTries; attempt++ {
		transient := false
		for _, p := range chunk {
			if done[p.ID()] || failed[p.ID()] {
				continue
			}
			err := s.writer.UpsertProduct(ctx, p)
			switch {
			case err == nil:
				done[p.ID()] = true
			case isTransient(err):
				transient = true
				log.Warn("transient upsert failure",
					zap.String("product_id", p.ID()),
					zap.Int("attempt", attempt),
					zap.Error(err),
				)
			default:
				failed[p.ID()] = true
				log.Warn("product rejected by backend",
					zap.String("product_id", p.ID()),
					zap.Error(err),
				)
			}
		}
		if !transient || attempt == s.cfg.MaxTries {
			break
		}
		select {
		case <-time.After(bo.NextBackOff()):
		case <-ctx.Done():
			attempt = s.cfg.MaxTries
		}
	}

	for _, p := range chunk {
		if done[p.ID()] {
			okIDs = append(okIDs, p.ID())
		} else {
			badIDs = append(badIDs, p.ID())
		}
	}
	return okIDs, badIDs
}

func (s *Service) finishReport(ctx context.Context, batchID string, submitted, succeeded int, failedIDs []string, log *zap.Logger) imports.Report {
	if succeeded > 0 {
		// Lifecycle transition uses a fresh context so a canceled import
		// still records what it managed to submit.
		markCtx := ctx
		if markCtx.Err() != nil {
			var cancel context.CancelFunc
			markCtx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
		}
		if _, err := s.lifecycle.MarkImport(markCtx, succeeded); err != nil {
			log.Warn("import not recorded in lifecycle", zap.Error(err))
		}
	}

	metrics.ImportProductsTotal.WithLabelValues("succeeded").Add(float64(succeeded))
	metrics.ImportProductsTotal.WithLabelValues("failed").Add(float64(len(failedIDs)))

	log.Info("import finished",
		zap.Int("submitted", submitted),
		zap.Int("succeeded", succeeded),
		zap.Int("failed", len(failedIDs)),
	)
	return imports.NewReport(batchID, submitted, succeeded, failedIDs)
}

func isTransient(err error) bool {
	return errors.Is(err, domain.ErrUnavailable) || errors.Is(err, domain.ErrRateLimited)
}

// recordID names a rejected record in the report. Records that never had an
// id are named by their position in the batch.
func recordID(rec source.Record, i int) string {
	if id := strings.TrimSpace(rec.Fields["id"]); id != "" {
		return id
	}
	return fmt.Sprintf("record-%d", i+1)
}
