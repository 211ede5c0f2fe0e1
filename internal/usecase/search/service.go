package search

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yow-cloud/shoplens/internal/domain"
	"github.com/yow-cloud/shoplens/internal/domain/product"
	"github.com/yow-cloud/shoplens/internal/domain/search/filter"
	"github.com/yow-cloud/shoplens/internal/domain/search/query"
	"github.com/yow-cloud/shoplens/internal/domain/search/result"
	"github.com/yow-cloud/shoplens/internal/metrics"
)

// Config holds query dispatch tuning knobs.
type Config struct {
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

// Service dispatches visual queries to the remote index. The filter is
// compiled before any image payload is touched so a bad filter never spends a
// remote call. Results are fully ordered: score descending, product id
// ascending on ties.
type Service struct {
	matcher Matcher
	probe   ImageProbe
	vocab   product.Vocabulary
	cfg     Config
	logger  *zap.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

// New creates a query dispatcher.
func New(matcher Matcher, probe ImageProbe, vocab product.Vocabulary, cfg Config, logger *zap.Logger) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.RetryAttempts < 0 {
		cfg.RetryAttempts = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	return &Service{
		matcher: matcher,
		probe:   probe,
		vocab:   vocab,
		cfg:     cfg,
		logger:  logger,
		sleep:   sleepCtx,
	}
}

// WithSleep overrides the retry delay primitive (tests).
func (s *Service) WithSleep(sleep func(ctx context.Context, d time.Duration) error) *Service {
	s.sleep = sleep
	return s
}

// Dispatch runs one visual search end to end.
func (s *Service) Dispatch(ctx context.Context, q query.Query) ([]result.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	expr, err := filter.Compile(q.RawFilter(), s.vocab)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidFilter, err)
	}

	imageBytes, imageURI, err := s.resolvePayload(ctx, q)
	if err != nil {
		return nil, err
	}

	results, err := s.matchWithRetry(ctx, imageBytes, imageURI, expr.Native(), q.MaxResults())
	if err != nil {
		return nil, err
	}

	sortResults(results)
	if len(results) > q.MaxResults() {
		results = results[:q.MaxResults()]
	}
	metrics.SearchResultsReturned.Observe(float64(len(results)))
	return results, nil
}

func (s *Service) resolvePayload(ctx context.Context, q query.Query) ([]byte, string, error) {
	switch q.Modality() {
	case query.Upload:
		return q.ImageBytes(), "", nil
	case query.URL:
		if err := s.probe.Probe(ctx, q.ImageURL()); err != nil {
			return nil, "", err
		}
		return nil, q.ImageURL(), nil
	case query.Inline:
		data, err := decodeInline(q.InlinePayload())
		if err != nil {
			return nil, "", err
		}
		return data, "", nil
	default:
		return nil, "", fmt.Errorf("unsupported query modality %q", q.Modality())
	}
}

// matchWithRetry retries only on ErrUnavailable with a fixed delay.
// ErrRateLimited is surfaced immediately; retrying into a throttle makes it
// worse.
func (s *Service) matchWithRetry(ctx context.Context, imageBytes []byte, imageURI, filterStr string, maxResults int) ([]result.Result, error) {
	var lastErr error
	for attempt := 0; attempt <= s.cfg.RetryAttempts; attempt++ {
		if attempt > 0 {
			s.logger.Warn("retrying search",
				zap.Int("attempt", attempt),
				zap.Error(lastErr),
			)
			if err := s.sleep(ctx, s.cfg.RetryDelay); err != nil {
				break
			}
		}
		results, err := s.matcher.Match(ctx, imageBytes, imageURI, filterStr, maxResults)
		if err == nil {
			return results, nil
		}
		lastErr = err
		if !errors.Is(err, domain.ErrUnavailable) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("search exhausted retries: %w", lastErr)
}

// decodeInline decodes a base64 image payload, tolerating a data-URL prefix
// (data:image/jpeg;base64,...).
func decodeInline(payload string) ([]byte, error) {
	if strings.HasPrefix(payload, "data:") {
		if _, rest, ok := strings.Cut(payload, ","); ok {
			payload = rest
		}
	}
	payload = strings.TrimSpace(payload)
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(payload)
	}
	if err != nil || len(data) == 0 {
		return nil, fmt.Errorf("%w: payload is not valid base64", domain.ErrBadImage)
	}
	return data, nil
}

func sortResults(results []result.Result) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score() != results[j].Score() {
			return results[i].Score() > results[j].Score()
		}
		return results[i].ProductID() < results[j].ProductID()
	})
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
