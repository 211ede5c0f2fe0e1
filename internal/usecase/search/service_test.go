package search

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/yow-cloud/shoplens/internal/domain"
	"github.com/yow-cloud/shoplens/internal/domain/product"
	"github.com/yow-cloud/shoplens/internal/domain/search/query"
	"github.com/yow-cloud/shoplens/internal/domain/search/result"
)

type mockMatcher struct {
	matchFn func(ctx context.Context, imageBytes []byte, imageURI, filter string, maxResults int) ([]result.Result, error)
	calls   int
}

func (m *mockMatcher) Match(ctx context.Context, imageBytes []byte, imageURI, filter string, maxResults int) ([]result.Result, error) {
	m.calls++
	if m.matchFn != nil {
		return m.matchFn(ctx, imageBytes, imageURI, filter, maxResults)
	}
	return nil, nil
}

type mockProbe struct {
	probeFn func(ctx context.Context, url string) error
}

func (m *mockProbe) Probe(ctx context.Context, url string) error {
	if m.probeFn != nil {
		return m.probeFn(ctx, url)
	}
	return nil
}

func noSleep(_ context.Context, _ time.Duration) error { return nil }

func newDispatcher(matcher Matcher, probe ImageProbe) *Service {
	svc := New(matcher, probe, product.DefaultVocabulary(), Config{
		Timeout:       time.Second,
		RetryAttempts: 2,
		RetryDelay:    time.Millisecond,
	}, zap.NewNop())
	return svc.WithSleep(noSleep)
}

func uploadQuery(t *testing.T, rawFilter string, maxResults int) query.Query {
	t.Helper()
	q, err := query.NewUpload([]byte("jpeg-bytes"), rawFilter, maxResults)
	if err != nil {
		t.Fatalf("NewUpload() unexpected error: %v", err)
	}
	return q
}

func TestDispatch_FilterCompiledBeforeRemoteCall(t *testing.T) {
	matcher := &mockMatcher{}
	svc := newDispatcher(matcher, &mockProbe{})

	q := uploadQuery(t, `colour="blue"`, 10)
	_, err := svc.Dispatch(context.Background(), q)
	if !errors.Is(err, domain.ErrInvalidFilter) {
		t.Fatalf("Dispatch() error = %v, want %v", err, domain.ErrInvalidFilter)
	}
	if matcher.calls != 0 {
		t.Errorf("matcher called %d times for a bad filter, want 0", matcher.calls)
	}
}

func TestDispatch_PassesNativeFilter(t *testing.T) {
	var gotFilter string
	matcher := &mockMatcher{
		matchFn: func(_ context.Context, _ []byte, _, filter string, _ int) ([]result.Result, error) {
			gotFilter = filter
			return nil, nil
		},
	}
	svc := newDispatcher(matcher, &mockProbe{})

	q := uploadQuery(t, `color="blue" AND category="dresses"`, 10)
	if _, err := svc.Dispatch(context.Background(), q); err != nil {
		t.Fatalf("Dispatch() unexpected error: %v", err)
	}
	if gotFilter != "color=blue AND category=dresses" {
		t.Errorf("native filter = %q", gotFilter)
	}
}

func TestDispatch_ResultsOrderedAndTruncated(t *testing.T) {
	matcher := &mockMatcher{
		matchFn: func(_ context.Context, _ []byte, _, _ string, _ int) ([]result.Result, error) {
			return []result.Result{
				result.New("sku-b", "B", 0.8, "gs://b", nil),
				result.New("sku-a", "A", 0.8, "gs://a", nil),
				result.New("sku-c", "C", 0.95, "gs://c", nil),
				result.New("sku-d", "D", 0.5, "gs://d", nil),
			}, nil
		},
	}
	svc := newDispatcher(matcher, &mockProbe{})

	q := uploadQuery(t, "", 3)
	results, err := svc.Dispatch(context.Background(), q)
	if err != nil {
		t.Fatalf("Dispatch() unexpected error: %v", err)
	}

	want := []string{"sku-c", "sku-a", "sku-b"}
	if len(results) != len(want) {
		t.Fatalf("len(results) = %d, want %d", len(results), len(want))
	}
	for i, id := range want {
		if results[i].ProductID() != id {
			t.Errorf("results[%d] = %s, want %s", i, results[i].ProductID(), id)
		}
	}
}

func TestDispatch_URLProbeFailure(t *testing.T) {
	matcher := &mockMatcher{}
	probe := &mockProbe{
		probeFn: func(_ context.Context, url string) error {
			return domain.ErrImageUnavailable
		},
	}
	svc := newDispatcher(matcher, probe)

	q, err := query.NewURL("https://images.example.com/q.jpg", "", 10)
	if err != nil {
		t.Fatalf("NewURL() unexpected error: %v", err)
	}
	_, err = svc.Dispatch(context.Background(), q)
	if !errors.Is(err, domain.ErrImageUnavailable) {
		t.Fatalf("Dispatch() error = %v, want %v", err, domain.ErrImageUnavailable)
	}
	if matcher.calls != 0 {
		t.Errorf("matcher called %d times for unreachable URL, want 0", matcher.calls)
	}
}

func TestDispatch_InlineDecoding(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("jpeg-bytes"))

	tests := []struct {
		name    string
		payload string
		wantErr error
	}{
		{name: "plain base64", payload: encoded},
		{name: "data url prefix", payload: "data:image/jpeg;base64," + encoded},
		{name: "garbage", payload: "!!not-base64!!", wantErr: domain.ErrBadImage},
		{name: "empty after decode", payload: "data:image/jpeg;base64,", wantErr: domain.ErrBadImage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotBytes []byte
			matcher := &mockMatcher{
				matchFn: func(_ context.Context, imageBytes []byte, _, _ string, _ int) ([]result.Result, error) {
					gotBytes = imageBytes
					return nil, nil
				},
			}
			svc := newDispatcher(matcher, &mockProbe{})

			q, err := query.NewInline(tt.payload, "", 10)
			if err != nil {
				t.Fatalf("NewInline() unexpected error: %v", err)
			}
			_, err = svc.Dispatch(context.Background(), q)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Dispatch() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Dispatch() unexpected error: %v", err)
			}
			if string(gotBytes) != "jpeg-bytes" {
				t.Errorf("decoded bytes = %q, want jpeg-bytes", gotBytes)
			}
		})
	}
}

func TestDispatch_RetriesTransientOnly(t *testing.T) {
	t.Run("unavailable retried then succeeds", func(t *testing.T) {
		matcher := &mockMatcher{}
		matcher.matchFn = func(_ context.Context, _ []byte, _, _ string, _ int) ([]result.Result, error) {
			if matcher.calls < 2 {
				return nil, domain.ErrUnavailable
			}
			return []result.Result{result.New("sku-a", "A", 0.9, "gs://a", nil)}, nil
		}
		svc := newDispatcher(matcher, &mockProbe{})

		results, err := svc.Dispatch(context.Background(), uploadQuery(t, "", 10))
		if err != nil {
			t.Fatalf("Dispatch() unexpected error: %v", err)
		}
		if len(results) != 1 || matcher.calls != 2 {
			t.Errorf("results=%d calls=%d, want 1 result after 2 calls", len(results), matcher.calls)
		}
	})

	t.Run("unavailable exhausts retries", func(t *testing.T) {
		matcher := &mockMatcher{
			matchFn: func(_ context.Context, _ []byte, _, _ string, _ int) ([]result.Result, error) {
				return nil, domain.ErrUnavailable
			},
		}
		svc := newDispatcher(matcher, &mockProbe{})

		_, err := svc.Dispatch(context.Background(), uploadQuery(t, "", 10))
		if !errors.Is(err, domain.ErrUnavailable) {
			t.Fatalf("Dispatch() error = %v, want %v", err, domain.ErrUnavailable)
		}
		if matcher.calls != 3 {
			t.Errorf("matcher calls = %d, want 3 (initial + 2 retries)", matcher.calls)
		}
	})

	t.Run("rate limited not retried", func(t *testing.T) {
		matcher := &mockMatcher{
			matchFn: func(_ context.Context, _ []byte, _, _ string, _ int) ([]result.Result, error) {
				return nil, domain.ErrRateLimited
			},
		}
		svc := newDispatcher(matcher, &mockProbe{})

		_, err := svc.Dispatch(context.Background(), uploadQuery(t, "", 10))
		if !errors.Is(err, domain.ErrRateLimited) {
			t.Fatalf("Dispatch() error = %v, want %v", err, domain.ErrRateLimited)
		}
		if matcher.calls != 1 {
			t.Errorf("matcher calls = %d, want 1", matcher.calls)
		}
	})

	t.Run("bad image not retried", func(t *testing.T) {
		matcher := &mockMatcher{
			matchFn: func(_ context.Context, _ []byte, _, _ string, _ int) ([]result.Result, error) {
				return nil, domain.ErrBadImage
			},
		}
		svc := newDispatcher(matcher, &mockProbe{})

		_, err := svc.Dispatch(context.Background(), uploadQuery(t, "", 10))
		if !errors.Is(err, domain.ErrBadImage) {
			t.Fatalf("Dispatch() error = %v, want %v", err, domain.ErrBadImage)
		}
		if matcher.calls != 1 {
			t.Errorf("matcher calls = %d, want 1", matcher.calls)
		}
	})
}

func TestDispatch_EmptyResultIsNotAnError(t *testing.T) {
	svc := newDispatcher(&mockMatcher{}, &mockProbe{})

	results, err := svc.Dispatch(context.Background(), uploadQuery(t, "", 10))
	if err != nil {
		t.Fatalf("Dispatch() unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("len(results) = %d, want 0", len(results))
	}
}
