package index

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/yow-cloud/shoplens/internal/domain"
	domidx "github.com/yow-cloud/shoplens/internal/domain/index"
)

type mockRemote struct {
	ensureFn    func(ctx context.Context) error
	indexTimeFn func(ctx context.Context) (time.Time, error)
}

func (m *mockRemote) EnsureProductSet(ctx context.Context) error {
	if m.ensureFn != nil {
		return m.ensureFn(ctx)
	}
	return nil
}

func (m *mockRemote) IndexTime(ctx context.Context) (time.Time, error) {
	if m.indexTimeFn != nil {
		return m.indexTimeFn(ctx)
	}
	return time.Time{}, nil
}

type mockRepo struct {
	saveFn func(ctx context.Context, productSetID string, s domidx.State) error
	loadFn func(ctx context.Context, productSetID string) (domidx.State, error)
}

func (m *mockRepo) Save(ctx context.Context, id string, s domidx.State) error {
	if m.saveFn != nil {
		return m.saveFn(ctx, id, s)
	}
	return nil
}

func (m *mockRepo) Load(ctx context.Context, id string) (domidx.State, error) {
	if m.loadFn != nil {
		return m.loadFn(ctx, id)
	}
	return domidx.State{}, domain.ErrNotFound
}

func newService(remote RemoteIndex, repo Repository) *Service {
	return New(remote, repo, Config{ProductSetID: "fashion-set"}, zap.NewNop())
}

func TestRestore(t *testing.T) {
	t.Run("missing snapshot keeps empty state", func(t *testing.T) {
		svc := newService(&mockRemote{}, &mockRepo{})
		if err := svc.Restore(context.Background()); err != nil {
			t.Fatalf("Restore() unexpected error: %v", err)
		}
		if got := svc.Status().Status(); got != domidx.StatusEmpty {
			t.Errorf("Status() = %s, want %s", got, domidx.StatusEmpty)
		}
	})

	t.Run("persisted snapshot is rehydrated", func(t *testing.T) {
		stored := domidx.Reconstruct(domidx.StatusReady, 42, 100, 200, 300, 150, 0)
		repo := &mockRepo{
			loadFn: func(_ context.Context, _ string) (domidx.State, error) {
				return stored, nil
			},
		}
		svc := newService(&mockRemote{}, repo)
		if err := svc.Restore(context.Background()); err != nil {
			t.Fatalf("Restore() unexpected error: %v", err)
		}
		if got := svc.Status(); got.Status() != domidx.StatusReady || got.LastImportCount() != 42 {
			t.Errorf("Status() = %s/%d, want ready/42", got.Status(), got.LastImportCount())
		}
	})

	t.Run("store failure surfaces", func(t *testing.T) {
		repo := &mockRepo{
			loadFn: func(_ context.Context, _ string) (domidx.State, error) {
				return domidx.State{}, errors.New("connection refused")
			},
		}
		svc := newService(&mockRemote{}, repo)
		if err := svc.Restore(context.Background()); err == nil {
			t.Fatal("Restore() expected error")
		}
	})
}

func TestMarkImportPersistsBeforePublishing(t *testing.T) {
	saved := 0
	repo := &mockRepo{
		saveFn: func(_ context.Context, _ string, s domidx.State) error {
			saved++
			if s.Status() != domidx.StatusStale {
				t.Errorf("persisted status = %s, want %s", s.Status(), domidx.StatusStale)
			}
			return nil
		},
	}
	svc := newService(&mockRemote{}, repo)

	st, err := svc.MarkImport(context.Background(), 120)
	if err != nil {
		t.Fatalf("MarkImport() unexpected error: %v", err)
	}
	if saved != 1 {
		t.Errorf("Save called %d times, want 1", saved)
	}
	if st.Status() != domidx.StatusStale || st.LastImportCount() != 120 {
		t.Errorf("state = %s/%d, want stale/120", st.Status(), st.LastImportCount())
	}
	if got := svc.Status(); got.Status() != domidx.StatusStale {
		t.Errorf("Status() = %s, want stale", got.Status())
	}
}

func TestMarkImportKeepsStateOnPersistFailure(t *testing.T) {
	repo := &mockRepo{
		saveFn: func(_ context.Context, _ string, _ domidx.State) error {
			return errors.New("connection refused")
		},
	}
	svc := newService(&mockRemote{}, repo)

	if _, err := svc.MarkImport(context.Background(), 120); err == nil {
		t.Fatal("MarkImport() expected error")
	}
	if got := svc.Status().Status(); got != domidx.StatusEmpty {
		t.Errorf("Status() = %s, want unchanged %s", got, domidx.StatusEmpty)
	}
}

func TestPollTransitions(t *testing.T) {
	importedAt := time.UnixMilli(1_700_000_000_000)
	staleBuiltAt := importedAt.Add(-time.Minute)
	builtAt := importedAt.Add(50 * time.Minute)

	buildTime := staleBuiltAt
	remote := &mockRemote{
		indexTimeFn: func(_ context.Context) (time.Time, error) {
			return buildTime, nil
		},
	}
	now := importedAt
	svc := newService(remote, &mockRepo{}).WithClock(func() time.Time { return now })

	if _, err := svc.MarkImport(context.Background(), 10); err != nil {
		t.Fatalf("MarkImport() unexpected error: %v", err)
	}

	// The remote still reports a build from before the import: not ready yet.
	now = importedAt.Add(time.Minute)
	st := svc.Poll(context.Background())
	if st.Status() != domidx.StatusBuilding {
		t.Errorf("Status() = %s while build predates import, want %s", st.Status(), domidx.StatusBuilding)
	}

	// A build newer than the import flips the index to ready.
	buildTime = builtAt
	now = builtAt.Add(time.Minute)
	st = svc.Poll(context.Background())
	if st.Status() != domidx.StatusReady {
		t.Errorf("Status() = %s, want %s", st.Status(), domidx.StatusReady)
	}
	if st.IndexedAt() != builtAt.UnixMilli() {
		t.Errorf("IndexedAt() = %d, want %d", st.IndexedAt(), builtAt.UnixMilli())
	}
}

func TestPollFailureDamping(t *testing.T) {
	remote := &mockRemote{
		indexTimeFn: func(_ context.Context) (time.Time, error) {
			return time.Time{}, errors.New("unavailable")
		},
	}
	svc := newService(remote, &mockRepo{})
	if _, err := svc.MarkImport(context.Background(), 10); err != nil {
		t.Fatalf("MarkImport() unexpected error: %v", err)
	}

	for i := 1; i <= 2; i++ {
		st := svc.Poll(context.Background())
		if st.Status() == domidx.StatusError {
			t.Fatalf("poll %d flipped to error too early", i)
		}
		if st.Failures() != i {
			t.Fatalf("poll %d failures = %d, want %d", i, st.Failures(), i)
		}
	}

	st := svc.Poll(context.Background())
	if st.Status() != domidx.StatusError {
		t.Errorf("Status() = %s, want %s after 3 consecutive failures", st.Status(), domidx.StatusError)
	}

	// One successful poll clears the counter.
	remote.indexTimeFn = func(_ context.Context) (time.Time, error) {
		return time.Now(), nil
	}
	st = svc.Poll(context.Background())
	if st.Failures() != 0 {
		t.Errorf("Failures() = %d after success, want 0", st.Failures())
	}
	if st.Status() != domidx.StatusReady {
		t.Errorf("Status() = %s, want %s", st.Status(), domidx.StatusReady)
	}
}

func TestEnsureIndexWrapsRemoteError(t *testing.T) {
	remote := &mockRemote{
		ensureFn: func(_ context.Context) error {
			return domain.ErrUnavailable
		},
	}
	svc := newService(remote, &mockRepo{})

	err := svc.EnsureIndex(context.Background())
	if !errors.Is(err, domain.ErrUnavailable) {
		t.Fatalf("EnsureIndex() error = %v, want %v", err, domain.ErrUnavailable)
	}
}
