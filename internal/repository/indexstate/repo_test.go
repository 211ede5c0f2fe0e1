package indexstate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yow-cloud/shoplens/internal/db"
	"github.com/yow-cloud/shoplens/internal/domain"
	"github.com/yow-cloud/shoplens/internal/domain/index"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	getFn func(ctx context.Context, key string) ([]byte, error)
	setFn func(ctx context.Context, key string, value []byte) error
}

func (m *mockStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockStore) Set(ctx context.Context, key string, value []byte) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value)
	}
	return nil
}

func TestSaveLoadRoundTrip(t *testing.T) {
	var stored []byte
	var storedKey string
	store := &mockStore{
		setFn: func(_ context.Context, key string, value []byte) error {
			storedKey = key
			stored = value
			return nil
		},
		getFn: func(_ context.Context, key string) ([]byte, error) {
			if key != storedKey || stored == nil {
				return nil, db.ErrKeyNotFound
			}
			return stored, nil
		},
	}
	repo := New(store, "shoplens:")

	now := time.UnixMilli(1_700_000_000_000)
	s := index.NewState().MarkImport(250, now, index.DefaultReadyWindow)
	s = s.WithPoll(now.Add(50*time.Minute), now.Add(time.Hour))

	if err := repo.Save(context.Background(), "fashion-set", s); err != nil {
		t.Fatalf("Save() unexpected error: %v", err)
	}
	if storedKey != "shoplens:indexstate:fashion-set" {
		t.Errorf("stored key = %q, want shoplens:indexstate:fashion-set", storedKey)
	}

	got, err := repo.Load(context.Background(), "fashion-set")
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if got.Status() != s.Status() {
		t.Errorf("Status() = %s, want %s", got.Status(), s.Status())
	}
	if got.LastImportCount() != 250 {
		t.Errorf("LastImportCount() = %d, want 250", got.LastImportCount())
	}
	if got.LastImportAt() != s.LastImportAt() {
		t.Errorf("LastImportAt() = %d, want %d", got.LastImportAt(), s.LastImportAt())
	}
	if got.IndexedAt() != s.IndexedAt() {
		t.Errorf("IndexedAt() = %d, want %d", got.IndexedAt(), s.IndexedAt())
	}
}

func TestLoadMissingKey(t *testing.T) {
	repo := New(&mockStore{}, "shoplens:")

	_, err := repo.Load(context.Background(), "fashion-set")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Load() error = %v, want %v", err, domain.ErrNotFound)
	}
}

func TestLoadStoreFailure(t *testing.T) {
	store := &mockStore{
		getFn: func(_ context.Context, _ string) ([]byte, error) {
			return nil, errors.New("connection refused")
		},
	}
	repo := New(store, "shoplens:")

	_, err := repo.Load(context.Background(), "fashion-set")
	if err == nil {
		t.Fatal("Load() expected error")
	}
	if errors.Is(err, domain.ErrNotFound) {
		t.Fatal("store failure must not map to ErrNotFound")
	}
}
