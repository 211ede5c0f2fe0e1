package index

import (
	"testing"
	"time"
)

func TestMarkImport(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)

	tests := []struct {
		name       string
		from       Status
		wantStatus Status
	}{
		{name: "empty moves to stale", from: StatusEmpty, wantStatus: StatusStale},
		{name: "ready moves to stale", from: StatusReady, wantStatus: StatusStale},
		{name: "stale stays stale", from: StatusStale, wantStatus: StatusStale},
		{name: "error moves to stale", from: StatusError, wantStatus: StatusStale},
		{name: "building stays building", from: StatusBuilding, wantStatus: StatusBuilding},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Reconstruct(tt.from, 0, 0, 0, 0, 0, 0)
			next := s.MarkImport(120, now, DefaultReadyWindow)

			if next.Status() != tt.wantStatus {
				t.Errorf("Status() = %s, want %s", next.Status(), tt.wantStatus)
			}
			if next.LastImportCount() != 120 {
				t.Errorf("LastImportCount() = %d, want 120", next.LastImportCount())
			}
			if next.LastImportAt() != now.UnixMilli() {
				t.Errorf("LastImportAt() = %d, want %d", next.LastImportAt(), now.UnixMilli())
			}
			want := now.Add(DefaultReadyWindow).UnixMilli()
			if next.EstimatedReadyAt() != want {
				t.Errorf("EstimatedReadyAt() = %d, want %d", next.EstimatedReadyAt(), want)
			}
		})
	}
}

func TestWithPoll(t *testing.T) {
	now := time.UnixMilli(1_700_000_100_000)
	importedAt := time.UnixMilli(1_700_000_000_000)

	t.Run("never built and never imported is empty", func(t *testing.T) {
		next := NewState().WithPoll(time.Time{}, now)
		if next.Status() != StatusEmpty {
			t.Errorf("Status() = %s, want %s", next.Status(), StatusEmpty)
		}
		if next.IndexedAt() != 0 {
			t.Errorf("IndexedAt() = %d, want 0", next.IndexedAt())
		}
	})

	t.Run("never built after import is building", func(t *testing.T) {
		s := NewState().MarkImport(10, importedAt, DefaultReadyWindow)
		next := s.WithPoll(time.Time{}, now)
		if next.Status() != StatusBuilding {
			t.Errorf("Status() = %s, want %s", next.Status(), StatusBuilding)
		}
	})

	t.Run("index older than import is building", func(t *testing.T) {
		s := NewState().MarkImport(10, importedAt, DefaultReadyWindow)
		next := s.WithPoll(importedAt.Add(-time.Hour), now)
		if next.Status() != StatusBuilding {
			t.Errorf("Status() = %s, want %s", next.Status(), StatusBuilding)
		}
	})

	t.Run("index newer than import is ready", func(t *testing.T) {
		s := NewState().MarkImport(10, importedAt, DefaultReadyWindow)
		next := s.WithPoll(importedAt.Add(50*time.Minute), now)
		if next.Status() != StatusReady {
			t.Errorf("Status() = %s, want %s", next.Status(), StatusReady)
		}
	})

	t.Run("success resets the failure count", func(t *testing.T) {
		s := Reconstruct(StatusError, 10, importedAt.UnixMilli(), 0, 0, 0, 3)
		next := s.WithPoll(importedAt.Add(time.Hour), now)
		if next.Failures() != 0 {
			t.Errorf("Failures() = %d, want 0", next.Failures())
		}
		if next.Status() != StatusReady {
			t.Errorf("Status() = %s, want %s", next.Status(), StatusReady)
		}
		if next.LastCheckedAt() != now.UnixMilli() {
			t.Errorf("LastCheckedAt() = %d, want %d", next.LastCheckedAt(), now.UnixMilli())
		}
	})
}

func TestWithPollFailure(t *testing.T) {
	now := time.UnixMilli(1_700_000_200_000)
	const threshold = 3

	s := Reconstruct(StatusReady, 10, 0, 0, 0, 0, 0)

	s = s.WithPollFailure(now, threshold)
	if s.Status() != StatusReady || s.Failures() != 1 {
		t.Fatalf("after 1 failure: status=%s failures=%d, want ready/1", s.Status(), s.Failures())
	}

	s = s.WithPollFailure(now, threshold)
	if s.Status() != StatusReady || s.Failures() != 2 {
		t.Fatalf("after 2 failures: status=%s failures=%d, want ready/2", s.Status(), s.Failures())
	}

	s = s.WithPollFailure(now, threshold)
	if s.Status() != StatusError || s.Failures() != 3 {
		t.Fatalf("after 3 failures: status=%s failures=%d, want error/3", s.Status(), s.Failures())
	}
}
