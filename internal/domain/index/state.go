package index

import "time"

// Status is the lifecycle phase of the remote product index.
type Status string

// Index status values.
const (
	StatusEmpty    Status = "empty"
	StatusBuilding Status = "building"
	StatusReady    Status = "ready"
	StatusStale    Status = "stale"
	StatusError    Status = "error"
)

// DefaultReadyWindow is the nominal remote re-indexing delay used for the
// advisory readiness estimate. The backend converges in 30-60 minutes.
const DefaultReadyWindow = 45 * time.Minute

// State is the cached lifecycle snapshot of the remote index (immutable value
// object, all timestamps unix millis, zero = never).
type State struct {
	status           Status
	lastImportCount  int
	lastImportAt     int64
	lastCheckedAt    int64
	estimatedReadyAt int64
	indexedAt        int64
	failures         int
}

// NewState returns the initial state of an index that has never been polled.
func NewState() State {
	return State{status: StatusEmpty}
}

// Reconstruct creates a State without transition logic (storage hydration).
func Reconstruct(
	status Status, lastImportCount int,
	lastImportAt, lastCheckedAt, estimatedReadyAt, indexedAt int64,
	failures int,
) State {
	return State{
		status:           status,
		lastImportCount:  lastImportCount,
		lastImportAt:     lastImportAt,
		lastCheckedAt:    lastCheckedAt,
		estimatedReadyAt: estimatedReadyAt,
		indexedAt:        indexedAt,
		failures:         failures,
	}
}

// Status returns the lifecycle phase.
func (s State) Status() Status { return s.status }

// LastImportCount returns the product count of the last import batch.
func (s State) LastImportCount() int { return s.lastImportCount }

// LastImportAt returns when the last import batch was submitted.
func (s State) LastImportAt() int64 { return s.lastImportAt }

// LastCheckedAt returns when the remote index was last polled.
func (s State) LastCheckedAt() int64 { return s.lastCheckedAt }

// EstimatedReadyAt returns the advisory re-convergence estimate.
// Never used to gate dispatch.
func (s State) EstimatedReadyAt() int64 { return s.estimatedReadyAt }

// IndexedAt returns the remote index build timestamp, zero while unindexed.
func (s State) IndexedAt() int64 { return s.indexedAt }

// Failures returns the consecutive poll failure count.
func (s State) Failures() int { return s.failures }

// MarkImport records a submitted import batch. READY and EMPTY move to STALE:
// new products are not searchable until the backend re-converges. BUILDING is
// left alone; STALE and ERROR restart the stale window (a fresh import
// supersedes whatever came before).
func (s State) MarkImport(count int, now time.Time, readyWindow time.Duration) State {
	next := s
	next.lastImportCount = count
	next.lastImportAt = now.UnixMilli()
	next.estimatedReadyAt = now.Add(readyWindow).UnixMilli()
	if s.status != StatusBuilding {
		next.status = StatusStale
	}
	return next
}

// WithPoll applies a successful remote poll. A zero indexedAt means the
// backend has never built the index; an indexedAt older than the last import
// means it is still re-converging.
func (s State) WithPoll(indexedAt, now time.Time) State {
	next := s
	next.failures = 0
	next.lastCheckedAt = now.UnixMilli()
	if indexedAt.IsZero() {
		next.indexedAt = 0
		if s.lastImportAt == 0 {
			next.status = StatusEmpty
		} else {
			next.status = StatusBuilding
		}
		return next
	}
	next.indexedAt = indexedAt.UnixMilli()
	if s.lastImportAt > next.indexedAt {
		next.status = StatusBuilding
	} else {
		next.status = StatusReady
	}
	return next
}

// WithPollFailure applies a failed remote poll. Single transient errors are
// absorbed; status flips to ERROR only at threshold consecutive failures.
func (s State) WithPollFailure(now time.Time, threshold int) State {
	next := s
	next.failures = s.failures + 1
	next.lastCheckedAt = now.UnixMilli()
	if next.failures >= threshold {
		next.status = StatusError
	}
	return next
}
