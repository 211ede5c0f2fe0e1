package indexstate

import (
	"encoding/json"
	"fmt"

	"github.com/yow-cloud/shoplens/internal/domain/index"
)

// stateRow is the JSON-serializable representation of the lifecycle snapshot.
type stateRow struct {
	Status           string `json:"status"`
	LastImportCount  int    `json:"last_import_count"`
	LastImportAt     int64  `json:"last_import_at"`
	LastCheckedAt    int64  `json:"last_checked_at"`
	EstimatedReadyAt int64  `json:"estimated_ready_at"`
	IndexedAt        int64  `json:"indexed_at"`
	Failures         int    `json:"failures"`
}

func stateToJSON(s index.State) ([]byte, error) {
	row := stateRow{
		Status:           string(s.Status()),
		LastImportCount:  s.LastImportCount(),
		LastImportAt:     s.LastImportAt(),
		LastCheckedAt:    s.LastCheckedAt(),
		EstimatedReadyAt: s.EstimatedReadyAt(),
		IndexedAt:        s.IndexedAt(),
		Failures:         s.Failures(),
	}
	data, err := json.Marshal(row)
	if err != nil {
		return nil, fmt.Errorf("marshal index state: %w", err)
	}
	return data, nil
}

func stateFromJSON(data []byte) (index.State, error) {
	var row stateRow
	if err := json.Unmarshal(data, &row); err != nil {
		return index.State{}, fmt.Errorf("unmarshal index state: %w", err)
	}
	return index.Reconstruct(
		index.Status(row.Status), row.LastImportCount,
		row.LastImportAt, row.LastCheckedAt, row.EstimatedReadyAt, row.IndexedAt,
		row.Failures,
	), nil
}
