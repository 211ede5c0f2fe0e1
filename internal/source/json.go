package source

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// ReadJSON parses catalog records from a JSON array of flat objects. Scalar
// values are stringified; nested objects and arrays are skipped.
func ReadJSON(r io.Reader) ([]Record, error) {
	var rows []map[string]any
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode json records: %w", err)
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		fields := make(map[string]string, len(row))
		for k, v := range row {
			if s, ok := stringify(v); ok {
				fields[k] = s
			}
		}
		records = append(records, Record{Kind: JSONRecord, Fields: fields})
	}
	return records, nil
}

func stringify(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	case nil:
		return "", false
	default:
		return "", false
	}
}
