package source

// Kind identifies the origin shape of a raw catalog record.
type Kind string

// Record origins.
const (
	JSONRecord    Kind = "json"
	CSVRow        Kind = "csv"
	RelationalRow Kind = "relational"
)

// Record is one raw catalog entry before normalization. Fields hold the
// canonical ingest columns (id, name, image_url, price) plus any attribute
// columns; empty values mean the source column was absent.
type Record struct {
	Kind   Kind
	Fields map[string]string
}
