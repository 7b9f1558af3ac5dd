// Package tenant owns per-tenant document and vector state: lazy restore
// from blob storage, serialized insertion, and snapshot persistence.
package tenant

// timestampLayout is RFC 3339 with fixed nanosecond precision. Every stored
// timestamp uses this layout in UTC, so lexicographic comparison of the
// strings matches temporal order. Mixing precisions or zones would break
// "latest document" selection.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Document is one stored record. Timestamp is assigned at insertion time
// from the process clock, not at upload time.
type Document struct {
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}
