package registry

import "errors"

// Sentinel errors for the registration coordinator and query API. Callers
// use errors.Is() against these rather than string matching.
var (
	// ErrInvalidSchema is returned when the candidate JSON fails Avro
	// parsing or structural validation.
	ErrInvalidSchema = errors.New("registry: invalid avro schema")

	// ErrMissingDoc is returned when a record or field element in the
	// candidate schema has an empty or missing doc.
	ErrMissingDoc = errors.New("registry: record or field element missing doc")

	// ErrEntityNotFound is returned by by-name lookups that are documented
	// to raise rather than return nil (topics and domains looked up by
	// their natural key).
	ErrEntityNotFound = errors.New("registry: entity not found")
)
