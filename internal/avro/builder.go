// Package avro builds canonical Avro JSON record schemas with the sidecar
// metadata keys the registry's converter and compatibility checker rely on.
// It is a thin, stateful session object: one Builder produces exactly one
// record per Begin/End pair and is never shared across goroutines.
package avro

import "errors"

// Sidecar metadata keys embedded as extra JSON properties on fields and
// records. These are not standard Avro attributes.
const (
	MetaPrimaryKey = "primary_key"
	MetaFixedPt    = "fixed_pt"
	MetaPrecision  = "precision"
	MetaScale      = "scale"
	MetaFixLen     = "fix_len"
	MetaMaxLen     = "max_len"
	MetaDate       = "date"
	MetaTime       = "time"
	MetaTimestamp  = "timestamp"
)

// Primitive Avro type names.
const (
	Int     = "int"
	Long    = "long"
	Float   = "float"
	Double  = "double"
	Boolean = "boolean"
	String  = "string"
	Bytes   = "bytes"
	Null    = "null"
)

var (
	// ErrRecordAlreadyOpen is returned by Begin when a record is already open.
	ErrRecordAlreadyOpen = errors.New("avro: record already open")
	// ErrNoRecordOpen is returned by AddField/End when no record is open.
	ErrNoRecordOpen = errors.New("avro: no record open")
)

// Builder is a stateful Avro record builder. A zero Builder is ready to use.
type Builder struct {
	record map[string]interface{}
	fields []interface{}
}

// Begin opens an outer record. extras become additional top-level JSON
// properties on the record object (e.g. primary_key). It fails if another
// record is already open.
func (b *Builder) Begin(name, namespace string, aliases []string, doc string, extras map[string]interface{}) error {
	if b.record != nil {
		return ErrRecordAlreadyOpen
	}
	rec := map[string]interface{}{
		"type":      "record",
		"name":      name,
		"namespace": namespace,
		"doc":       doc,
		"fields":    []interface{}{},
	}
	if len(aliases) > 0 {
		rec["aliases"] = aliases
	}
	for k, v := range extras {
		rec[k] = v
	}
	b.record = rec
	b.fields = nil
	return nil
}

// CreateInt returns the Avro "int" primitive.
func (b *Builder) CreateInt() interface{} { return Int }

// CreateLong returns the Avro "long" primitive.
func (b *Builder) CreateLong() interface{} { return Long }

// CreateFloat returns the Avro "float" primitive.
func (b *Builder) CreateFloat() interface{} { return Float }

// CreateDouble returns the Avro "double" primitive.
func (b *Builder) CreateDouble() interface{} { return Double }

// CreateBoolean returns the Avro "boolean" primitive.
func (b *Builder) CreateBoolean() interface{} { return Boolean }

// CreateString returns the Avro "string" primitive.
func (b *Builder) CreateString() interface{} { return String }

// CreateBytes returns the Avro "bytes" primitive.
func (b *Builder) CreateBytes() interface{} { return Bytes }

// CreateNull returns the Avro "null" primitive.
func (b *Builder) CreateNull() interface{} { return Null }

// BeginNullableType wraps inner in a two-branch union with null. An Avro
// default must match the first branch of a union, so the branch ordering
// follows the rule: the null branch goes first iff defaultValue is nil and
// hasDefault is true, or the column is nullable with no default supplied.
// Otherwise the non-null branch goes first.
func BeginNullableType(inner interface{}, hasDefault bool, defaultValue interface{}, isNullable bool) []interface{} {
	nullFirst := (hasDefault && defaultValue == nil) || (isNullable && !hasDefault)
	if nullFirst {
		return []interface{}{Null, inner}
	}
	return []interface{}{inner, Null}
}

// AddField appends a field to the currently open record. extras are copied
// as additional JSON properties on the field object.
func (b *Builder) AddField(name string, fieldType interface{}, hasDefault bool, defaultValue interface{}, aliases []string, doc string, extras map[string]interface{}) error {
	if b.record == nil {
		return ErrNoRecordOpen
	}
	field := map[string]interface{}{
		"name": name,
		"type": fieldType,
		"doc":  doc,
	}
	if hasDefault {
		field["default"] = defaultValue
	}
	if len(aliases) > 0 {
		field["aliases"] = aliases
	}
	for k, v := range extras {
		field[k] = v
	}
	b.fields = append(b.fields, field)
	return nil
}

// End closes the current session and returns the finished record JSON
// object. The builder is left ready for a new Begin.
func (b *Builder) End() (map[string]interface{}, error) {
	if b.record == nil {
		return nil, ErrNoRecordOpen
	}
	b.record["fields"] = b.fields
	rec := b.record
	b.record = nil
	b.fields = nil
	return rec, nil
}
