// Package convert translates relational table schemas into Avro record
// schemas, preserving SQL semantics that Avro cannot express natively
// (precision, scale, length, primary-key order, date/time flavor) through
// the avro package's sidecar metadata keys.
package convert

import (
	"errors"
	"fmt"

	"github.com/dikang123/schematizer/internal/avro"
	"github.com/dikang123/schematizer/internal/redshift"
)

var (
	// ErrUnsupportedType is returned when a column's Redshift tag has no
	// registered conversion rule.
	ErrUnsupportedType = errors.New("convert: unsupported type")
	// ErrSchemaConversion is returned when the input is not convertible
	// (e.g. a malformed table value).
	ErrSchemaConversion = errors.New("convert: schema conversion failed")
	// ErrNoConverter is returned when no converter is registered for a
	// requested (source, target) kind pair.
	ErrNoConverter = errors.New("convert: no converter registered")
)

// Kind identifies a schema representation a converter can read from or
// write to.
type Kind string

const (
	KindRedshift Kind = "redshift"
	KindAvro     Kind = "avro"
)

// converterKey is the registry key for a (source, target) kind pair.
type converterKey struct {
	source Kind
	target Kind
}

// converters holds converter functions registered via Register, keyed by
// (source, target) kind pair. Populated by init() rather than discovered at
// import time, so there is no import-order hazard.
var converters = make(map[converterKey]func(interface{}) (interface{}, error))

// Register installs a converter function for the given (source, target)
// kind pair. Called from init() in this package; exported so other packages
// may register additional converters without modifying this one.
func Register(source, target Kind, fn func(interface{}) (interface{}, error)) {
	converters[converterKey{source, target}] = fn
}

// Convert dispatches to the registered converter for (source, target) and
// applies it to value.
func Convert(source, target Kind, value interface{}) (interface{}, error) {
	fn, ok := converters[converterKey{source, target}]
	if !ok {
		return nil, fmt.Errorf("%w: %s -> %s", ErrNoConverter, source, target)
	}
	return fn(value)
}

func init() {
	Register(KindRedshift, KindAvro, func(v interface{}) (interface{}, error) {
		if v == nil {
			return avro.Null, nil
		}
		table, ok := v.(*redshift.Table)
		if !ok {
			return nil, fmt.Errorf("%w: expected *redshift.Table, got %T", ErrSchemaConversion, v)
		}
		return RedshiftToAvro(table)
	})
}

// RedshiftToAvroConverter converts a single Redshift table into an Avro
// record schema. It is stateless aside from its private builder, which is
// never shared across calls.
type RedshiftToAvroConverter struct {
	builder avro.Builder
}

// NewRedshiftToAvroConverter returns a ready-to-use converter.
func NewRedshiftToAvroConverter() *RedshiftToAvroConverter {
	return &RedshiftToAvroConverter{}
}

// RedshiftToAvro is a convenience entry point equivalent to
// NewRedshiftToAvroConverter().Convert(table).
func RedshiftToAvro(table *redshift.Table) (map[string]interface{}, error) {
	return NewRedshiftToAvroConverter().Convert(table)
}

// Convert translates table into a canonical Avro record JSON object.
// Calling Convert(nil) returns (nil, nil): the null value, without error.
func (c *RedshiftToAvroConverter) Convert(table *redshift.Table) (map[string]interface{}, error) {
	if table == nil {
		return nil, nil
	}

	extras := map[string]interface{}{}
	if pks := table.PrimaryKeys(); len(pks) > 0 {
		pkNames := make([]interface{}, len(pks))
		for i, name := range pks {
			pkNames[i] = name
		}
		extras[avro.MetaPrimaryKey] = pkNames
	}

	if err := c.builder.Begin(table.Name, table.Metadata.Namespace, table.Metadata.Aliases, table.Doc, extras); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaConversion, err)
	}

	for _, col := range table.Columns {
		if err := c.addField(col); err != nil {
			c.builder.End() // discard the partial record so the builder can be reused
			return nil, err
		}
	}

	rec, err := c.builder.End()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaConversion, err)
	}
	return rec, nil
}

// addField converts one column and appends the resulting field to the
// currently open record.
func (c *RedshiftToAvroConverter) addField(col redshift.Column) error {
	primitive, extras, err := c.convertColumnType(col.Type)
	if err != nil {
		return err
	}

	hasDefault := col.HasDefaultValue || col.IsNullable
	fieldType := primitive
	if col.IsNullable {
		fieldType = avro.BeginNullableType(primitive, hasDefault, col.DefaultValue, col.IsNullable)
	}

	if col.PrimaryKeyOrder > 0 {
		extras[avro.MetaPrimaryKey] = col.PrimaryKeyOrder
	}

	return c.builder.AddField(col.Name, fieldType, hasDefault, col.DefaultValue, col.Metadata.Aliases, col.Doc, extras)
}

// convertColumnType maps a Redshift column type to an Avro primitive plus
// the sidecar metadata that preserves the SQL-level facts the primitive
// alone cannot carry. Every tag in the authoritative mapping table is
// handled explicitly; an unrecognized tag is ErrUnsupportedType.
func (c *RedshiftToAvroConverter) convertColumnType(t redshift.ColumnType) (interface{}, map[string]interface{}, error) {
	switch t.Tag {
	case redshift.Float4, redshift.Real:
		return c.builder.CreateFloat(), map[string]interface{}{}, nil

	case redshift.Float, redshift.Double, redshift.Float8:
		return c.builder.CreateDouble(), map[string]interface{}{}, nil

	case redshift.Int2, redshift.Int4, redshift.SmallInt, redshift.Integer:
		return c.builder.CreateInt(), map[string]interface{}{}, nil

	case redshift.Int8, redshift.BigInt:
		return c.builder.CreateLong(), map[string]interface{}{}, nil

	case redshift.Numeric, redshift.Decimal:
		return c.builder.CreateDouble(), map[string]interface{}{
			avro.MetaFixedPt:   true,
			avro.MetaPrecision: t.Precision,
			avro.MetaScale:     t.Scale,
		}, nil

	case redshift.Bool, redshift.Boolean:
		return c.builder.CreateBoolean(), map[string]interface{}{}, nil

	case redshift.Char, redshift.NChar, redshift.BPChar, redshift.Character:
		return c.builder.CreateString(), map[string]interface{}{
			avro.MetaFixLen: t.Length,
		}, nil

	case redshift.VarChar, redshift.NVarChar, redshift.CharacterVarying, redshift.Text:
		return c.builder.CreateString(), map[string]interface{}{
			avro.MetaMaxLen: t.Length,
		}, nil

	case redshift.Date:
		return c.builder.CreateInt(), map[string]interface{}{
			avro.MetaDate: true,
		}, nil

	case redshift.Time:
		return c.builder.CreateInt(), map[string]interface{}{
			avro.MetaTime: true,
		}, nil

	case redshift.Timestamp:
		return c.builder.CreateLong(), map[string]interface{}{
			avro.MetaTimestamp: true,
		}, nil

	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedType, t.Tag)
	}
}
