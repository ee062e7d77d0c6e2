// Package avro implements the Avro reader/writer compatibility algorithm:
// primitive promotion, record name alias matching, record field
// reconciliation, enum symbol subsets, array/map element recursion, union
// branch subsets, and fixed size/name equality. Enum and fixed names must
// match exactly; their aliases are not consulted.
package avro

import (
	"fmt"

	"github.com/hamba/avro/v2"
)

// Checker is stateless and safe for concurrent use by multiple callers; it
// holds no mutable state of its own.
type Checker struct{}

// NewChecker creates a new Avro compatibility checker.
func NewChecker() *Checker {
	return &Checker{}
}

// Check reports whether a reader using readerJSON can consume records
// written with writerJSON. Both arguments are Avro schema JSON text.
func (c *Checker) Check(readerJSON, writerJSON string) (bool, []string) {
	readerSchema, err := avro.Parse(readerJSON)
	if err != nil {
		return false, []string{fmt.Sprintf("invalid reader schema: %v", err)}
	}
	writerSchema, err := avro.Parse(writerJSON)
	if err != nil {
		return false, []string{fmt.Sprintf("invalid writer schema: %v", err)}
	}
	return c.checkSchemas(readerSchema, writerSchema, "")
}

// checkSchemas recursively checks compatibility between two schemas.
func (c *Checker) checkSchemas(reader, writer avro.Schema, path string) (bool, []string) {
	if c.canPromote(writer, reader) {
		return true, nil
	}

	if reader.Type() != writer.Type() {
		if reader.Type() == avro.Union {
			return c.checkReaderUnion(reader, writer, path)
		}
		if writer.Type() == avro.Union {
			return c.checkWriterUnion(reader, writer, path)
		}
		return false, []string{fmt.Sprintf("%s: type mismatch: reader has %s, writer has %s",
			pathOrRoot(path), reader.Type(), writer.Type())}
	}

	switch reader.Type() {
	case avro.Record:
		return c.checkRecord(reader.(*avro.RecordSchema), writer.(*avro.RecordSchema), path)
	case avro.Enum:
		return c.checkEnum(reader.(*avro.EnumSchema), writer.(*avro.EnumSchema), path)
	case avro.Array:
		return c.checkSchemas(reader.(*avro.ArraySchema).Items(), writer.(*avro.ArraySchema).Items(), appendPath(path, "[]"))
	case avro.Map:
		return c.checkSchemas(reader.(*avro.MapSchema).Values(), writer.(*avro.MapSchema).Values(), appendPath(path, "{}"))
	case avro.Union:
		return c.checkUnion(reader.(*avro.UnionSchema), writer.(*avro.UnionSchema), path)
	case avro.Fixed:
		return c.checkFixed(reader.(*avro.FixedSchema), writer.(*avro.FixedSchema), path)
	default:
		// String, Bytes, Int, Long, Float, Double, Boolean, Null: already
		// matched by the type equality check above.
		return true, nil
	}
}

func (c *Checker) checkRecord(reader, writer *avro.RecordSchema, path string) (bool, []string) {
	if !c.recordNamesMatch(reader, writer) {
		return false, []string{fmt.Sprintf("%s: record name mismatch: reader has %s, writer has %s",
			pathOrRoot(path), reader.FullName(), writer.FullName())}
	}

	writerFields := make(map[string]*avro.Field)
	for _, f := range writer.Fields() {
		writerFields[f.Name()] = f
		for _, alias := range f.Aliases() {
			writerFields[alias] = f
		}
	}

	var msgs []string
	for _, rf := range reader.Fields() {
		fieldPath := appendPath(path, rf.Name())
		wf := c.findWriterField(rf, writerFields)
		if wf == nil {
			if !rf.HasDefault() {
				msgs = append(msgs, fmt.Sprintf("%s: reader field '%s' has no default and is missing from writer",
					pathOrRoot(path), rf.Name()))
			}
			continue
		}
		if ok, fieldMsgs := c.checkSchemas(rf.Type(), wf.Type(), fieldPath); !ok {
			msgs = append(msgs, fieldMsgs...)
		}
	}
	return len(msgs) == 0, msgs
}

func (c *Checker) recordNamesMatch(reader, writer *avro.RecordSchema) bool {
	if reader.FullName() == writer.FullName() {
		return true
	}
	for _, alias := range writer.Aliases() {
		if reader.FullName() == alias {
			return true
		}
	}
	for _, alias := range reader.Aliases() {
		if writer.FullName() == alias {
			return true
		}
	}
	return false
}

func (c *Checker) findWriterField(readerField *avro.Field, writerFields map[string]*avro.Field) *avro.Field {
	if wf, ok := writerFields[readerField.Name()]; ok {
		return wf
	}
	for _, alias := range readerField.Aliases() {
		if wf, ok := writerFields[alias]; ok {
			return wf
		}
	}
	return nil
}

func (c *Checker) checkEnum(reader, writer *avro.EnumSchema, path string) (bool, []string) {
	if reader.FullName() != writer.FullName() {
		return false, []string{fmt.Sprintf("%s: enum name mismatch: reader has %s, writer has %s",
			pathOrRoot(path), reader.FullName(), writer.FullName())}
	}

	readerSymbols := make(map[string]bool)
	for _, s := range reader.Symbols() {
		readerSymbols[s] = true
	}

	var msgs []string
	for _, ws := range writer.Symbols() {
		if !readerSymbols[ws] && reader.Default() == "" {
			msgs = append(msgs, fmt.Sprintf("%s: writer enum symbol '%s' not found in reader and no default set",
				pathOrRoot(path), ws))
		}
	}
	return len(msgs) == 0, msgs
}

func (c *Checker) checkUnion(reader, writer *avro.UnionSchema, path string) (bool, []string) {
	var msgs []string
	for _, wt := range writer.Types() {
		found := false
		for _, rt := range reader.Types() {
			if ok, _ := c.checkSchemas(rt, wt, path); ok {
				found = true
				break
			}
		}
		if !found {
			msgs = append(msgs, fmt.Sprintf("%s: writer union type %s is not compatible with any reader union type",
				pathOrRoot(path), wt.Type()))
		}
	}
	return len(msgs) == 0, msgs
}

// checkReaderUnion handles the case where reader is a union but writer is not.
func (c *Checker) checkReaderUnion(reader, writer avro.Schema, path string) (bool, []string) {
	union := reader.(*avro.UnionSchema)
	for _, rt := range union.Types() {
		if ok, _ := c.checkSchemas(rt, writer, path); ok {
			return true, nil
		}
	}
	return false, []string{fmt.Sprintf("%s: writer type %s is not compatible with any type in reader union",
		pathOrRoot(path), writer.Type())}
}

// checkWriterUnion handles the case where writer is a union but reader is not.
func (c *Checker) checkWriterUnion(reader, writer avro.Schema, path string) (bool, []string) {
	union := writer.(*avro.UnionSchema)
	for _, wt := range union.Types() {
		if ok, msgs := c.checkSchemas(reader, wt, path); !ok {
			return false, append([]string{fmt.Sprintf("%s: reader type %s cannot read writer union type %s",
				pathOrRoot(path), reader.Type(), wt.Type())}, msgs...)
		}
	}
	return true, nil
}

func (c *Checker) checkFixed(reader, writer *avro.FixedSchema, path string) (bool, []string) {
	var msgs []string
	if reader.FullName() != writer.FullName() {
		msgs = append(msgs, fmt.Sprintf("%s: fixed name mismatch: reader has %s, writer has %s",
			pathOrRoot(path), reader.FullName(), writer.FullName()))
	}
	if reader.Size() != writer.Size() {
		msgs = append(msgs, fmt.Sprintf("%s: fixed size mismatch: reader has %d, writer has %d",
			pathOrRoot(path), reader.Size(), writer.Size()))
	}
	return len(msgs) == 0, msgs
}

// canPromote reports whether a writer type can be promoted to a reader type:
// int -> long, float, double; long -> float, double; float -> double;
// string <-> bytes.
func (c *Checker) canPromote(writer, reader avro.Schema) bool {
	switch writer.Type() {
	case avro.Int:
		return reader.Type() == avro.Long || reader.Type() == avro.Float || reader.Type() == avro.Double
	case avro.Long:
		return reader.Type() == avro.Float || reader.Type() == avro.Double
	case avro.Float:
		return reader.Type() == avro.Double
	case avro.String:
		return reader.Type() == avro.Bytes
	case avro.Bytes:
		return reader.Type() == avro.String
	}
	return false
}

func pathOrRoot(path string) string {
	if path == "" {
		return "root"
	}
	return path
}

func appendPath(path, segment string) string {
	if path == "" {
		return segment
	}
	return path + "." + segment
}
