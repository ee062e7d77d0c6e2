package registry

import (
	"github.com/hamba/avro/v2"

	"github.com/dikang123/schematizer/internal/storage"
)

// flattenElements walks a parsed Avro schema and produces one
// storage.AvroSchemaElement per record, field, enum, and fixed node
// encountered, keyed by a dotted path from the root. Only record and field
// elements carry a doc requirement; it is enforced by the caller.
func flattenElements(s avro.Schema) []*storage.AvroSchemaElement {
	var out []*storage.AvroSchemaElement
	walkSchema(s, "", &out)
	return out
}

func walkSchema(s avro.Schema, path string, out *[]*storage.AvroSchemaElement) {
	switch schema := s.(type) {
	case *avro.RecordSchema:
		key := path
		if key == "" {
			key = schema.FullName()
		}
		*out = append(*out, &storage.AvroSchemaElement{
			ElementType: "record",
			Key:         key,
			Doc:         schema.Doc(),
		})
		for _, f := range schema.Fields() {
			fieldKey := key + "." + f.Name()
			*out = append(*out, &storage.AvroSchemaElement{
				ElementType: "field",
				Key:         fieldKey,
				Doc:         f.Doc(),
			})
			walkSchema(f.Type(), fieldKey, out)
		}

	case *avro.EnumSchema:
		key := path
		if key == "" {
			key = schema.FullName()
		}
		*out = append(*out, &storage.AvroSchemaElement{
			ElementType: "enum",
			Key:         key,
			Doc:         schema.Doc(),
		})

	case *avro.FixedSchema:
		key := path
		if key == "" {
			key = schema.FullName()
		}
		*out = append(*out, &storage.AvroSchemaElement{
			ElementType: "fixed",
			Key:         key,
		})

	case *avro.ArraySchema:
		walkSchema(schema.Items(), path+"[]", out)

	case *avro.MapSchema:
		walkSchema(schema.Values(), path+"{}", out)

	case *avro.UnionSchema:
		for _, branch := range schema.Types() {
			walkSchema(branch, path, out)
		}

	default:
		// Primitives and refs carry no sidecar documentation obligation.
	}
}
