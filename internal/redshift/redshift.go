// Package redshift models the relational schema types that the converter
// translates into Avro. Types are expressed as a tagged variant (Tag) rather
// than a class hierarchy, so the converter dispatches on it with a single
// switch over Tag values. The compiler does not check that switch for
// exhaustiveness: a tag with no case reaches its default branch and is
// reported as an unsupported type at run time.
package redshift

// Tag identifies a Redshift column type. Values mirror the SQL type names
// and their common synonyms.
type Tag string

const (
	Float4   Tag = "FLOAT4"
	Real     Tag = "REAL"
	Float    Tag = "FLOAT"
	Double   Tag = "DOUBLE"
	Float8   Tag = "FLOAT8"
	Int2     Tag = "INT2"
	Int4     Tag = "INT4"
	SmallInt Tag = "SMALLINT"
	Integer  Tag = "INTEGER"
	Int8     Tag = "INT8"
	BigInt   Tag = "BIGINT"
	Numeric  Tag = "NUMERIC"
	Decimal  Tag = "DECIMAL"
	Bool     Tag = "BOOL"
	Boolean  Tag = "BOOLEAN"

	Char             Tag = "CHAR"
	NChar            Tag = "NCHAR"
	BPChar           Tag = "BPCHAR"
	Character        Tag = "CHARACTER"
	VarChar          Tag = "VARCHAR"
	NVarChar         Tag = "NVARCHAR"
	CharacterVarying Tag = "CHARACTER_VARYING"
	Text             Tag = "TEXT"

	Date      Tag = "DATE"
	Time      Tag = "TIME"
	Timestamp Tag = "TIMESTAMP"
)

// ColumnType carries a column's type tag plus the sidecar facts the Avro
// mapping needs but cannot express natively: decimal precision/scale, and
// char/varchar length.
type ColumnType struct {
	Tag       Tag
	Precision int // Numeric/Decimal only
	Scale     int // Numeric/Decimal only
	Length    int // Char family (fixed) or VarChar family (max)
}

// ColumnMetadata carries column-level sidecar attributes read through
// unchanged by the converter.
type ColumnMetadata struct {
	Aliases []string
}

// Column is one column of a Table.
type Column struct {
	Name            string
	Doc             string
	Type            ColumnType
	IsNullable      bool
	DefaultValue    interface{} // nil means "no default"; HasDefaultValue distinguishes from an explicit SQL NULL default
	HasDefaultValue bool
	PrimaryKeyOrder int // 1-based; 0 means "not a primary key column"
	Metadata        ColumnMetadata
}

// TableMetadata carries table-level sidecar attributes. NAMESPACE and
// ALIASES mirror the two keys the converter reads from table metadata.
type TableMetadata struct {
	Namespace string
	Aliases   []string
}

// Table is the converter's input: a relational table description with an
// ordered column list.
type Table struct {
	Name     string
	Doc      string
	Metadata TableMetadata
	Columns  []Column
}

// PrimaryKeys returns the table's primary-key column names in declaration
// order (by PrimaryKeyOrder, ascending), derived from the column list rather
// than stored separately.
func (t *Table) PrimaryKeys() []string {
	type keyed struct {
		order int
		name  string
	}
	var keys []keyed
	for _, c := range t.Columns {
		if c.PrimaryKeyOrder > 0 {
			keys = append(keys, keyed{c.PrimaryKeyOrder, c.Name})
		}
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1].order > keys[j].order; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.name
	}
	return names
}
