package convert

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dikang123/schematizer/internal/avro"
	"github.com/dikang123/schematizer/internal/redshift"
)

func TestConvert_Nil(t *testing.T) {
	rec, err := NewRedshiftToAvroConverter().Convert(nil)
	require.NoError(t, err)
	require.Nil(t, rec)
}

func TestConvert_UnsupportedType(t *testing.T) {
	table := &redshift.Table{
		Name: "t",
		Doc:  "doc",
		Columns: []redshift.Column{
			{Name: "x", Doc: "d", Type: redshift.ColumnType{Tag: "NOT_A_TYPE"}},
		},
	}
	_, err := NewRedshiftToAvroConverter().Convert(table)
	require.ErrorIs(t, err, ErrUnsupportedType)
}

// TestConvert_FourColumnTable exercises the mapping table's sidecar
// metadata and primary-key handling end to end (spec scenario 6).
func TestConvert_FourColumnTable(t *testing.T) {
	table := &redshift.Table{
		Name: "orders",
		Doc:  "order records",
		Metadata: redshift.TableMetadata{
			Namespace: "commerce",
		},
		Columns: []redshift.Column{
			{
				Name:            "id",
				Doc:             "order id",
				Type:            redshift.ColumnType{Tag: redshift.Int8},
				PrimaryKeyOrder: 1,
			},
			{
				Name: "name",
				Doc:  "customer name",
				Type: redshift.ColumnType{Tag: redshift.VarChar, Length: 32},
			},
			{
				Name:       "price",
				Doc:        "unit price",
				Type:       redshift.ColumnType{Tag: redshift.Decimal, Precision: 10, Scale: 2},
				IsNullable: true,
			},
			{
				Name: "created_at",
				Doc:  "creation time",
				Type: redshift.ColumnType{Tag: redshift.Timestamp},
			},
		},
	}

	rec, err := NewRedshiftToAvroConverter().Convert(table)
	require.NoError(t, err)
	require.Equal(t, "orders", rec["name"])
	require.Equal(t, "commerce", rec["namespace"])
	require.Equal(t, []interface{}{"id"}, rec[avro.MetaPrimaryKey])

	fields := rec["fields"].([]interface{})
	require.Len(t, fields, 4)

	idField := fields[0].(map[string]interface{})
	require.Equal(t, "long", idField["type"])
	require.Equal(t, 1, idField[avro.MetaPrimaryKey])

	nameField := fields[1].(map[string]interface{})
	require.Equal(t, "string", nameField["type"])
	require.Equal(t, 32, nameField["max_len"])

	priceField := fields[2].(map[string]interface{})
	require.Equal(t, []interface{}{"null", "double"}, priceField["type"])
	require.Equal(t, true, priceField["fixed_pt"])
	require.Equal(t, 10, priceField["precision"])
	require.Equal(t, 2, priceField["scale"])
	require.Nil(t, priceField["default"])

	createdField := fields[3].(map[string]interface{})
	require.Equal(t, "long", createdField["type"])
	require.Equal(t, true, createdField["timestamp"])
}

func TestConvert_NullableWithoutDefault_NullBranchFirst(t *testing.T) {
	table := &redshift.Table{
		Name: "t",
		Doc:  "d",
		Columns: []redshift.Column{
			{Name: "x", Doc: "d", Type: redshift.ColumnType{Tag: redshift.Integer}, IsNullable: true},
		},
	}
	rec, err := NewRedshiftToAvroConverter().Convert(table)
	require.NoError(t, err)
	field := rec["fields"].([]interface{})[0].(map[string]interface{})
	require.Equal(t, []interface{}{"null", "int"}, field["type"])
	require.Nil(t, field["default"])
}

func TestConvert_NullableWithNonNullDefault_ValueBranchFirst(t *testing.T) {
	table := &redshift.Table{
		Name: "t",
		Doc:  "d",
		Columns: []redshift.Column{
			{
				Name: "x", Doc: "d",
				Type:            redshift.ColumnType{Tag: redshift.Integer},
				IsNullable:      true,
				HasDefaultValue: true,
				DefaultValue:    7,
			},
		},
	}
	rec, err := NewRedshiftToAvroConverter().Convert(table)
	require.NoError(t, err)
	field := rec["fields"].([]interface{})[0].(map[string]interface{})
	require.Equal(t, []interface{}{"int", "null"}, field["type"])
	require.Equal(t, 7, field["default"])
}

func TestConvert_RegisteredInDispatchTable(t *testing.T) {
	table := &redshift.Table{
		Name: "t",
		Doc:  "d",
		Columns: []redshift.Column{
			{Name: "x", Doc: "d", Type: redshift.ColumnType{Tag: redshift.Boolean}},
		},
	}
	out, err := Convert(KindRedshift, KindAvro, table)
	require.NoError(t, err)
	require.NotNil(t, out)
}

func TestConvert_NoConverterRegistered(t *testing.T) {
	_, err := Convert(Kind("unknown"), KindAvro, nil)
	require.ErrorIs(t, err, ErrNoConverter)
}
