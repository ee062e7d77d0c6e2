package redshift

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTable_PrimaryKeys_OrderedByPrimaryKeyOrder(t *testing.T) {
	tbl := &Table{
		Name: "users",
		Columns: []Column{
			{Name: "email", PrimaryKeyOrder: 0},
			{Name: "tenant_id", PrimaryKeyOrder: 2},
			{Name: "id", PrimaryKeyOrder: 1},
		},
	}

	require.Equal(t, []string{"id", "tenant_id"}, tbl.PrimaryKeys())
}

func TestTable_PrimaryKeys_EmptyWhenNoneMarked(t *testing.T) {
	tbl := &Table{
		Columns: []Column{
			{Name: "a"},
			{Name: "b"},
		},
	}

	require.Empty(t, tbl.PrimaryKeys())
}

func TestTable_PrimaryKeys_SingleColumn(t *testing.T) {
	tbl := &Table{
		Columns: []Column{
			{Name: "a", PrimaryKeyOrder: 1},
			{Name: "b"},
		},
	}

	require.Equal(t, []string{"a"}, tbl.PrimaryKeys())
}
