package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dikang123/schematizer/internal/storage"
)

func TestCreateDomain_DuplicateReturnsExisting(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	d1, err := tx.CreateDomain(ctx, "ns", "src", "owner@example.com")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	tx2, err := s.Begin(ctx)
	require.NoError(t, err)
	d2, err := tx2.CreateDomain(ctx, "ns", "src", "someone-else@example.com")
	require.NoError(t, err)
	require.NoError(t, tx2.Commit())

	require.Equal(t, d1.ID, d2.ID)
	require.Equal(t, "owner@example.com", d2.OwnerEmail, "first writer's row wins, no update on duplicate")
}

func TestCreateTopic_DuplicateNameIsFatal(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	d, err := tx.CreateDomain(ctx, "ns", "src", "o@example.com")
	require.NoError(t, err)
	_, err = tx.CreateTopic(ctx, "ns.src.aaaa", d.ID)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	tx2, err := s.Begin(ctx)
	require.NoError(t, err)
	_, err = tx2.CreateTopic(ctx, "ns.src.aaaa", d.ID)
	require.ErrorIs(t, err, storage.ErrDuplicateTopic)
	require.NoError(t, tx2.Rollback())
}

func TestLatestSchemaOfTopic_SkipsDisabled(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	d, err := tx.CreateDomain(ctx, "ns", "src", "o@example.com")
	require.NoError(t, err)
	tp, err := tx.CreateTopic(ctx, "ns.src.aaaa", d.ID)
	require.NoError(t, err)

	sc1, err := tx.InsertSchema(ctx, `{"type":"record"}`, tp.ID, storage.StatusReadAndWrite, nil, nil)
	require.NoError(t, err)
	sc2, err := tx.InsertSchema(ctx, `{"type":"record","v":2}`, tp.ID, storage.StatusReadAndWrite, nil, nil)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	require.NoError(t, s.MarkSchemaStatus(ctx, sc2.ID, storage.StatusDisabled))

	latest, err := s.LatestSchemaOfTopic(ctx, tp.ID)
	require.NoError(t, err)
	require.Equal(t, sc1.ID, latest.ID)
}

func TestSchemasOfTopic_OrderedByID(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	tx, _ := s.Begin(ctx)
	d, _ := tx.CreateDomain(ctx, "ns", "src", "o@example.com")
	tp, _ := tx.CreateTopic(ctx, "ns.src.aaaa", d.ID)
	var ids []int64
	for i := 0; i < 3; i++ {
		sc, err := tx.InsertSchema(ctx, `{"type":"record"}`, tp.ID, storage.StatusReadAndWrite, nil, nil)
		require.NoError(t, err)
		ids = append(ids, sc.ID)
	}
	require.NoError(t, tx.Commit())

	schemas, err := s.SchemasOfTopic(ctx, tp.ID, true)
	require.NoError(t, err)
	require.Len(t, schemas, 3)
	for i, sc := range schemas {
		require.Equal(t, ids[i], sc.ID)
	}
}

func TestInsertSchema_PersistsElementsInSameTransaction(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	tx, _ := s.Begin(ctx)
	d, _ := tx.CreateDomain(ctx, "ns", "src", "o@example.com")
	tp, _ := tx.CreateTopic(ctx, "ns.src.aaaa", d.ID)

	elements := []*storage.AvroSchemaElement{
		{ElementType: "record", Key: "u", Doc: "the user record"},
		{ElementType: "field", Key: "u.id", Doc: "the id field"},
	}
	sc, err := tx.InsertSchema(ctx, `{"type":"record","name":"u"}`, tp.ID, storage.StatusReadAndWrite, nil, elements)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	stored, err := s.ElementsOfSchema(ctx, sc.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	require.Equal(t, sc.ID, stored[0].AvroSchemaID)
	require.NotZero(t, stored[0].ID)
}

func TestRollback_ReleasesLockWithoutPersisting(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	_, err = tx.CreateDomain(ctx, "ns", "src", "o@example.com")
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	// A subsequent Begin must not deadlock: Rollback released the mutex.
	tx2, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx2.Rollback())
}

func TestTx_DoubleCommitFails(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	require.ErrorIs(t, tx.Commit(), storage.ErrTxAlreadyClosed)
}
