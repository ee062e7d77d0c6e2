package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dikang123/schematizer/internal/compatibility"
	"github.com/dikang123/schematizer/internal/storage"
	"github.com/dikang123/schematizer/internal/storage/memory"
)

func newTestRegistry() *Registry {
	return New(memory.NewStore(), compatibility.NewChecker())
}

const schemaV1 = `{
	"type": "record", "name": "u", "namespace": "n", "doc": "d",
	"fields": [{"name": "x", "type": "int", "doc": "d"}]
}`

const schemaV1AddedOptionalField = `{
	"type": "record", "name": "u", "namespace": "n", "doc": "d",
	"fields": [
		{"name": "x", "type": "int", "doc": "d"},
		{"name": "y", "type": ["null", "int"], "default": null, "doc": "d"}
	]
}`

const schemaV1IncompatibleRetype = `{
	"type": "record", "name": "u", "namespace": "n", "doc": "d",
	"fields": [{"name": "x", "type": "string", "doc": "d"}]
}`

const schemaMissingDoc = `{
	"type": "record", "name": "u", "namespace": "n", "doc": "d",
	"fields": [{"name": "x", "type": "int"}]
}`

func TestRegister_FreshDomain(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()

	sc, err := r.Register(ctx, schemaV1, "n", "s", "owner@example.com", "", nil)
	require.NoError(t, err)
	require.NotZero(t, sc.ID)
	require.Equal(t, storage.StatusReadAndWrite, sc.Status)

	domain, err := r.GetDomain(ctx, "n", "s")
	require.NoError(t, err)
	require.NotNil(t, domain)

	topic, err := r.LatestTopicOfDomainByID(ctx, domain.ID)
	require.NoError(t, err)
	require.NotNil(t, topic)
	require.Contains(t, topic.Name, "n.s.")

	latest, err := r.LatestSchemaOfTopicByID(ctx, topic.ID)
	require.NoError(t, err)
	require.Equal(t, sc.ID, latest.ID)
}

func TestRegister_Deduplication(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()

	first, err := r.Register(ctx, schemaV1, "n", "s", "owner@example.com", "", nil)
	require.NoError(t, err)

	second, err := r.Register(ctx, schemaV1, "n", "s", "owner@example.com", "", nil)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	schemas, err := r.SchemasOfTopicByID(ctx, first.TopicID, true)
	require.NoError(t, err)
	require.Len(t, schemas, 1)
}

func TestRegister_CompatibleEvolutionAppendsTopic(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()

	first, err := r.Register(ctx, schemaV1, "n", "s", "owner@example.com", "", nil)
	require.NoError(t, err)

	second, err := r.Register(ctx, schemaV1AddedOptionalField, "n", "s", "owner@example.com", "", nil)
	require.NoError(t, err)

	require.Equal(t, first.TopicID, second.TopicID)
	require.Equal(t, first.ID+1, second.ID)
}

func TestRegister_IncompatibleEvolutionRollsOverTopic(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()

	first, err := r.Register(ctx, schemaV1, "n", "s", "owner@example.com", "", nil)
	require.NoError(t, err)

	second, err := r.Register(ctx, schemaV1IncompatibleRetype, "n", "s", "owner@example.com", "", nil)
	require.NoError(t, err)

	require.NotEqual(t, first.TopicID, second.TopicID)

	oldTopicLatest, err := r.LatestSchemaOfTopicByID(ctx, first.TopicID)
	require.NoError(t, err)
	require.Equal(t, first.ID, oldTopicLatest.ID)

	// A third register with the same incompatible JSON creates no new topic.
	third, err := r.Register(ctx, schemaV1IncompatibleRetype, "n", "s", "owner@example.com", "", nil)
	require.NoError(t, err)
	require.Equal(t, second.TopicID, third.TopicID)
	require.Equal(t, second.ID, third.ID)

	domain, err := r.GetDomain(ctx, "n", "s")
	require.NoError(t, err)
	topics, err := r.TopicsOfDomain(ctx, domain.ID)
	require.NoError(t, err)
	require.Len(t, topics, 2)
}

func TestRegister_MissingDoc(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()

	_, err := r.Register(ctx, schemaMissingDoc, "n", "s", "owner@example.com", "", nil)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrMissingDoc))

	domain, err := r.GetDomain(ctx, "n", "s")
	require.NoError(t, err)
	require.Nil(t, domain)
}

func TestRegister_InvalidSchema(t *testing.T) {
	r := newTestRegistry()
	_, err := r.Register(context.Background(), `{not json`, "n", "s", "o@example.com", "", nil)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInvalidSchema))
}

func TestRegister_BaseSchemaIDAffectsDedup(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()

	first, err := r.Register(ctx, schemaV1, "n", "s", "owner@example.com", "", nil)
	require.NoError(t, err)

	base := first.ID
	second, err := r.Register(ctx, schemaV1, "n", "s", "owner@example.com", "", &base)
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID, "different base_schema_id must not dedup")
}

func TestIsSchemaCompatible_NoTopicYet(t *testing.T) {
	r := newTestRegistry()
	ok, err := r.IsSchemaCompatible(context.Background(), schemaV1, "n", "s")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestIsSchemaCompatible_AgainstExistingTopic(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()
	_, err := r.Register(ctx, schemaV1, "n", "s", "owner@example.com", "", nil)
	require.NoError(t, err)

	ok, err := r.IsSchemaCompatible(ctx, schemaV1AddedOptionalField, "n", "s")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = r.IsSchemaCompatible(ctx, schemaV1IncompatibleRetype, "n", "s")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestIsSchemaCompatibleInTopic_UnknownTopic(t *testing.T) {
	r := newTestRegistry()
	_, err := r.IsSchemaCompatibleInTopic(context.Background(), schemaV1, "does.not.exist")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrEntityNotFound))
}

func TestLatestSchemaOfTopicByName_UnknownTopic(t *testing.T) {
	r := newTestRegistry()
	_, err := r.LatestSchemaOfTopicByName(context.Background(), "does.not.exist")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrEntityNotFound))
}

func TestSchemasOfTopicByName_UnknownTopic(t *testing.T) {
	r := newTestRegistry()
	_, err := r.SchemasOfTopicByName(context.Background(), "does.not.exist", false)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrEntityNotFound))
}

func TestLatestTopicOfDomainByName_UnknownDomain(t *testing.T) {
	r := newTestRegistry()
	_, err := r.LatestTopicOfDomainByName(context.Background(), "n", "s")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrEntityNotFound))
}

func TestMarkReadOnlyAndDisabled(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()
	sc, err := r.Register(ctx, schemaV1, "n", "s", "owner@example.com", "", nil)
	require.NoError(t, err)

	require.NoError(t, r.MarkReadOnly(ctx, sc.ID))
	got, err := r.GetSchema(ctx, sc.ID)
	require.NoError(t, err)
	require.Equal(t, storage.StatusReadOnly, got.Status)

	require.NoError(t, r.MarkDisabled(ctx, sc.ID))
	got, err = r.GetSchema(ctx, sc.ID)
	require.NoError(t, err)
	require.Equal(t, storage.StatusDisabled, got.Status)

	// A disabled latest schema falls out of "latest enabled".
	latest, err := r.LatestSchemaOfTopicByID(ctx, sc.TopicID)
	require.NoError(t, err)
	require.Nil(t, latest)
}

func TestListNamespacesAndDomains(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()
	_, err := r.Register(ctx, schemaV1, "n1", "s1", "a@example.com", "", nil)
	require.NoError(t, err)
	_, err = r.Register(ctx, schemaV1, "n1", "s2", "a@example.com", "", nil)
	require.NoError(t, err)
	_, err = r.Register(ctx, schemaV1, "n2", "s1", "a@example.com", "", nil)
	require.NoError(t, err)

	namespaces, err := r.ListNamespaces(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"n1", "n2"}, namespaces)

	domains, err := r.ListDomains(ctx)
	require.NoError(t, err)
	require.Len(t, domains, 3)

	n1Domains, err := r.DomainsOfNamespace(ctx, "n1")
	require.NoError(t, err)
	require.Len(t, n1Domains, 2)
}

func TestElementsOfSchema_RecordedWithDoc(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()
	sc, err := r.Register(ctx, schemaV1, "n", "s", "owner@example.com", "", nil)
	require.NoError(t, err)

	elements, err := r.ElementsOfSchema(ctx, sc.ID)
	require.NoError(t, err)
	require.NotEmpty(t, elements)
	for _, e := range elements {
		if e.ElementType == "record" || e.ElementType == "field" {
			require.NotEmpty(t, e.Doc)
		}
	}
}
