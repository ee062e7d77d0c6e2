// Package registry implements the schema-lifecycle core: the registration
// coordinator (C5) that deduplicates, checks compatibility, and atomically
// assigns a candidate Avro schema to a topic, plus the read-side query API
// (C6) built on the same Store port.
package registry

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	"github.com/hamba/avro/v2"

	"github.com/dikang123/schematizer/internal/compatibility"
	"github.com/dikang123/schematizer/internal/storage"
)

// Registry is the schema registry core: the registration coordinator and
// query API, built on a Store port and a compatibility Checker. It holds no
// mutable state of its own and is safe for concurrent use by multiple
// callers; all serialization happens inside the Store's transactions.
type Registry struct {
	store  storage.Store
	compat *compatibility.Checker
}

// New creates a Registry backed by the given Store and Checker.
func New(store storage.Store, compat *compatibility.Checker) *Registry {
	return &Registry{store: store, compat: compat}
}

// Register is the primary operation: it validates avroJSON, resolves the
// (namespace, source) domain, decides whether the candidate appends to the
// current topic or starts a new one, deduplicates against the topic's
// latest enabled schema, and persists the result — all inside one Store
// transaction. status defaults to ReadAndWrite when empty.
func (r *Registry) Register(
	ctx context.Context,
	avroJSON string,
	namespace, source, ownerEmail string,
	status storage.SchemaStatus,
	baseSchemaID *int64,
) (*storage.AvroSchema, error) {
	if status == "" {
		status = storage.StatusReadAndWrite
	}

	parsed, err := avro.Parse(avroJSON)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	canonical := parsed.String()

	elements := flattenElements(parsed)
	for _, e := range elements {
		if (e.ElementType == "record" || e.ElementType == "field") && e.Doc == "" {
			return nil, fmt.Errorf("%w: %s %q has no doc", ErrMissingDoc, e.ElementType, e.Key)
		}
	}

	tx, err := r.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() // no-op once Commit has run

	domain, err := tx.GetDomain(ctx, namespace, source)
	if err != nil {
		return nil, fmt.Errorf("get domain: %w", err)
	}
	if domain == nil {
		domain, err = tx.CreateDomain(ctx, namespace, source, ownerEmail)
		if err != nil {
			return nil, fmt.Errorf("create domain: %w", err)
		}
	}

	// Serializes every other registration targeting this (namespace, source).
	if err := tx.LockDomain(ctx, domain.ID); err != nil {
		return nil, fmt.Errorf("lock domain: %w", err)
	}

	currentTopic, err := tx.LatestTopicOfDomain(ctx, domain.ID)
	if err != nil {
		return nil, fmt.Errorf("latest topic of domain: %w", err)
	}

	var enabledJSON []string
	if currentTopic != nil {
		// Prevents a concurrent registration from changing the enabled set
		// while this transaction decides append-vs-rollover below.
		if err := tx.LockTopicAndSchemas(ctx, currentTopic.ID); err != nil {
			return nil, fmt.Errorf("lock topic and schemas: %w", err)
		}
		enabled, err := tx.SchemasOfTopic(ctx, currentTopic.ID, false)
		if err != nil {
			return nil, fmt.Errorf("schemas of topic: %w", err)
		}
		for _, s := range enabled {
			enabledJSON = append(enabledJSON, s.AvroSchemaJSON)
		}
	}

	compatible := currentTopic != nil && r.compat.IsTopicCompatible(canonical, enabledJSON).IsCompatible

	targetTopic := currentTopic
	if currentTopic == nil || !compatible {
		name := newTopicName(namespace, source)
		targetTopic, err = tx.CreateTopic(ctx, name, domain.ID)
		if err != nil {
			return nil, fmt.Errorf("create topic: %w", err)
		}
	}

	latest, err := tx.LatestSchemaOfTopic(ctx, targetTopic.ID)
	if err != nil {
		return nil, fmt.Errorf("latest schema of topic: %w", err)
	}
	if latest != nil && latest.AvroSchemaJSON == canonical && baseSchemaIDEqual(latest.BaseSchemaID, baseSchemaID) {
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("commit: %w", err)
		}
		return latest, nil
	}

	inserted, err := tx.InsertSchema(ctx, canonical, targetTopic.ID, status, baseSchemaID, elements)
	if err != nil {
		return nil, fmt.Errorf("insert schema: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

func baseSchemaIDEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// newTopicName builds "{namespace}.{source}.{hex32}" where hex32 is the
// lowercase hex of a random version-4 UUID's 16 bytes (128 bits, 122 of
// them random).
func newTopicName(namespace, source string) string {
	id := uuid.New()
	return namespace + "." + source + "." + hex.EncodeToString(id[:])
}

// IsSchemaCompatibleInTopic reports whether avroJSON is full-compatible
// with every enabled schema in the named topic. It raises ErrEntityNotFound
// if the topic is unknown.
func (r *Registry) IsSchemaCompatibleInTopic(ctx context.Context, avroJSON, topicName string) (bool, error) {
	topic, err := r.store.GetTopicByName(ctx, topicName)
	if err != nil {
		return false, fmt.Errorf("get topic: %w", err)
	}
	if topic == nil {
		return false, fmt.Errorf("%w: topic %q", ErrEntityNotFound, topicName)
	}

	parsed, err := avro.Parse(avroJSON)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}

	enabled, err := r.store.SchemasOfTopic(ctx, topic.ID, false)
	if err != nil {
		return false, fmt.Errorf("schemas of topic: %w", err)
	}
	var enabledJSON []string
	for _, s := range enabled {
		enabledJSON = append(enabledJSON, s.AvroSchemaJSON)
	}
	return r.compat.IsTopicCompatible(parsed.String(), enabledJSON).IsCompatible, nil
}

// IsSchemaCompatible is a convenience that resolves the domain's current
// topic and checks candidate compatibility against it, trivially returning
// true when the domain has no topic yet.
func (r *Registry) IsSchemaCompatible(ctx context.Context, avroJSON, namespace, source string) (bool, error) {
	domain, err := r.store.GetDomain(ctx, namespace, source)
	if err != nil {
		return false, fmt.Errorf("get domain: %w", err)
	}
	if domain == nil {
		return true, nil
	}

	topic, err := r.store.LatestTopicOfDomain(ctx, domain.ID)
	if err != nil {
		return false, fmt.Errorf("latest topic of domain: %w", err)
	}
	if topic == nil {
		return true, nil
	}

	return r.IsSchemaCompatibleInTopic(ctx, avroJSON, topic.Name)
}

// GetSchema returns the schema with the given id, or nil if absent.
func (r *Registry) GetSchema(ctx context.Context, id int64) (*storage.AvroSchema, error) {
	return r.store.GetSchemaByID(ctx, id)
}

// GetTopic returns the topic with the given name, or nil if absent.
func (r *Registry) GetTopic(ctx context.Context, name string) (*storage.Topic, error) {
	return r.store.GetTopicByName(ctx, name)
}

// GetDomainByID returns the domain with the given id, or nil if absent.
func (r *Registry) GetDomainByID(ctx context.Context, id int64) (*storage.Domain, error) {
	return r.store.GetDomainByID(ctx, id)
}

// GetDomain returns the domain for (namespace, source), or nil if absent.
func (r *Registry) GetDomain(ctx context.Context, namespace, source string) (*storage.Domain, error) {
	return r.store.GetDomain(ctx, namespace, source)
}

// LatestSchemaOfTopicByID returns the latest enabled schema of the topic,
// or nil if none qualifies.
func (r *Registry) LatestSchemaOfTopicByID(ctx context.Context, topicID int64) (*storage.AvroSchema, error) {
	return r.store.LatestSchemaOfTopic(ctx, topicID)
}

// LatestSchemaOfTopicByName is LatestSchemaOfTopicByID resolved through the
// topic's name; it raises ErrEntityNotFound if the topic is unknown.
func (r *Registry) LatestSchemaOfTopicByName(ctx context.Context, topicName string) (*storage.AvroSchema, error) {
	topic, err := r.store.GetTopicByName(ctx, topicName)
	if err != nil {
		return nil, fmt.Errorf("get topic: %w", err)
	}
	if topic == nil {
		return nil, fmt.Errorf("%w: topic %q", ErrEntityNotFound, topicName)
	}
	return r.store.LatestSchemaOfTopic(ctx, topic.ID)
}

// SchemasOfTopicByID returns the topic's schemas ordered by id ascending.
func (r *Registry) SchemasOfTopicByID(ctx context.Context, topicID int64, includeDisabled bool) ([]*storage.AvroSchema, error) {
	return r.store.SchemasOfTopic(ctx, topicID, includeDisabled)
}

// SchemasOfTopicByName is SchemasOfTopicByID resolved through the topic's
// name; it raises ErrEntityNotFound if the topic is unknown.
func (r *Registry) SchemasOfTopicByName(ctx context.Context, topicName string, includeDisabled bool) ([]*storage.AvroSchema, error) {
	topic, err := r.store.GetTopicByName(ctx, topicName)
	if err != nil {
		return nil, fmt.Errorf("get topic: %w", err)
	}
	if topic == nil {
		return nil, fmt.Errorf("%w: topic %q", ErrEntityNotFound, topicName)
	}
	return r.store.SchemasOfTopic(ctx, topic.ID, includeDisabled)
}

// ElementsOfSchema returns the schema's flattened elements.
func (r *Registry) ElementsOfSchema(ctx context.Context, schemaID int64) ([]*storage.AvroSchemaElement, error) {
	return r.store.ElementsOfSchema(ctx, schemaID)
}

// ListNamespaces returns the distinct namespace strings across all domains.
func (r *Registry) ListNamespaces(ctx context.Context) ([]string, error) {
	return r.store.ListNamespaces(ctx)
}

// ListDomains returns every domain, ordered by id ascending.
func (r *Registry) ListDomains(ctx context.Context) ([]*storage.Domain, error) {
	return r.store.ListDomains(ctx)
}

// DomainsOfNamespace returns the domains in the given namespace, ordered by
// id ascending.
func (r *Registry) DomainsOfNamespace(ctx context.Context, namespace string) ([]*storage.Domain, error) {
	return r.store.DomainsOfNamespace(ctx, namespace)
}

// TopicsOfDomain returns the domain's topics, ordered by id ascending.
func (r *Registry) TopicsOfDomain(ctx context.Context, domainID int64) ([]*storage.Topic, error) {
	return r.store.TopicsOfDomain(ctx, domainID)
}

// LatestTopicOfDomainByID returns the domain's most recently created topic,
// or nil if it has none yet.
func (r *Registry) LatestTopicOfDomainByID(ctx context.Context, domainID int64) (*storage.Topic, error) {
	return r.store.LatestTopicOfDomain(ctx, domainID)
}

// LatestTopicOfDomainByName resolves (namespace, source) to a domain first;
// it raises ErrEntityNotFound if the pair is unknown.
func (r *Registry) LatestTopicOfDomainByName(ctx context.Context, namespace, source string) (*storage.Topic, error) {
	domain, err := r.store.GetDomain(ctx, namespace, source)
	if err != nil {
		return nil, fmt.Errorf("get domain: %w", err)
	}
	if domain == nil {
		return nil, fmt.Errorf("%w: domain (%s, %s)", ErrEntityNotFound, namespace, source)
	}
	return r.store.LatestTopicOfDomain(ctx, domain.ID)
}

// MarkReadOnly transitions a schema's status to ReadOnly.
func (r *Registry) MarkReadOnly(ctx context.Context, schemaID int64) error {
	return r.store.MarkSchemaStatus(ctx, schemaID, storage.StatusReadOnly)
}

// MarkDisabled transitions a schema's status to Disabled.
func (r *Registry) MarkDisabled(ctx context.Context, schemaID int64) error {
	return r.store.MarkSchemaStatus(ctx, schemaID, storage.StatusDisabled)
}
