// Package storage defines the schema-lifecycle persistence port: CRUD and
// transactional row-level locking over Domain, Topic, AvroSchema, and
// AvroSchemaElement. Registration writes run inside an explicit Tx obtained
// from Store.Begin, rather than an ambient session bound to the goroutine;
// the admin status transition (Store.MarkSchemaStatus) runs on its own.
package storage

import (
	"context"
	"errors"
	"time"
)

// Common errors. Entity-not-found is represented by a nil return plus nil
// error for lookups (per the spec's "nil/empty when absent" contract);
// ErrEntityNotFound is returned by status updates (MarkSchemaStatus, and
// SetSchemaStatus in the memory store) when the schema id is unknown.
var (
	ErrEntityNotFound  = errors.New("storage: entity not found")
	ErrDuplicateTopic  = errors.New("storage: duplicate topic name")
	ErrTxAlreadyClosed = errors.New("storage: transaction already committed or rolled back")
)

// SchemaStatus is the lifecycle state of an AvroSchema.
type SchemaStatus string

const (
	StatusReadAndWrite SchemaStatus = "ReadAndWrite"
	StatusReadOnly     SchemaStatus = "ReadOnly"
	StatusDisabled     SchemaStatus = "Disabled"
)

// Domain is the logical stream identity: a (namespace, source) pair.
type Domain struct {
	ID         int64
	Namespace  string
	Source     string
	OwnerEmail string
}

// Topic is a named compatibility group inside a Domain.
type Topic struct {
	ID       int64
	Name     string
	DomainID int64
}

// AvroSchema is one registered schema version within a Topic.
type AvroSchema struct {
	ID             int64
	TopicID        int64
	AvroSchemaJSON string
	Status         SchemaStatus
	BaseSchemaID   *int64
	CreatedAt      time.Time
}

// AvroSchemaElement is a descendant node flattened from an AvroSchema's
// JSON: one entry per record, field, enum, etc.
type AvroSchemaElement struct {
	ID           int64
	AvroSchemaID int64
	ElementType  string
	Key          string
	Doc          string
}

// Store is the persistence port. Begin opens a transaction; write
// operations live on the returned Tx. Read-only Query API operations that
// don't need an ambient transaction live directly on Store.
type Store interface {
	// Begin opens a new transaction. The caller must Commit or Rollback it.
	Begin(ctx context.Context) (Tx, error)

	// Query API (C6) — pure reads, no transaction required.
	GetSchemaByID(ctx context.Context, id int64) (*AvroSchema, error)
	GetTopicByName(ctx context.Context, name string) (*Topic, error)
	GetDomainByID(ctx context.Context, id int64) (*Domain, error)
	GetDomain(ctx context.Context, namespace, source string) (*Domain, error)
	LatestSchemaOfTopic(ctx context.Context, topicID int64) (*AvroSchema, error)
	SchemasOfTopic(ctx context.Context, topicID int64, includeDisabled bool) ([]*AvroSchema, error)
	ListNamespaces(ctx context.Context) ([]string, error)
	ListDomains(ctx context.Context) ([]*Domain, error)
	DomainsOfNamespace(ctx context.Context, namespace string) ([]*Domain, error)
	TopicsOfDomain(ctx context.Context, domainID int64) ([]*Topic, error)
	LatestTopicOfDomain(ctx context.Context, domainID int64) (*Topic, error)
	ElementsOfSchema(ctx context.Context, schemaID int64) ([]*AvroSchemaElement, error)

	// Admin status transitions; each runs in its own implicit transaction.
	MarkSchemaStatus(ctx context.Context, schemaID int64, status SchemaStatus) error

	// Close releases resources held by the store (connection pool, etc).
	Close() error
}

// Tx is a single registration transaction's view of the Store. Every method
// participates in the same underlying database transaction; Commit or
// Rollback must be called exactly once.
type Tx interface {
	// GetDomain looks up a Domain by (namespace, source); nil, nil if absent.
	GetDomain(ctx context.Context, namespace, source string) (*Domain, error)

	// CreateDomain inserts a new Domain. If a concurrent writer already
	// created the same (namespace, source) pair, the implementation
	// recovers via savepoint-rollback-and-refetch (or the driver's
	// equivalent upsert idiom) and returns the existing row instead of an
	// error.
	CreateDomain(ctx context.Context, namespace, source, ownerEmail string) (*Domain, error)

	// LockDomain takes a row lock on the Domain, held until Commit/Rollback.
	LockDomain(ctx context.Context, id int64) error

	// LatestTopicOfDomain returns the domain's most recently created topic,
	// or nil if it has none yet.
	LatestTopicOfDomain(ctx context.Context, domainID int64) (*Topic, error)

	// LockTopicAndSchemas takes row locks on the Topic and every AvroSchema
	// row belonging to it.
	LockTopicAndSchemas(ctx context.Context, topicID int64) error

	// CreateTopic inserts a new Topic. A name collision is fatal: the name's
	// random component makes collision a bug indicator, not a retry
	// condition, so this returns ErrDuplicateTopic rather than recovering.
	CreateTopic(ctx context.Context, name string, domainID int64) (*Topic, error)

	// SchemasOfTopic returns schemas ordered by id ascending.
	SchemasOfTopic(ctx context.Context, topicID int64, includeDisabled bool) ([]*AvroSchema, error)

	// LatestSchemaOfTopic returns the schema with the greatest id whose
	// status is not Disabled, or nil if none qualifies.
	LatestSchemaOfTopic(ctx context.Context, topicID int64) (*AvroSchema, error)

	// InsertSchema persists a new AvroSchema and its elements atomically.
	InsertSchema(ctx context.Context, avroJSON string, topicID int64, status SchemaStatus, baseSchemaID *int64, elements []*AvroSchemaElement) (*AvroSchema, error)

	// SetSchemaStatus updates a schema's lifecycle status.
	SetSchemaStatus(ctx context.Context, schemaID int64, status SchemaStatus) error

	// Commit and Rollback finalize the transaction. Calling either a second
	// time, or calling one after the other already ran, returns
	// ErrTxAlreadyClosed.
	Commit() error
	Rollback() error
}
