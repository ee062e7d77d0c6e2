// Package memory provides an in-memory implementation of the storage port,
// suitable for tests and for embedding in tools that don't need a real
// database.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/dikang123/schematizer/internal/storage"
)

// Store implements storage.Store with mutex-guarded maps. A single store
// mutex stands in for the database's row-level locking: Begin acquires it
// for the lifetime of the transaction, so every registration on this store
// serializes with every other regardless of domain — a coarser but correct
// simplification of the per-domain locking a real database provides. The
// duplicate-domain recovery path described in the storage port is therefore
// unreachable here: with the whole store locked for the transaction's
// duration, no second writer can ever race CreateDomain for the same key.
type Store struct {
	mu sync.Mutex

	domains  map[int64]*storage.Domain
	topics   map[int64]*storage.Topic
	schemas  map[int64]*storage.AvroSchema
	elements map[int64][]*storage.AvroSchemaElement

	domainByKey    map[string]int64 // "namespace\x00source" -> domain id
	topicByName    map[string]int64
	topicsOfDomain map[int64][]int64 // domain id -> topic ids, creation order
	schemasOfTopic map[int64][]int64 // topic id -> schema ids, creation order

	nextDomainID  int64
	nextTopicID   int64
	nextSchemaID  int64
	nextElementID int64
}

// NewStore returns an empty, ready-to-use in-memory store.
func NewStore() *Store {
	return &Store{
		domains:        make(map[int64]*storage.Domain),
		topics:         make(map[int64]*storage.Topic),
		schemas:        make(map[int64]*storage.AvroSchema),
		elements:       make(map[int64][]*storage.AvroSchemaElement),
		domainByKey:    make(map[string]int64),
		topicByName:    make(map[string]int64),
		topicsOfDomain: make(map[int64][]int64),
		schemasOfTopic: make(map[int64][]int64),
	}
}

func domainKey(namespace, source string) string {
	return namespace + "\x00" + source
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }

// Begin acquires the store mutex and returns a transaction bound to it. The
// lock is released exactly once, by Commit or Rollback.
func (s *Store) Begin(ctx context.Context) (storage.Tx, error) {
	s.mu.Lock()
	return &tx{store: s}, nil
}

func (s *Store) GetDomain(ctx context.Context, namespace, source string) (*storage.Domain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getDomainLocked(namespace, source), nil
}

func (s *Store) getDomainLocked(namespace, source string) *storage.Domain {
	id, ok := s.domainByKey[domainKey(namespace, source)]
	if !ok {
		return nil
	}
	d := *s.domains[id]
	return &d
}

func (s *Store) GetDomainByID(ctx context.Context, id int64) (*storage.Domain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.domains[id]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (s *Store) GetTopicByName(ctx context.Context, name string) (*storage.Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.topicByName[name]
	if !ok {
		return nil, nil
	}
	cp := *s.topics[id]
	return &cp, nil
}

func (s *Store) GetSchemaByID(ctx context.Context, id int64) (*storage.AvroSchema, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.schemas[id]
	if !ok {
		return nil, nil
	}
	cp := *sc
	return &cp, nil
}

func (s *Store) LatestSchemaOfTopic(ctx context.Context, topicID int64) (*storage.AvroSchema, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latestSchemaOfTopicLocked(topicID), nil
}

func (s *Store) latestSchemaOfTopicLocked(topicID int64) *storage.AvroSchema {
	var latest *storage.AvroSchema
	for _, id := range s.schemasOfTopic[topicID] {
		sc := s.schemas[id]
		if sc.Status == storage.StatusDisabled {
			continue
		}
		if latest == nil || sc.ID > latest.ID {
			latest = sc
		}
	}
	if latest == nil {
		return nil
	}
	cp := *latest
	return &cp
}

func (s *Store) SchemasOfTopic(ctx context.Context, topicID int64, includeDisabled bool) ([]*storage.AvroSchema, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schemasOfTopicLocked(topicID, includeDisabled), nil
}

func (s *Store) schemasOfTopicLocked(topicID int64, includeDisabled bool) []*storage.AvroSchema {
	ids := append([]int64(nil), s.schemasOfTopic[topicID]...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	var out []*storage.AvroSchema
	for _, id := range ids {
		sc := s.schemas[id]
		if !includeDisabled && sc.Status == storage.StatusDisabled {
			continue
		}
		cp := *sc
		out = append(out, &cp)
	}
	return out
}

func (s *Store) ElementsOfSchema(ctx context.Context, schemaID int64) ([]*storage.AvroSchemaElement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*storage.AvroSchemaElement(nil), s.elements[schemaID]...), nil
}

func (s *Store) ListNamespaces(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]bool)
	var out []string
	for _, d := range s.domains {
		if !seen[d.Namespace] {
			seen[d.Namespace] = true
			out = append(out, d.Namespace)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) ListDomains(ctx context.Context) ([]*storage.Domain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.domainsOrderedLocked(func(*storage.Domain) bool { return true }), nil
}

func (s *Store) DomainsOfNamespace(ctx context.Context, namespace string) ([]*storage.Domain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.domainsOrderedLocked(func(d *storage.Domain) bool { return d.Namespace == namespace }), nil
}

func (s *Store) domainsOrderedLocked(pred func(*storage.Domain) bool) []*storage.Domain {
	ids := make([]int64, 0, len(s.domains))
	for id := range s.domains {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	var out []*storage.Domain
	for _, id := range ids {
		d := s.domains[id]
		if pred(d) {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out
}

func (s *Store) TopicsOfDomain(ctx context.Context, domainID int64) ([]*storage.Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := append([]int64(nil), s.topicsOfDomain[domainID]...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	var out []*storage.Topic
	for _, id := range ids {
		cp := *s.topics[id]
		out = append(out, &cp)
	}
	return out, nil
}

func (s *Store) LatestTopicOfDomain(ctx context.Context, domainID int64) (*storage.Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latestTopicOfDomainLocked(domainID), nil
}

func (s *Store) latestTopicOfDomainLocked(domainID int64) *storage.Topic {
	ids := s.topicsOfDomain[domainID]
	if len(ids) == 0 {
		return nil
	}
	last := ids[len(ids)-1]
	cp := *s.topics[last]
	return &cp
}

func (s *Store) MarkSchemaStatus(ctx context.Context, schemaID int64, status storage.SchemaStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.schemas[schemaID]
	if !ok {
		return storage.ErrEntityNotFound
	}
	sc.Status = status
	return nil
}

// tx is the transactional handle returned by Store.Begin. It holds the
// store's mutex for its entire lifetime; LockDomain/LockTopicAndSchemas are
// therefore no-ops on top of that coarser lock, but are still real method
// calls a caller must make, preserving the Store port's shape.
type tx struct {
	store  *Store
	closed bool
}

func (t *tx) requireOpen() error {
	if t.closed {
		return storage.ErrTxAlreadyClosed
	}
	return nil
}

func (t *tx) GetDomain(ctx context.Context, namespace, source string) (*storage.Domain, error) {
	if err := t.requireOpen(); err != nil {
		return nil, err
	}
	return t.store.getDomainLocked(namespace, source), nil
}

func (t *tx) CreateDomain(ctx context.Context, namespace, source, ownerEmail string) (*storage.Domain, error) {
	if err := t.requireOpen(); err != nil {
		return nil, err
	}
	if existing := t.store.getDomainLocked(namespace, source); existing != nil {
		return existing, nil
	}
	t.store.nextDomainID++
	d := &storage.Domain{
		ID:         t.store.nextDomainID,
		Namespace:  namespace,
		Source:     source,
		OwnerEmail: ownerEmail,
	}
	t.store.domains[d.ID] = d
	t.store.domainByKey[domainKey(namespace, source)] = d.ID
	cp := *d
	return &cp, nil
}

func (t *tx) LockDomain(ctx context.Context, id int64) error {
	return t.requireOpen()
}

func (t *tx) LatestTopicOfDomain(ctx context.Context, domainID int64) (*storage.Topic, error) {
	if err := t.requireOpen(); err != nil {
		return nil, err
	}
	return t.store.latestTopicOfDomainLocked(domainID), nil
}

func (t *tx) LockTopicAndSchemas(ctx context.Context, topicID int64) error {
	return t.requireOpen()
}

func (t *tx) CreateTopic(ctx context.Context, name string, domainID int64) (*storage.Topic, error) {
	if err := t.requireOpen(); err != nil {
		return nil, err
	}
	if _, exists := t.store.topicByName[name]; exists {
		return nil, storage.ErrDuplicateTopic
	}
	t.store.nextTopicID++
	tp := &storage.Topic{ID: t.store.nextTopicID, Name: name, DomainID: domainID}
	t.store.topics[tp.ID] = tp
	t.store.topicByName[name] = tp.ID
	t.store.topicsOfDomain[domainID] = append(t.store.topicsOfDomain[domainID], tp.ID)
	cp := *tp
	return &cp, nil
}

func (t *tx) SchemasOfTopic(ctx context.Context, topicID int64, includeDisabled bool) ([]*storage.AvroSchema, error) {
	if err := t.requireOpen(); err != nil {
		return nil, err
	}
	return t.store.schemasOfTopicLocked(topicID, includeDisabled), nil
}

func (t *tx) LatestSchemaOfTopic(ctx context.Context, topicID int64) (*storage.AvroSchema, error) {
	if err := t.requireOpen(); err != nil {
		return nil, err
	}
	return t.store.latestSchemaOfTopicLocked(topicID), nil
}

func (t *tx) InsertSchema(ctx context.Context, avroJSON string, topicID int64, status storage.SchemaStatus, baseSchemaID *int64, elements []*storage.AvroSchemaElement) (*storage.AvroSchema, error) {
	if err := t.requireOpen(); err != nil {
		return nil, err
	}
	t.store.nextSchemaID++
	sc := &storage.AvroSchema{
		ID:             t.store.nextSchemaID,
		TopicID:        topicID,
		AvroSchemaJSON: avroJSON,
		Status:         status,
		BaseSchemaID:   baseSchemaID,
	}
	t.store.schemas[sc.ID] = sc
	t.store.schemasOfTopic[topicID] = append(t.store.schemasOfTopic[topicID], sc.ID)

	stored := make([]*storage.AvroSchemaElement, 0, len(elements))
	for _, e := range elements {
		t.store.nextElementID++
		cp := *e
		cp.ID = t.store.nextElementID
		cp.AvroSchemaID = sc.ID
		stored = append(stored, &cp)
	}
	t.store.elements[sc.ID] = stored

	out := *sc
	return &out, nil
}

func (t *tx) SetSchemaStatus(ctx context.Context, schemaID int64, status storage.SchemaStatus) error {
	if err := t.requireOpen(); err != nil {
		return err
	}
	sc, ok := t.store.schemas[schemaID]
	if !ok {
		return storage.ErrEntityNotFound
	}
	sc.Status = status
	return nil
}

func (t *tx) Commit() error {
	if err := t.requireOpen(); err != nil {
		return err
	}
	t.closed = true
	t.store.mu.Unlock()
	return nil
}

func (t *tx) Rollback() error {
	if err := t.requireOpen(); err != nil {
		return err
	}
	t.closed = true
	t.store.mu.Unlock()
	return nil
}
