// Package mysql provides a MySQL implementation of the storage port.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/dikang123/schematizer/internal/storage"
)

// Config holds MySQL connection configuration.
type Config struct {
	Host            string
	Port            int
	Database        string
	Username        string
	Password        string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		Host:            "localhost",
		Port:            3306,
		Database:        "schematizer",
		Username:        "root",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
	}
}

// DSN returns the connection string.
func (c Config) DSN() string {
	return fmt.Sprintf(
		"%s:%s@tcp(%s:%d)/%s?parseTime=true&multiStatements=false",
		c.Username, c.Password, c.Host, c.Port, c.Database,
	)
}

// Store implements storage.Store using MySQL. Unlike the Postgres store,
// duplicate-domain recovery here uses INSERT IGNORE plus a re-select
// instead of SAVEPOINT/ROLLBACK TO SAVEPOINT (Design Note 4's documented
// alternative for drivers without a convenient nested-transaction idiom).
type Store struct {
	db     *sql.DB
	config Config
}

// NewStore opens a MySQL connection, verifies it, and runs migrations.
func NewStore(config Config) (*Store, error) {
	db, err := sql.Open("mysql", config.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &Store{db: db, config: config}

	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

func (s *Store) migrate(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

// Begin opens a new database transaction and wraps it as a storage.Tx.
func (s *Store) Begin(ctx context.Context) (storage.Tx, error) {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &tx{sqlTx: sqlTx}, nil
}

func scanDomain(row *sql.Row) (*storage.Domain, error) {
	var d storage.Domain
	err := row.Scan(&d.ID, &d.Namespace, &d.Source, &d.OwnerEmail)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func scanSchema(row *sql.Row) (*storage.AvroSchema, error) {
	var sc storage.AvroSchema
	var baseSchemaID sql.NullInt64
	err := row.Scan(&sc.ID, &sc.TopicID, &sc.AvroSchemaJSON, &sc.Status, &baseSchemaID, &sc.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if baseSchemaID.Valid {
		sc.BaseSchemaID = &baseSchemaID.Int64
	}
	return &sc, nil
}

func collectSchemas(rows *sql.Rows) ([]*storage.AvroSchema, error) {
	var out []*storage.AvroSchema
	for rows.Next() {
		var sc storage.AvroSchema
		var baseSchemaID sql.NullInt64
		if err := rows.Scan(&sc.ID, &sc.TopicID, &sc.AvroSchemaJSON, &sc.Status, &baseSchemaID, &sc.CreatedAt); err != nil {
			return nil, err
		}
		if baseSchemaID.Valid {
			sc.BaseSchemaID = &baseSchemaID.Int64
		}
		out = append(out, &sc)
	}
	return out, rows.Err()
}

func (s *Store) GetDomain(ctx context.Context, namespace, source string) (*storage.Domain, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, namespace, source, owner_email FROM domains WHERE namespace = ? AND source = ?`,
		namespace, source)
	return scanDomain(row)
}

func (s *Store) GetDomainByID(ctx context.Context, id int64) (*storage.Domain, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, namespace, source, owner_email FROM domains WHERE id = ?`, id)
	return scanDomain(row)
}

func (s *Store) GetTopicByName(ctx context.Context, name string) (*storage.Topic, error) {
	var t storage.Topic
	err := s.db.QueryRowContext(ctx, `SELECT id, name, domain_id FROM topics WHERE name = ?`, name).
		Scan(&t.ID, &t.Name, &t.DomainID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) GetSchemaByID(ctx context.Context, id int64) (*storage.AvroSchema, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, topic_id, avro_schema_json, status, base_schema_id, created_at FROM avro_schemas WHERE id = ?`, id)
	return scanSchema(row)
}

func (s *Store) LatestSchemaOfTopic(ctx context.Context, topicID int64) (*storage.AvroSchema, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, topic_id, avro_schema_json, status, base_schema_id, created_at
		 FROM avro_schemas WHERE topic_id = ? AND status != ? ORDER BY id DESC LIMIT 1`,
		topicID, storage.StatusDisabled)
	return scanSchema(row)
}

func (s *Store) SchemasOfTopic(ctx context.Context, topicID int64, includeDisabled bool) ([]*storage.AvroSchema, error) {
	query := `SELECT id, topic_id, avro_schema_json, status, base_schema_id, created_at
		FROM avro_schemas WHERE topic_id = ?`
	args := []interface{}{topicID}
	if !includeDisabled {
		query += ` AND status != ?`
		args = append(args, storage.StatusDisabled)
	}
	query += ` ORDER BY id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSchemas(rows)
}

func (s *Store) ElementsOfSchema(ctx context.Context, schemaID int64) ([]*storage.AvroSchemaElement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, avro_schema_id, element_type, key_path, doc FROM avro_schema_elements WHERE avro_schema_id = ?`,
		schemaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*storage.AvroSchemaElement
	for rows.Next() {
		var e storage.AvroSchemaElement
		var doc sql.NullString
		if err := rows.Scan(&e.ID, &e.AvroSchemaID, &e.ElementType, &e.Key, &doc); err != nil {
			return nil, err
		}
		e.Doc = doc.String
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (s *Store) ListNamespaces(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT namespace FROM domains ORDER BY namespace`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var ns string
		if err := rows.Scan(&ns); err != nil {
			return nil, err
		}
		out = append(out, ns)
	}
	return out, rows.Err()
}

func (s *Store) ListDomains(ctx context.Context) ([]*storage.Domain, error) {
	return s.queryDomains(ctx, `SELECT id, namespace, source, owner_email FROM domains ORDER BY id ASC`)
}

func (s *Store) DomainsOfNamespace(ctx context.Context, namespace string) ([]*storage.Domain, error) {
	return s.queryDomains(ctx,
		`SELECT id, namespace, source, owner_email FROM domains WHERE namespace = ? ORDER BY id ASC`, namespace)
}

func (s *Store) queryDomains(ctx context.Context, query string, args ...interface{}) ([]*storage.Domain, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*storage.Domain
	for rows.Next() {
		var d storage.Domain
		if err := rows.Scan(&d.ID, &d.Namespace, &d.Source, &d.OwnerEmail); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

func (s *Store) TopicsOfDomain(ctx context.Context, domainID int64) ([]*storage.Topic, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, domain_id FROM topics WHERE domain_id = ? ORDER BY id ASC`, domainID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*storage.Topic
	for rows.Next() {
		var t storage.Topic
		if err := rows.Scan(&t.ID, &t.Name, &t.DomainID); err != nil {
			return nil, err
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

func (s *Store) LatestTopicOfDomain(ctx context.Context, domainID int64) (*storage.Topic, error) {
	var t storage.Topic
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, domain_id FROM topics WHERE domain_id = ? ORDER BY id DESC LIMIT 1`, domainID).
		Scan(&t.ID, &t.Name, &t.DomainID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) MarkSchemaStatus(ctx context.Context, schemaID int64, status storage.SchemaStatus) error {
	res, err := s.db.ExecContext(ctx, `UPDATE avro_schemas SET status = ? WHERE id = ?`, status, schemaID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrEntityNotFound
	}
	return nil
}

// mySQLErrDuplicateEntry is the error number MySQL returns for a unique-key
// violation (ER_DUP_ENTRY).
const mySQLErrDuplicateEntry = 1062

func isDuplicateEntry(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mySQLErrDuplicateEntry
}

// tx wraps a *sql.Tx to implement storage.Tx.
type tx struct {
	sqlTx *sql.Tx
}

func (t *tx) GetDomain(ctx context.Context, namespace, source string) (*storage.Domain, error) {
	var d storage.Domain
	err := t.sqlTx.QueryRowContext(ctx,
		`SELECT id, namespace, source, owner_email FROM domains WHERE namespace = ? AND source = ?`,
		namespace, source).Scan(&d.ID, &d.Namespace, &d.Source, &d.OwnerEmail)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// CreateDomain uses INSERT IGNORE rather than SAVEPOINT/ROLLBACK TO
// SAVEPOINT: if a concurrent writer already created this (namespace,
// source) pair, the INSERT silently affects zero rows and the existing row
// is re-selected, matching the spec's recovery contract without relying on
// nested transactions.
func (t *tx) CreateDomain(ctx context.Context, namespace, source, ownerEmail string) (*storage.Domain, error) {
	res, err := t.sqlTx.ExecContext(ctx,
		`INSERT IGNORE INTO domains (namespace, source, owner_email) VALUES (?, ?, ?)`,
		namespace, source, ownerEmail)
	if err != nil {
		return nil, fmt.Errorf("insert domain: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		// Another writer created this pair concurrently; INSERT IGNORE
		// swallowed the duplicate-key error. Re-fetch the row it created.
		return t.GetDomain(ctx, namespace, source)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &storage.Domain{ID: id, Namespace: namespace, Source: source, OwnerEmail: ownerEmail}, nil
}

func (t *tx) LockDomain(ctx context.Context, id int64) error {
	var discard int64
	err := t.sqlTx.QueryRowContext(ctx, `SELECT id FROM domains WHERE id = ? FOR UPDATE`, id).Scan(&discard)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	return err
}

func (t *tx) LatestTopicOfDomain(ctx context.Context, domainID int64) (*storage.Topic, error) {
	var tp storage.Topic
	err := t.sqlTx.QueryRowContext(ctx,
		`SELECT id, name, domain_id FROM topics WHERE domain_id = ? ORDER BY id DESC LIMIT 1`, domainID).
		Scan(&tp.ID, &tp.Name, &tp.DomainID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tp, nil
}

func (t *tx) LockTopicAndSchemas(ctx context.Context, topicID int64) error {
	var discard int64
	err := t.sqlTx.QueryRowContext(ctx, `SELECT id FROM topics WHERE id = ? FOR UPDATE`, topicID).Scan(&discard)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("lock topic: %w", err)
	}

	rows, err := t.sqlTx.QueryContext(ctx, `SELECT id FROM avro_schemas WHERE topic_id = ? FOR UPDATE`, topicID)
	if err != nil {
		return fmt.Errorf("lock schemas: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		if err := rows.Scan(&discard); err != nil {
			return err
		}
	}
	return rows.Err()
}

// CreateTopic is fatal on a name collision: the random component makes it a
// bug indicator, not a retry condition, so the duplicate-key error is
// surfaced as storage.ErrDuplicateTopic rather than recovered.
func (t *tx) CreateTopic(ctx context.Context, name string, domainID int64) (*storage.Topic, error) {
	res, err := t.sqlTx.ExecContext(ctx,
		`INSERT INTO topics (name, domain_id) VALUES (?, ?)`, name, domainID)
	if isDuplicateEntry(err) {
		return nil, storage.ErrDuplicateTopic
	}
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &storage.Topic{ID: id, Name: name, DomainID: domainID}, nil
}

func (t *tx) SchemasOfTopic(ctx context.Context, topicID int64, includeDisabled bool) ([]*storage.AvroSchema, error) {
	query := `SELECT id, topic_id, avro_schema_json, status, base_schema_id, created_at FROM avro_schemas WHERE topic_id = ?`
	args := []interface{}{topicID}
	if !includeDisabled {
		query += ` AND status != ?`
		args = append(args, storage.StatusDisabled)
	}
	query += ` ORDER BY id ASC`

	rows, err := t.sqlTx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSchemas(rows)
}

func (t *tx) LatestSchemaOfTopic(ctx context.Context, topicID int64) (*storage.AvroSchema, error) {
	var sc storage.AvroSchema
	var baseSchemaID sql.NullInt64
	err := t.sqlTx.QueryRowContext(ctx,
		`SELECT id, topic_id, avro_schema_json, status, base_schema_id, created_at
		 FROM avro_schemas WHERE topic_id = ? AND status != ? ORDER BY id DESC LIMIT 1`,
		topicID, storage.StatusDisabled).
		Scan(&sc.ID, &sc.TopicID, &sc.AvroSchemaJSON, &sc.Status, &baseSchemaID, &sc.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if baseSchemaID.Valid {
		sc.BaseSchemaID = &baseSchemaID.Int64
	}
	return &sc, nil
}

func (t *tx) InsertSchema(ctx context.Context, avroJSON string, topicID int64, status storage.SchemaStatus, baseSchemaID *int64, elements []*storage.AvroSchemaElement) (*storage.AvroSchema, error) {
	res, err := t.sqlTx.ExecContext(ctx,
		`INSERT INTO avro_schemas (topic_id, avro_schema_json, status, base_schema_id) VALUES (?, ?, ?, ?)`,
		topicID, avroJSON, status, baseSchemaID)
	if err != nil {
		return nil, fmt.Errorf("insert schema: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	row := t.sqlTx.QueryRowContext(ctx,
		`SELECT id, topic_id, avro_schema_json, status, base_schema_id, created_at FROM avro_schemas WHERE id = ?`, id)
	sc, err := scanSchema(row)
	if err != nil {
		return nil, fmt.Errorf("read back inserted schema: %w", err)
	}

	for _, e := range elements {
		if _, err := t.sqlTx.ExecContext(ctx,
			`INSERT INTO avro_schema_elements (avro_schema_id, element_type, key_path, doc) VALUES (?, ?, ?, ?)`,
			sc.ID, e.ElementType, e.Key, e.Doc); err != nil {
			return nil, fmt.Errorf("insert schema element: %w", err)
		}
	}

	return sc, nil
}

func (t *tx) SetSchemaStatus(ctx context.Context, schemaID int64, status storage.SchemaStatus) error {
	_, err := t.sqlTx.ExecContext(ctx, `UPDATE avro_schemas SET status = ? WHERE id = ?`, status, schemaID)
	return err
}

func (t *tx) Commit() error {
	if err := t.sqlTx.Commit(); err != nil {
		if errors.Is(err, sql.ErrTxDone) {
			return storage.ErrTxAlreadyClosed
		}
		return err
	}
	return nil
}

func (t *tx) Rollback() error {
	if err := t.sqlTx.Rollback(); err != nil {
		if errors.Is(err, sql.ErrTxDone) {
			return storage.ErrTxAlreadyClosed
		}
		return err
	}
	return nil
}
