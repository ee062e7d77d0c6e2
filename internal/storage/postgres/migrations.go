// Package postgres provides a PostgreSQL implementation of the storage port.
package postgres

// migrations contains the database schema migrations, applied in order.
// Every statement is idempotent so startup can run the full list against an
// already-migrated database.
var migrations = []string{
	// Migration 1: Domain — the (namespace, source) logical stream identity.
	`CREATE TABLE IF NOT EXISTS domains (
		id BIGSERIAL PRIMARY KEY,
		namespace VARCHAR(255) NOT NULL,
		source VARCHAR(255) NOT NULL,
		owner_email VARCHAR(255) NOT NULL,
		UNIQUE (namespace, source)
	)`,

	// Migration 2: Topic — a named compatibility group inside a Domain.
	`CREATE TABLE IF NOT EXISTS topics (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(512) NOT NULL UNIQUE,
		domain_id BIGINT NOT NULL REFERENCES domains(id)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_topics_domain_id ON topics(domain_id)`,

	// Migration 3: AvroSchema — a registered schema version within a Topic.
	`CREATE TABLE IF NOT EXISTS avro_schemas (
		id BIGSERIAL PRIMARY KEY,
		topic_id BIGINT NOT NULL REFERENCES topics(id),
		avro_schema_json TEXT NOT NULL,
		status VARCHAR(32) NOT NULL DEFAULT 'ReadAndWrite',
		base_schema_id BIGINT REFERENCES avro_schemas(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_avro_schemas_topic_id ON avro_schemas(topic_id, id)`,

	// Migration 4: AvroSchemaElement — flattened record/field/enum nodes.
	`CREATE TABLE IF NOT EXISTS avro_schema_elements (
		id BIGSERIAL PRIMARY KEY,
		avro_schema_id BIGINT NOT NULL REFERENCES avro_schemas(id),
		element_type VARCHAR(32) NOT NULL,
		key VARCHAR(1024) NOT NULL,
		doc TEXT
	)`,

	`CREATE INDEX IF NOT EXISTS idx_avro_schema_elements_schema_id ON avro_schema_elements(avro_schema_id)`,
}
