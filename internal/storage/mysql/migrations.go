// Package mysql provides a MySQL implementation of the storage port.
package mysql

// migrations contains the database schema migrations, applied in order.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS domains (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		namespace VARCHAR(255) NOT NULL,
		source VARCHAR(255) NOT NULL,
		owner_email VARCHAR(255) NOT NULL,
		UNIQUE KEY idx_domains_namespace_source (namespace, source)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS topics (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(512) NOT NULL,
		domain_id BIGINT NOT NULL,
		UNIQUE KEY idx_topics_name (name),
		FOREIGN KEY (domain_id) REFERENCES domains(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE INDEX idx_topics_domain_id ON topics(domain_id)`,

	`CREATE TABLE IF NOT EXISTS avro_schemas (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		topic_id BIGINT NOT NULL,
		avro_schema_json MEDIUMTEXT NOT NULL,
		status VARCHAR(32) NOT NULL DEFAULT 'ReadAndWrite',
		base_schema_id BIGINT,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (topic_id) REFERENCES topics(id),
		FOREIGN KEY (base_schema_id) REFERENCES avro_schemas(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE INDEX idx_avro_schemas_topic_id ON avro_schemas(topic_id, id)`,

	`CREATE TABLE IF NOT EXISTS avro_schema_elements (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		avro_schema_id BIGINT NOT NULL,
		element_type VARCHAR(32) NOT NULL,
		key_path VARCHAR(1024) NOT NULL,
		doc TEXT,
		FOREIGN KEY (avro_schema_id) REFERENCES avro_schemas(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE INDEX idx_avro_schema_elements_schema_id ON avro_schema_elements(avro_schema_id)`,
}
