// Package backend selects and opens one of this repo's storage
// implementations. Unlike a plugin host that must support backends it knows
// nothing about, this repo's backend set is closed at three — memory,
// Postgres, MySQL — so Open is a plain switch rather than a runtime
// registration table: every case lives here, in the same file, typed
// against each backend's own Config rather than a generic
// map[string]interface{}.
package backend

import (
	"fmt"

	"github.com/dikang123/schematizer/internal/storage"
	"github.com/dikang123/schematizer/internal/storage/memory"
	"github.com/dikang123/schematizer/internal/storage/mysql"
	"github.com/dikang123/schematizer/internal/storage/postgres"
)

// Kind identifies which storage implementation to open.
type Kind string

const (
	Memory   Kind = "memory"
	Postgres Kind = "postgres"
	MySQL    Kind = "mysql"
)

// Config carries the settings for whichever backend Kind selects; only the
// field matching Kind is read.
type Config struct {
	Kind     Kind
	Postgres postgres.Config
	MySQL    mysql.Config
}

// Open constructs the Store for cfg.Kind. Memory ignores cfg entirely.
func Open(cfg Config) (storage.Store, error) {
	switch cfg.Kind {
	case Memory:
		return memory.NewStore(), nil
	case Postgres:
		return postgres.NewStore(cfg.Postgres)
	case MySQL:
		return mysql.NewStore(cfg.MySQL)
	default:
		return nil, fmt.Errorf("backend: unknown storage kind %q", cfg.Kind)
	}
}
