package kv

import (
	"fmt"

	"github.com/farhanzaki/apotekgo/config"
	"github.com/farhanzaki/apotekgo/internal/domain"
)

// NewStore builds the KVStore selected by configuration.
func NewStore(cfg config.StorageConfig) (domain.KVStore, error) {
	switch cfg.Driver {
	case "memory":
		return NewMemoryStore(), nil
	case "pebble":
		return NewPebbleStore(cfg.Path)
	case "sqlite":
		return NewSQLiteStore(cfg.Path)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}
