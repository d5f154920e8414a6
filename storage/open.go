package storage

import (
	"fmt"
	"log/slog"
)

// Open returns the KV backend named by driver: "memory", "file" or "sqlite"
func Open(driver, path string, logger *slog.Logger) (KV, error) {
	switch driver {
	case "", "memory":
		return NewMemoryKV(), nil
	case "file":
		return NewFileKV(path, logger)
	case "sqlite":
		return NewSQLiteKV(path, logger)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
