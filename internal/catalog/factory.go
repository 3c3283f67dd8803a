package catalog

import (
	"fmt"

	"modmap/internal/config"
	"modmap/internal/modmap"
)

// NewCatalogFromConfig creates a Catalog based on the config type.
// An empty type disables the catalog and returns nil.
func NewCatalogFromConfig(cfg config.CatalogConfig) (modmap.Catalog, error) {
	switch cfg.Type {
	case "":
		return nil, nil
	case "memory":
		return NewMemoryCatalog(), nil
	case "sqlite":
		if cfg.Path == "" {
			return nil, fmt.Errorf("sqlite catalog requires path to be set")
		}
		return NewSQLiteCatalog(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown catalog type: %s", cfg.Type)
	}
}
