package mirror

import (
	"fmt"

	"modmap/internal/config"
	"modmap/internal/modmap"
)

// NewMirrorFromConfig creates a Mirror based on the config type.
// An empty type disables mirroring and returns nil.
func NewMirrorFromConfig(cfg config.MirrorConfig) (modmap.Mirror, error) {
	switch cfg.Type {
	case "":
		return nil, nil
	case "memory":
		return NewMemoryMirror(), nil
	case "s3":
		return NewS3Mirror(cfg)
	default:
		return nil, fmt.Errorf("unknown mirror type: %s", cfg.Type)
	}
}
