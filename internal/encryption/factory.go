package encryption

import (
	"fmt"

	"modmap/internal/config"
	"modmap/internal/modmap"
)

// NewEncryptorFromConfig creates an Encryptor based on the config type.
// An empty type disables encryption and returns nil.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (modmap.Encryptor, error) {
	switch cfg.Type {
	case "":
		return nil, nil
	case "age":
		return NewAgeEncryptor(cfg), nil
	case "test":
		return NewTestEncryptor(), nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
