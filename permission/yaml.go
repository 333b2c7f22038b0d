package permission

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// LoadGuardConfigYAML decodes a guard configuration document such as
//
//	routes:
//	  - path: /admin/rbac
//	    permissions: [RBAC:MANAGE]
//	actions:
//	  - id: admin.sku.delete
//	    permissions: [SKU:MANAGE]
//
// An empty document yields an empty GuardConfig.
func LoadGuardConfigYAML(r io.Reader) (GuardConfig, error) {
	var cfg GuardConfig
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return GuardConfig{}, nil
		}
		return GuardConfig{}, fmt.Errorf("%w: %v", ErrInvalidGuardConfig, err)
	}
	return cfg, nil
}
