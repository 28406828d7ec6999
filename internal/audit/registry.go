package audit

import (
	"fmt"

	"github.com/darmiel/idtoken/internal/config"
	"github.com/darmiel/idtoken/internal/core"
)

// Build creates the auditor selected by cfg. Disabled auditing yields a NoopAuditor.
func Build(cfg config.AuditConfig) (core.Auditor, error) {
	if !cfg.Enabled {
		return NewNoopAuditor(), nil
	}
	switch cfg.Type {
	case config.AuditTypeNoop:
		return NewNoopAuditor(), nil
	case "", config.AuditTypeMemory:
		return NewInMemoryAuditor(cfg.Capacity), nil
	case config.AuditTypeFile:
		return NewFileAuditor(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown audit type %q", cfg.Type)
	}
}
