package service

import (
	"errors"
	"net/http"

	"github.com/darmiel/idtoken/internal/core"
)

const defaultAuditLimit = 100

// auditFinder is implemented by auditors that can be queried.
type auditFinder interface {
	Find(filter func(entry core.AuditEntry) bool, limit int) []core.AuditEntry
}

// ListAudits returns the newest audit entries matching query, oldest first.
func (s *AuthService) ListAudits(query AuditQuery) ([]core.AuditEntry, error) {
	finder, ok := s.deps.Auditor.(auditFinder)
	if !ok {
		return nil, httpError(http.StatusNotImplemented,
			errors.New("the configured auditor does not support querying, use the memory auditor"))
	}

	limit := query.Limit
	if limit <= 0 {
		limit = defaultAuditLimit
	}

	return finder.Find(func(entry core.AuditEntry) bool {
		if query.Action != "" && entry.Action != query.Action {
			return false
		}
		if query.Subject != "" && entry.Subject != query.Subject {
			return false
		}
		if query.CorrelationID != "" && entry.ID != query.CorrelationID {
			return false
		}
		if query.Fingerprint != "" && entry.TokenFingerprint != query.Fingerprint {
			return false
		}
		if query.FailedOnly && entry.Success {
			return false
		}
		return true
	}, limit), nil
}
