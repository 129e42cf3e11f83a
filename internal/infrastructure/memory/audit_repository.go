package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/negotiation-hub/negotiation-hub/internal/domain/audit"
)

// AuditRepository implements audit.Repository.
type AuditRepository struct {
	mu   sync.RWMutex
	logs []*audit.AuditLog
}

func NewAuditRepository() *AuditRepository {
	return &AuditRepository{}
}

func (r *AuditRepository) Create(ctx context.Context, entry *audit.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = int64(len(r.logs) + 1)
	c := *entry
	r.logs = append(r.logs, &c)
	return nil
}

func (r *AuditRepository) GetByID(ctx context.Context, auditID uuid.UUID) (*audit.AuditLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, l := range r.logs {
		if l.AuditID == auditID {
			c := *l
			return &c, nil
		}
	}
	return nil, nil
}

func (r *AuditRepository) Query(ctx context.Context, filter audit.QueryFilter, cursor *audit.Cursor, limit int) ([]*audit.AuditLog, *audit.Cursor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matched []*audit.AuditLog
	for _, l := range r.logs {
		if !matchesAudit(l, filter) {
			continue
		}
		if cursor != nil && !before(l, cursor) {
			continue
		}
		c := *l
		matched = append(matched, &c)
	}
	sortNewestFirst(matched)
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	var next *audit.Cursor
	if limit > 0 && len(matched) == limit {
		last := matched[len(matched)-1]
		next = &audit.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return matched, next, nil
}

func (r *AuditRepository) GetByEntityID(ctx context.Context, entityType audit.EntityType, entityID string) ([]*audit.AuditLog, error) {
	return r.queryAll(audit.QueryFilter{EntityType: &entityType, EntityID: &entityID}), nil
}

func (r *AuditRepository) queryAll(filter audit.QueryFilter) []*audit.AuditLog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*audit.AuditLog{}
	for _, l := range r.logs {
		if matchesAudit(l, filter) {
			c := *l
			out = append(out, &c)
		}
	}
	sortNewestFirst(out)
	return out
}

func matchesAudit(l *audit.AuditLog, f audit.QueryFilter) bool {
	switch {
	case f.EntityType != nil && l.EntityType != *f.EntityType:
		return false
	case f.EntityID != nil && l.EntityID != *f.EntityID:
		return false
	case f.Action != nil && l.Action != *f.Action:
		return false
	case f.Actor != nil && l.Actor != *f.Actor:
		return false
	case f.RiskLevel != nil && l.RiskLevel != *f.RiskLevel:
		return false
	case f.StartTime != nil && l.CreatedAt.Before(*f.StartTime):
		return false
	case f.EndTime != nil && l.CreatedAt.After(*f.EndTime):
		return false
	}
	for _, tag := range f.Tags {
		if !containsString(l.Tags, tag) {
			return false
		}
	}
	return true
}

func before(l *audit.AuditLog, c *audit.Cursor) bool {
	if l.CreatedAt.Equal(c.CreatedAt) {
		return l.ID < c.ID
	}
	return l.CreatedAt.Before(c.CreatedAt)
}

func sortNewestFirst(logs []*audit.AuditLog) {
	sort.Slice(logs, func(i, j int) bool {
		if logs[i].CreatedAt.Equal(logs[j].CreatedAt) {
			return logs[i].ID > logs[j].ID
		}
		return logs[i].CreatedAt.After(logs[j].CreatedAt)
	})
}

func containsString(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
