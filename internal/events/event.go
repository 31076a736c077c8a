// Package events defines domain events and the dispatcher that fans them out
// to registered webhook subscribers.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Kind identifies a domain event type. The set is closed; webhook
// subscriptions are validated against it at registration time.
type Kind string

const (
	KindTaskCreated Kind = "task.created"
	KindTaskUpdated Kind = "task.updated"
	KindTaskDeleted Kind = "task.deleted"
)

// Kinds returns all known event kinds.
func Kinds() []Kind {
	return []Kind{KindTaskCreated, KindTaskUpdated, KindTaskDeleted}
}

// ValidKind reports whether s names a known event kind (exact,
// case-sensitive match).
func ValidKind(s string) bool {
	switch Kind(s) {
	case KindTaskCreated, KindTaskUpdated, KindTaskDeleted:
		return true
	}
	return false
}

// DomainEvent is a notable state change eligible for webhook notification.
// Events are ephemeral: constructed, dispatched, discarded.
type DomainEvent struct {
	Kind       Kind
	OrgID      uuid.UUID
	OccurredAt time.Time
	Data       map[string]interface{}
}

// payload is the canonical JSON body delivered to subscribers.
type payload struct {
	Event          string                 `json:"event"`
	OrganizationID string                 `json:"organizationId"`
	OccurredAt     string                 `json:"occurredAt"`
	Data           map[string]interface{} `json:"data"`
}
