package webhooks

import (
	"time"

	"github.com/google/uuid"
)

// Subscription represents one registered webhook endpoint for an organization.
// The secret is generated once at creation and never re-derivable; it is
// returned in plaintext only at creation time and on an explicit reveal.
type Subscription struct {
	ID        uuid.UUID `db:"id"`
	OrgID     uuid.UUID `db:"org_id"`
	URL       string    `db:"url"`
	Secret    string    `db:"secret"`
	Events    []string  `db:"events"`
	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// SubscriptionInfo is the API representation of a subscription with the
// secret masked.
type SubscriptionInfo struct {
	ID           uuid.UUID `json:"id"`
	OrgID        uuid.UUID `json:"org_id"`
	URL          string    `json:"url"`
	MaskedSecret string    `json:"masked_secret"`
	Events       []string  `json:"events"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// Info returns the subscription with its secret masked.
func (s *Subscription) Info() SubscriptionInfo {
	return SubscriptionInfo{
		ID:           s.ID,
		OrgID:        s.OrgID,
		URL:          s.URL,
		MaskedSecret: MaskSecret(s.Secret),
		Events:       s.Events,
		IsActive:     s.IsActive,
		CreatedAt:    s.CreatedAt,
	}
}
