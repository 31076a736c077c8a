package webhooks

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/orgaflow/orgaflow/internal/events"
)

var (
	// ErrSubscriptionNotFound is returned when a subscription is not found
	ErrSubscriptionNotFound = errors.New("webhook subscription not found")

	// ErrInvalidURL is returned for a target URL that is not http(s)
	ErrInvalidURL = errors.New("webhook URL must be a valid http or https URL")

	// ErrInvalidEventKind is returned for an event kind outside the closed set
	ErrInvalidEventKind = errors.New("unknown event kind")

	// ErrNoEventKinds is returned when a registration subscribes to nothing
	ErrNoEventKinds = errors.New("at least one event kind is required")
)

// Service provides webhook registry operations. Authorization is the
// caller's concern: every entry point expects a Guard-checked organization.
type Service struct {
	pool *pgxpool.Pool
}

// NewService creates a new webhook registry service
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

// ValidateTarget checks the registration inputs against the URL rules and
// the closed event-kind set.
func ValidateTarget(rawURL string, kinds []string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return ErrInvalidURL
	}
	if len(rawURL) > 500 {
		return ErrInvalidURL
	}

	if len(kinds) == 0 {
		return ErrNoEventKinds
	}
	for _, kind := range kinds {
		if !events.ValidKind(kind) {
			return fmt.Errorf("%w: %q (known kinds: %v)", ErrInvalidEventKind, kind, events.Kinds())
		}
	}
	return nil
}

// Register creates a subscription with a freshly generated secret. The
// returned subscription carries the plaintext secret; this is the only time
// it is produced implicitly.
func (s *Service) Register(ctx context.Context, orgID uuid.UUID, rawURL string, kinds []string) (*Subscription, error) {
	if err := ValidateTarget(rawURL, kinds); err != nil {
		return nil, err
	}

	// Deduplicate kinds, keeping deterministic storage order.
	seen := make(map[string]bool, len(kinds))
	unique := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		if !seen[kind] {
			seen[kind] = true
			unique = append(unique, kind)
		}
	}
	sort.Strings(unique)

	secret, err := GenerateSecret()
	if err != nil {
		return nil, err
	}

	var sub Subscription
	err = s.pool.QueryRow(ctx, `
		INSERT INTO webhooks (org_id, url, secret, events)
		VALUES ($1, $2, $3, $4)
		RETURNING id, org_id, url, secret, events, is_active, created_at, updated_at
	`, orgID, rawURL, secret, unique).Scan(
		&sub.ID,
		&sub.OrgID,
		&sub.URL,
		&sub.Secret,
		&sub.Events,
		&sub.IsActive,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register webhook: %w", err)
	}

	return &sub, nil
}

// GetByID retrieves a subscription by ID
func (s *Service) GetByID(ctx context.Context, subscriptionID uuid.UUID) (*Subscription, error) {
	var sub Subscription
	err := s.pool.QueryRow(ctx, `
		SELECT id, org_id, url, secret, events, is_active, created_at, updated_at
		FROM webhooks
		WHERE id = $1
	`, subscriptionID).Scan(
		&sub.ID,
		&sub.OrgID,
		&sub.URL,
		&sub.Secret,
		&sub.Events,
		&sub.IsActive,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("failed to get webhook: %w", err)
	}
	return &sub, nil
}

// List retrieves all subscriptions for an organization in insertion order,
// secrets included; callers mask before serializing unless the action was an
// explicit reveal.
func (s *Service) List(ctx context.Context, orgID uuid.UUID) ([]Subscription, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, org_id, url, secret, events, is_active, created_at, updated_at
		FROM webhooks
		WHERE org_id = $1
		ORDER BY created_at ASC
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhooks: %w", err)
	}
	defer rows.Close()

	var subs []Subscription
	for rows.Next() {
		var sub Subscription
		err := rows.Scan(
			&sub.ID,
			&sub.OrgID,
			&sub.URL,
			&sub.Secret,
			&sub.Events,
			&sub.IsActive,
			&sub.CreatedAt,
			&sub.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan webhook: %w", err)
		}
		subs = append(subs, sub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating webhook rows: %w", err)
	}

	return subs, nil
}

// SetActive toggles a subscription's active flag. The active flag is the
// only mutable field of a subscription.
func (s *Service) SetActive(ctx context.Context, subscriptionID uuid.UUID, active bool) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE webhooks
		SET is_active = $2, updated_at = NOW()
		WHERE id = $1
	`, subscriptionID, active)
	if err != nil {
		return fmt.Errorf("failed to update webhook: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

// Delete removes a subscription
func (s *Service) Delete(ctx context.Context, subscriptionID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM webhooks
		WHERE id = $1
	`, subscriptionID)
	if err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

// Matching returns delivery endpoints for the organization's active
// subscriptions whose event-kind set contains the kind. Implements
// events.SubscriberSource.
func (s *Service) Matching(ctx context.Context, orgID uuid.UUID, kind events.Kind) ([]events.Endpoint, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, url, secret
		FROM webhooks
		WHERE org_id = $1
		  AND is_active = TRUE
		  AND $2 = ANY(events)
		ORDER BY created_at ASC
	`, orgID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to match webhooks: %w", err)
	}
	defer rows.Close()

	var endpoints []events.Endpoint
	for rows.Next() {
		var endpoint events.Endpoint
		if err := rows.Scan(&endpoint.ID, &endpoint.URL, &endpoint.Secret); err != nil {
			return nil, fmt.Errorf("failed to scan webhook endpoint: %w", err)
		}
		endpoints = append(endpoints, endpoint)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating webhook endpoints: %w", err)
	}

	return endpoints, nil
}
