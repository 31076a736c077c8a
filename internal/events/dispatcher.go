package events

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const userAgent = "OrgaFlow-Webhook/1.0"

// Endpoint is a dispatcher's view of one active, matching subscriber.
type Endpoint struct {
	ID     uuid.UUID
	URL    string
	Secret string
}

// SubscriberSource returns the active subscribers of an organization whose
// event-kind set contains the given kind.
type SubscriberSource interface {
	Matching(ctx context.Context, orgID uuid.UUID, kind Kind) ([]Endpoint, error)
}

// Dispatcher delivers signed domain-event payloads to webhook subscribers.
// Delivery is fire-and-forget and at-most-once: the triggering request never
// blocks on it, failures are logged and discarded, and no retry happens.
type Dispatcher struct {
	subs    SubscriberSource
	client  *http.Client
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewDispatcher creates a dispatcher with the given per-endpoint timeout.
func NewDispatcher(subs SubscriberSource, timeoutMS int) *Dispatcher {
	timeout := time.Duration(timeoutMS) * time.Millisecond
	return &Dispatcher{
		subs:    subs,
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

// Publish hands the event to the dispatch worker and returns immediately.
// The caller's mutation has already committed; nothing that happens here can
// roll it back or fail it.
func (d *Dispatcher) Publish(event DomainEvent) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.dispatch(event)
	}()
}

// Close waits for in-flight deliveries to finish.
func (d *Dispatcher) Close() {
	d.wg.Wait()
}

func (d *Dispatcher) dispatch(event DomainEvent) {
	// One canonical body per event; each subscriber signs the same bytes
	// with its own secret.
	body, err := json.Marshal(payload{
		Event:          string(event.Kind),
		OrganizationID: event.OrgID.String(),
		OccurredAt:     event.OccurredAt.UTC().Format(time.RFC3339),
		Data:           event.Data,
	})
	if err != nil {
		log.Warn().
			Err(err).
			Str("event", string(event.Kind)).
			Str("org_id", event.OrgID.String()).
			Msg("Failed to marshal webhook payload")
		return
	}

	// Dispatch is detached from the triggering request, so the lookup gets
	// its own bounded context.
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	endpoints, err := d.subs.Matching(ctx, event.OrgID, event.Kind)
	if err != nil {
		log.Warn().
			Err(err).
			Str("event", string(event.Kind)).
			Str("org_id", event.OrgID.String()).
			Msg("Failed to load webhook subscribers")
		return
	}
	if len(endpoints) == 0 {
		return
	}

	// Each subscriber is delivered to independently; one failure or timeout
	// never affects the others.
	var wg sync.WaitGroup
	for _, endpoint := range endpoints {
		wg.Add(1)
		go func(endpoint Endpoint) {
			defer wg.Done()
			d.deliver(endpoint, event, body)
		}(endpoint)
	}
	wg.Wait()
}

// deliver issues a single signed POST to one subscriber. It never returns
// errors to the caller; all failures are logged at WARN level and discarded.
func (d *Dispatcher) deliver(endpoint Endpoint, event DomainEvent, body []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.URL, bytes.NewReader(body))
	if err != nil {
		log.Warn().
			Err(err).
			Str("webhook_id", endpoint.ID.String()).
			Str("event", string(event.Kind)).
			Msg("Failed to create webhook request")
		return
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set(SignatureHeader, Sign(body, endpoint.Secret))

	resp, err := d.client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			log.Warn().
				Err(err).
				Str("webhook_id", endpoint.ID.String()).
				Str("event", string(event.Kind)).
				Dur("timeout", d.timeout).
				Msg("Webhook delivery timed out")
		} else {
			log.Warn().
				Err(err).
				Str("webhook_id", endpoint.ID.String()).
				Str("event", string(event.Kind)).
				Msg("Webhook delivery failed")
		}
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Warn().
			Int("status_code", resp.StatusCode).
			Str("webhook_id", endpoint.ID.String()).
			Str("event", string(event.Kind)).
			Msg("Webhook endpoint returned non-2xx status")
		return
	}

	log.Info().
		Str("webhook_id", endpoint.ID.String()).
		Str("event", string(event.Kind)).
		Str("org_id", event.OrgID.String()).
		Msg("Webhook delivered")
}
