package billing

import (
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v81/webhook"
)

// InboundEvent is a verified webhook event, normalized across providers.
// Payload carries the raw request body so the event can be re-interpreted
// later from the durable inbox without the original HTTP request.
type InboundEvent struct {
	Provider   string
	ExternalID string
	Type       string
	Payload    []byte
	Signature  string
	Timestamp  time.Time
}

// WebhookVerifier authenticates an inbound webhook request for one provider
type WebhookVerifier interface {
	// Provider returns the provider name this verifier handles
	Provider() string

	// Verify checks the payload signature and returns the normalized event.
	// An error means the request must be rejected before anything is persisted.
	Verify(payload []byte, signature string) (*InboundEvent, error)
}

// VerifierRegistry dispatches webhook verification by provider name
type VerifierRegistry struct {
	verifiers map[string]WebhookVerifier
}

// NewVerifierRegistry creates a registry with the given verifiers
func NewVerifierRegistry(verifiers ...WebhookVerifier) *VerifierRegistry {
	r := &VerifierRegistry{verifiers: make(map[string]WebhookVerifier)}
	for _, v := range verifiers {
		r.verifiers[v.Provider()] = v
	}
	return r
}

// Get returns the verifier for a provider
func (r *VerifierRegistry) Get(provider string) (WebhookVerifier, error) {
	v, ok := r.verifiers[provider]
	if !ok {
		return nil, fmt.Errorf("billing: no webhook verifier registered for provider %q", provider)
	}
	return v, nil
}

// StripeWebhookVerifier verifies Stripe webhook signatures using the
// endpoint's signing secret
type StripeWebhookVerifier struct {
	webhookSecret string
}

// NewStripeWebhookVerifier creates a Stripe webhook verifier
func NewStripeWebhookVerifier(webhookSecret string) *StripeWebhookVerifier {
	return &StripeWebhookVerifier{webhookSecret: webhookSecret}
}

// Provider returns "stripe"
func (v *StripeWebhookVerifier) Provider() string {
	return "stripe"
}

// Verify checks the Stripe-Signature header against the payload. Events
// carry the API version the Stripe account is pinned to, which need not match
// the SDK's pinned version; that mismatch says nothing about authenticity.
func (v *StripeWebhookVerifier) Verify(payload []byte, signature string) (*InboundEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, v.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("stripe: webhook signature verification failed: %w", err)
	}

	return &InboundEvent{
		Provider:   v.Provider(),
		ExternalID: event.ID,
		Type:       string(event.Type),
		Payload:    payload,
		Signature:  signature,
		Timestamp:  time.Unix(event.Created, 0),
	}, nil
}
