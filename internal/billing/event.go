// AngelaMos | 2026
// event.go

package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

type EventType string

const (
	EventCheckoutCompleted    EventType = "checkout.session.completed"
	EventInvoicePaid          EventType = "invoice.paid"
	EventInvoicePaymentFailed EventType = "invoice.payment_failed"
	EventSubscriptionUpdated  EventType = "customer.subscription.updated"
	EventSubscriptionDeleted  EventType = "customer.subscription.deleted"
)

// Envelope is the signed payload the provider delivers, at least once,
// possibly concurrently to multiple instances.
type Envelope struct {
	EventID   string          `json:"event_id"   validate:"required,max=255"`
	EventType EventType       `json:"event_type" validate:"required"`
	Payload   json.RawMessage `json:"payload"    validate:"required"`
	Signature string          `json:"signature"  validate:"required"`
}

// Sign computes the envelope signature: hex HMAC-SHA256 over
// eventId "." payload. Binding the event id into the MAC prevents
// replaying a signed payload under a different id.
func Sign(secret, eventID string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(eventID))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func (e *Envelope) VerifySignature(secret string) bool {
	expected, err := hex.DecodeString(e.Signature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(e.EventID))
	mac.Write([]byte("."))
	mac.Write(e.Payload)

	return hmac.Equal(mac.Sum(nil), expected)
}

// Event is the closed set of webhook events this service applies. The
// processor switches over it exhaustively; adding a kind means adding a
// case or the default branch fails the event.
type Event interface {
	Community() string
	isEvent()
}

type CheckoutCompleted struct {
	CommunityID string     `json:"community_id"`
	Tier        Tier       `json:"tier"`
	PeriodStart *time.Time `json:"period_start"`
	PeriodEnd   *time.Time `json:"period_end"`
}

type InvoicePaid struct {
	CommunityID string     `json:"community_id"`
	PeriodStart *time.Time `json:"period_start"`
	PeriodEnd   *time.Time `json:"period_end"`
}

type InvoicePaymentFailed struct {
	CommunityID string `json:"community_id"`
}

type SubscriptionUpdated struct {
	CommunityID string     `json:"community_id"`
	Tier        Tier       `json:"tier"`
	Status      string     `json:"status"`
	PeriodStart *time.Time `json:"period_start"`
	PeriodEnd   *time.Time `json:"period_end"`
}

type SubscriptionDeleted struct {
	CommunityID string `json:"community_id"`
}

func (e CheckoutCompleted) Community() string    { return e.CommunityID }
func (e InvoicePaid) Community() string          { return e.CommunityID }
func (e InvoicePaymentFailed) Community() string { return e.CommunityID }
func (e SubscriptionUpdated) Community() string  { return e.CommunityID }
func (e SubscriptionDeleted) Community() string  { return e.CommunityID }

func (CheckoutCompleted) isEvent()    {}
func (InvoicePaid) isEvent()          {}
func (InvoicePaymentFailed) isEvent() {}
func (SubscriptionUpdated) isEvent()  {}
func (SubscriptionDeleted) isEvent()  {}

// Decode parses the envelope payload into its typed event. Unknown
// event types and payloads without a community id are rejected here,
// before any stateful stage runs.
func (e *Envelope) Decode() (Event, error) {
	var event Event

	switch e.EventType {
	case EventCheckoutCompleted:
		var payload CheckoutCompleted
		if err := json.Unmarshal(e.Payload, &payload); err != nil {
			return nil, fmt.Errorf("decode %s: %w", e.EventType, err)
		}
		if !payload.Tier.Valid() {
			return nil, fmt.Errorf(
				"decode %s: unknown tier %q", e.EventType, payload.Tier,
			)
		}
		event = payload

	case EventInvoicePaid:
		var payload InvoicePaid
		if err := json.Unmarshal(e.Payload, &payload); err != nil {
			return nil, fmt.Errorf("decode %s: %w", e.EventType, err)
		}
		event = payload

	case EventInvoicePaymentFailed:
		var payload InvoicePaymentFailed
		if err := json.Unmarshal(e.Payload, &payload); err != nil {
			return nil, fmt.Errorf("decode %s: %w", e.EventType, err)
		}
		event = payload

	case EventSubscriptionUpdated:
		var payload SubscriptionUpdated
		if err := json.Unmarshal(e.Payload, &payload); err != nil {
			return nil, fmt.Errorf("decode %s: %w", e.EventType, err)
		}
		if !payload.Tier.Valid() {
			return nil, fmt.Errorf(
				"decode %s: unknown tier %q", e.EventType, payload.Tier,
			)
		}
		event = payload

	case EventSubscriptionDeleted:
		var payload SubscriptionDeleted
		if err := json.Unmarshal(e.Payload, &payload); err != nil {
			return nil, fmt.Errorf("decode %s: %w", e.EventType, err)
		}
		event = payload

	default:
		return nil, fmt.Errorf("unknown event type %q", e.EventType)
	}

	if event.Community() == "" {
		return nil, fmt.Errorf("decode %s: missing community_id", e.EventType)
	}

	return event, nil
}
