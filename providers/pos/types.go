package pos

import (
	"beanstalker/models"
)

// Wire types for the external POS platform. Inbound payloads are
// untrusted: amounts arrive as numbers or strings depending on event
// version, and any field may be absent.

type Money struct {
	Amount   models.FlexibleInt `json:"amount"`
	Currency string             `json:"currency"`
}

type LineItem struct {
	UID            string `json:"uid,omitempty"`
	Name           string `json:"name"`
	Quantity       string `json:"quantity"`
	BasePriceMoney Money  `json:"base_price_money"`
	Note           string `json:"note,omitempty"`
}

type PickupDetails struct {
	Note              string `json:"note,omitempty"`
	ScheduleType      string `json:"schedule_type,omitempty"`
	RecipientName     string `json:"recipient_display_name,omitempty"`
	PlacedAt          string `json:"placed_at,omitempty"`
	PickupWindowStart string `json:"pickup_at,omitempty"`
}

type Fulfillment struct {
	UID           string        `json:"uid,omitempty"`
	Type          string        `json:"type"`
	State         string        `json:"state"`
	PickupDetails PickupDetails `json:"pickup_details"`
}

type Source struct {
	Name string `json:"name,omitempty"`
}

type Order struct {
	ID           string        `json:"id"`
	LocationID   string        `json:"location_id,omitempty"`
	ReferenceID  string        `json:"reference_id,omitempty"`
	Note         string        `json:"note,omitempty"`
	State        string        `json:"state,omitempty"`
	Source       Source        `json:"source"`
	LineItems    []LineItem    `json:"line_items,omitempty"`
	Fulfillments []Fulfillment `json:"fulfillments,omitempty"`
	UpdatedAt    string        `json:"updated_at,omitempty"`
}

// FulfillmentState returns the state of the first fulfillment, falling
// back to the order-level state when no fulfillment is present.
func (o *Order) FulfillmentState() string {
	for _, f := range o.Fulfillments {
		if f.State != "" {
			return f.State
		}
	}
	return o.State
}

// WebhookEnvelope is the outermost shape of a POS event delivery. Only
// the embedded order object matters to the reconciler; everything else is
// carried for logging.
type WebhookEnvelope struct {
	EventID string `json:"event_id"`
	Type    string `json:"type"`
	Data    struct {
		Type   string `json:"type"`
		ID     string `json:"id"`
		Object struct {
			Order        *Order `json:"order,omitempty"`
			OrderCreated *Order `json:"order_created,omitempty"`
			OrderUpdated *Order `json:"order_updated,omitempty"`
		} `json:"object"`
	} `json:"data"`
}

// EmbeddedOrder digs the order object out of whichever key this event
// version used, or nil when the envelope carries none.
func (e *WebhookEnvelope) EmbeddedOrder() *Order {
	switch {
	case e.Data.Object.Order != nil:
		return e.Data.Object.Order
	case e.Data.Object.OrderUpdated != nil:
		return e.Data.Object.OrderUpdated
	case e.Data.Object.OrderCreated != nil:
		return e.Data.Object.OrderCreated
	}
	return nil
}
