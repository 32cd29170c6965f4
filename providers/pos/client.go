package pos

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"beanstalker/config"
	"beanstalker/models"

	"github.com/shopspring/decimal"
)

// Client talks to the external POS platform. All credentials come from
// the injected config; nothing is read from the environment here.
type Client struct {
	cfg  config.POSConfig
	http *http.Client
}

func NewClient(cfg config.POSConfig) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// toCents converts a credit amount to the POS minor-unit representation.
func toCents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func orderNote(orderID uint) string {
	return fmt.Sprintf("Bean Stalker order #%d - paid with credits", orderID)
}

// CreateOrder projects a local order into the POS. The idempotency key is
// derived from the order id, so retries for the same order never create a
// duplicate. The local order id is embedded redundantly in the reference
// id, the fulfillment note and every line-item note: the reconciler only
// needs to recover it from one of them.
func (c *Client) CreateOrder(ctx context.Context, order *models.Order, items []models.OrderItem) (string, error) {
	lineItems := make([]map[string]any, 0, len(items))
	for _, item := range items {
		name := item.Name
		if item.Size != "" {
			name = item.Size + " " + name
		}
		if item.Flavor != "" {
			name = name + " (" + item.Flavor + ")"
		}
		lineItems = append(lineItems, map[string]any{
			"name":     name,
			"quantity": strconv.Itoa(item.Quantity),
			"base_price_money": map[string]any{
				"amount":   toCents(item.UnitPrice),
				"currency": "USD",
			},
			"note": orderNote(order.ID),
		})
	}

	payload := map[string]any{
		"idempotency_key": order.Reference(),
		"order": map[string]any{
			"location_id":  c.cfg.LocationID,
			"reference_id": order.Reference(),
			"source":       map[string]any{"name": orderNote(order.ID)},
			"line_items":   lineItems,
			"note":         orderNote(order.ID),
			"fulfillments": []map[string]any{{
				"type":  "PICKUP",
				"state": "PROPOSED",
				"pickup_details": map[string]any{
					"schedule_type": "ASAP",
					"note":          orderNote(order.ID),
				},
			}},
		},
	}

	id, err := c.postOrder(ctx, payload)
	if err == nil {
		return id, nil
	}
	log.Printf("pos: order create failed for %s, retrying with minimal payload: %v", order.Reference(), err)

	// One retry with a raw payload the platform cannot reject for
	// fulfillment-schema reasons; the reference id still carries the
	// correlation marker.
	minimal := map[string]any{
		"idempotency_key": order.Reference(),
		"order": map[string]any{
			"location_id":  c.cfg.LocationID,
			"reference_id": order.Reference(),
			"note":         orderNote(order.ID),
			"line_items":   lineItems,
		},
	}
	return c.postOrder(ctx, minimal)
}

func (c *Client) postOrder(ctx context.Context, payload map[string]any) (string, error) {
	var result struct {
		Order Order `json:"order"`
	}
	if err := c.post(ctx, "/v2/orders", payload, &result); err != nil {
		return "", err
	}
	if result.Order.ID == "" {
		return "", fmt.Errorf("pos returned no order id")
	}
	return result.Order.ID, nil
}

// AttestPayment records the order total against the POS order as an
// externally settled payment, so the kitchen display shows it as paid. It
// is not a charge; the credits were already debited locally.
func (c *Client) AttestPayment(ctx context.Context, posOrderID string, orderID uint, total decimal.Decimal) error {
	payload := map[string]any{
		"idempotency_key": paymentKey(orderID),
		"source_id":       "EXTERNAL",
		"external_details": map[string]any{
			"type":   "OTHER",
			"source": "Bean Stalker credit balance",
		},
		"order_id": posOrderID,
		"amount_money": map[string]any{
			"amount":   toCents(total),
			"currency": "USD",
		},
		"location_id": c.cfg.LocationID,
		"note":        fmt.Sprintf("Bean Stalker order #%d settled from credit balance", orderID),
	}

	var result struct {
		Payment struct {
			ID string `json:"id"`
		} `json:"payment"`
	}
	return c.post(ctx, "/v2/payments", payload, &result)
}

func paymentKey(orderID uint) string {
	return models.OrderReference(orderID) + "-payment"
}

// SearchOrders fetches recent pickup orders for the configured location,
// the polling fallback's feed.
func (c *Client) SearchOrders(ctx context.Context) ([]Order, error) {
	payload := map[string]any{
		"location_ids": []string{c.cfg.LocationID},
		"query": map[string]any{
			"filter": map[string]any{
				"fulfillment_filter": map[string]any{
					"fulfillment_types": []string{"PICKUP"},
				},
			},
			"sort": map[string]any{
				"sort_field": "UPDATED_AT",
				"sort_order": "DESC",
			},
		},
		"limit": 50,
	}

	var result struct {
		Orders []Order `json:"orders"`
	}
	if err := c.post(ctx, "/v2/orders/search", payload, &result); err != nil {
		return nil, err
	}
	return result.Orders, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("pos request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read pos response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("pos %s returned status %d: %s", path, resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode pos response: %w", err)
		}
	}
	return nil
}
