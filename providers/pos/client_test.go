package pos

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"beanstalker/config"
	"beanstalker/models"

	"github.com/shopspring/decimal"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient(config.POSConfig{
		BaseURL:     srv.URL,
		AccessToken: "test-token",
		LocationID:  "LOC1",
		Timeout:     2 * time.Second,
	})
	return client, srv
}

func sampleOrder() (*models.Order, []models.OrderItem) {
	items := []models.OrderItem{
		{Name: "Latte", Quantity: 2, UnitPrice: decimal.RequireFromString("6.25"), Size: "Large", Flavor: "Vanilla"},
	}
	order := &models.Order{Total: decimal.RequireFromString("12.50")}
	order.ID = 42
	return order, items
}

func TestCreateOrderEmbedsCorrelationEverywhere(t *testing.T) {
	var captured map[string]any
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/orders" {
			t.Errorf("path = %s, want /v2/orders", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("authorization = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{"order": map[string]any{"id": "pos-abc"}})
	}))

	order, items := sampleOrder()
	id, err := client.CreateOrder(context.Background(), order, items)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if id != "pos-abc" {
		t.Errorf("pos order id = %q, want pos-abc", id)
	}

	if captured["idempotency_key"] != "bs-order-42" {
		t.Errorf("idempotency_key = %v, want bs-order-42", captured["idempotency_key"])
	}

	ext := captured["order"].(map[string]any)
	if ext["reference_id"] != "bs-order-42" {
		t.Errorf("reference_id = %v", ext["reference_id"])
	}
	if ext["location_id"] != "LOC1" {
		t.Errorf("location_id = %v", ext["location_id"])
	}
	if note, _ := ext["note"].(string); !strings.Contains(note, "order #42") {
		t.Errorf("order note %q does not embed the local id", note)
	}

	lines := ext["line_items"].([]any)
	if len(lines) != 1 {
		t.Fatalf("line items = %d, want 1", len(lines))
	}
	line := lines[0].(map[string]any)
	if line["name"] != "Large Latte (Vanilla)" {
		t.Errorf("line name = %v", line["name"])
	}
	if line["quantity"] != "2" {
		t.Errorf("line quantity = %v, want \"2\"", line["quantity"])
	}
	money := line["base_price_money"].(map[string]any)
	if money["amount"].(float64) != 625 {
		t.Errorf("unit price cents = %v, want 625", money["amount"])
	}
	if note, _ := line["note"].(string); !strings.Contains(note, "order #42") {
		t.Errorf("line note %q does not embed the local id", note)
	}

	fulfillments := ext["fulfillments"].([]any)
	pickup := fulfillments[0].(map[string]any)["pickup_details"].(map[string]any)
	if note, _ := pickup["note"].(string); !strings.Contains(note, "order #42") {
		t.Errorf("fulfillment note %q does not embed the local id", note)
	}
}

func TestCreateOrderRetriesWithMinimalPayload(t *testing.T) {
	var calls int
	var second map[string]any
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			// the platform rejects the fulfillment schema
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"errors":[{"code":"INVALID_FULFILLMENT"}]}`))
			return
		}
		json.NewDecoder(r.Body).Decode(&second)
		json.NewEncoder(w).Encode(map[string]any{"order": map[string]any{"id": "pos-retry"}})
	}))

	order, items := sampleOrder()
	id, err := client.CreateOrder(context.Background(), order, items)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if id != "pos-retry" {
		t.Errorf("pos order id = %q", id)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}

	// retry keeps the same idempotency key and drops the fulfillment block
	if second["idempotency_key"] != "bs-order-42" {
		t.Errorf("retry idempotency_key = %v, want bs-order-42", second["idempotency_key"])
	}
	ext := second["order"].(map[string]any)
	if _, has := ext["fulfillments"]; has {
		t.Errorf("retry payload still carries fulfillments")
	}
	if ext["reference_id"] != "bs-order-42" {
		t.Errorf("retry lost the reference id: %v", ext["reference_id"])
	}
}

func TestCreateOrderGivesUpAfterRetry(t *testing.T) {
	var calls int
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))

	order, items := sampleOrder()
	if _, err := client.CreateOrder(context.Background(), order, items); err == nil {
		t.Fatalf("expected error")
	}
	if calls != 2 {
		t.Errorf("calls = %d, want exactly 2 (no unbounded retry)", calls)
	}
}

func TestAttestPaymentPayload(t *testing.T) {
	var captured map[string]any
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/payments" {
			t.Errorf("path = %s, want /v2/payments", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&captured)
		json.NewEncoder(w).Encode(map[string]any{"payment": map[string]any{"id": "pay-1"}})
	}))

	err := client.AttestPayment(context.Background(), "pos-abc", 42, decimal.RequireFromString("37.50"))
	if err != nil {
		t.Fatalf("attest payment: %v", err)
	}

	if captured["order_id"] != "pos-abc" {
		t.Errorf("order_id = %v", captured["order_id"])
	}
	if captured["source_id"] != "EXTERNAL" {
		t.Errorf("source_id = %v, want EXTERNAL", captured["source_id"])
	}
	money := captured["amount_money"].(map[string]any)
	if money["amount"].(float64) != 3750 {
		t.Errorf("amount cents = %v, want 3750", money["amount"])
	}
	if note, _ := captured["note"].(string); !strings.Contains(note, "credit balance") {
		t.Errorf("payment note %q does not identify credit settlement", note)
	}
	if captured["idempotency_key"] != "bs-order-42-payment" {
		t.Errorf("idempotency_key = %v", captured["idempotency_key"])
	}
}

func TestSearchOrdersFiltersLocationAndPickup(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/orders/search" {
			t.Errorf("path = %s, want /v2/orders/search", r.URL.Path)
		}
		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)
		locations := req["location_ids"].([]any)
		if len(locations) != 1 || locations[0] != "LOC1" {
			t.Errorf("location_ids = %v", locations)
		}
		json.NewEncoder(w).Encode(map[string]any{"orders": []map[string]any{
			{"id": "ext-1", "reference_id": "bs-order-5", "fulfillments": []map[string]any{{"type": "PICKUP", "state": "PREPARED"}}},
		}})
	}))

	orders, err := client.SearchOrders(context.Background())
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("orders = %d, want 1", len(orders))
	}
	if orders[0].FulfillmentState() != "PREPARED" {
		t.Errorf("fulfillment state = %q", orders[0].FulfillmentState())
	}
}

func TestWebhookEnvelopeToleratesAmountShapes(t *testing.T) {
	raw := `{
		"event_id": "evt-9",
		"type": "order.updated",
		"data": {"type": "order", "id": "ext-9", "object": {"order_updated": {
			"id": "ext-9",
			"reference_id": "bs-order-3",
			"line_items": [
				{"name": "Latte", "quantity": "1", "base_price_money": {"amount": "625", "currency": "USD"}},
				{"name": "Mocha", "quantity": "1", "base_price_money": {"amount": 700, "currency": "USD"}}
			]
		}}}
	}`

	var envelope WebhookEnvelope
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	ext := envelope.EmbeddedOrder()
	if ext == nil {
		t.Fatalf("no embedded order")
	}
	if ext.LineItems[0].BasePriceMoney.Amount.Int64() != 625 {
		t.Errorf("string amount = %d, want 625", ext.LineItems[0].BasePriceMoney.Amount.Int64())
	}
	if ext.LineItems[1].BasePriceMoney.Amount.Int64() != 700 {
		t.Errorf("numeric amount = %d, want 700", ext.LineItems[1].BasePriceMoney.Amount.Int64())
	}

	id, strategy, ok := CorrelateOrderID(ext)
	if !ok || id != 3 {
		t.Errorf("correlate = (%d, %s, %v), want (3, reference-id, true)", id, strategy, ok)
	}
}
