package services

import (
	"context"
	"errors"
	"testing"

	"beanstalker/models"
)

func newMirrorFixture(t *testing.T) (*MirrorService, *OrderService, *fakeGateway, *models.User) {
	t.Helper()
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	gateway := newFakeGateway()
	mirror := NewMirrorService(db, gateway)
	orders := NewOrderService(db, ledger, &recordingNotifier{}, &recordingScheduler{})
	user := newUser(t, db, "alice", "100", false)
	return mirror, orders, gateway, user
}

func TestMirrorRecordsExternalOrder(t *testing.T) {
	mirror, orders, gateway, user := newMirrorFixture(t)
	ctx := context.Background()

	order, err := orders.CreateOrder(ctx, user.ID, []models.OrderItem{latte(2)})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	posOrderID, err := mirror.Mirror(ctx, order.ID)
	if err != nil {
		t.Fatalf("mirror: %v", err)
	}
	if posOrderID == "" {
		t.Fatalf("empty pos order id")
	}

	refreshed, _ := orders.Get(ctx, order.ID)
	if refreshed.POSOrderID != posOrderID {
		t.Errorf("stored pos order id = %q, want %q", refreshed.POSOrderID, posOrderID)
	}
	if refreshed.LastSyncedAt == nil {
		t.Errorf("last synced at not recorded")
	}
	if gateway.attestCalls != 1 {
		t.Errorf("attest calls = %d, want 1", gateway.attestCalls)
	}
}

func TestMirrorIsIdempotentAcrossRetries(t *testing.T) {
	mirror, orders, gateway, user := newMirrorFixture(t)
	ctx := context.Background()

	order, _ := orders.CreateOrder(ctx, user.ID, []models.OrderItem{latte(2)})

	first, err := mirror.Mirror(ctx, order.ID)
	if err != nil {
		t.Fatalf("first mirror: %v", err)
	}
	second, err := mirror.Mirror(ctx, order.ID)
	if err != nil {
		t.Fatalf("second mirror: %v", err)
	}
	if first != second {
		t.Errorf("retried mirror produced a different external order: %q vs %q", first, second)
	}
	if len(gateway.created) != 1 {
		t.Errorf("external orders created = %d, want 1", len(gateway.created))
	}
}

func TestMirrorUnknownOrder(t *testing.T) {
	mirror, _, gateway, _ := newMirrorFixture(t)

	_, err := mirror.Mirror(context.Background(), 9999)
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("err = %v, want ErrOrderNotFound", err)
	}
	if gateway.createCalls != 0 {
		t.Errorf("create calls = %d, want 0 for an order that does not exist", gateway.createCalls)
	}
}

func TestMirrorSurvivesAttestationFailure(t *testing.T) {
	mirror, orders, gateway, user := newMirrorFixture(t)
	gateway.failAttest = true
	ctx := context.Background()

	order, _ := orders.CreateOrder(ctx, user.ID, []models.OrderItem{latte(2)})

	posOrderID, err := mirror.Mirror(ctx, order.ID)
	if err != nil {
		t.Fatalf("mirror should tolerate attestation failure, got: %v", err)
	}
	if posOrderID == "" {
		t.Errorf("empty pos order id despite successful order creation")
	}
}

func TestMirrorFailureLeavesLocalStateAlone(t *testing.T) {
	mirror, orders, gateway, user := newMirrorFixture(t)
	gateway.failCreate = true
	ctx := context.Background()

	order, _ := orders.CreateOrder(ctx, user.ID, []models.OrderItem{latte(2)})

	if _, err := mirror.Mirror(ctx, order.ID); err == nil {
		t.Fatalf("expected mirror error")
	}

	refreshed, _ := orders.Get(ctx, order.ID)
	if refreshed.Status != models.OrderStatusPending {
		t.Errorf("status = %s, want pending untouched by mirror failure", refreshed.Status)
	}
	if refreshed.POSOrderID != "" {
		t.Errorf("pos order id = %q, want empty", refreshed.POSOrderID)
	}
}
