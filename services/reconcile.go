package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"beanstalker/models"
	"beanstalker/providers/pos"

	"gorm.io/gorm"
)

// stateMap folds POS fulfillment states onto local order statuses. Both
// the webhook path and the polling fallback feed through this one table.
var stateMap = map[string]string{
	"PROPOSED":    models.OrderStatusProcessing,
	"OPEN":        models.OrderStatusProcessing,
	"RESERVED":    models.OrderStatusPreparing,
	"IN_PROGRESS": models.OrderStatusPreparing,
	"PREPARED":    models.OrderStatusReady,
	"READY":       models.OrderStatusReady,
	"COMPLETED":   models.OrderStatusCompleted,
	"CANCELED":    models.OrderStatusCancelled,
	"CANCELLED":   models.OrderStatusCancelled,
}

// MapFulfillmentState returns the local status for a POS fulfillment
// state, or ok=false for states with no local meaning.
func MapFulfillmentState(state string) (string, bool) {
	status, ok := stateMap[state]
	return status, ok
}

// ReconcileService folds external order state back onto local orders.
// Its boundary contract is tolerant by design: anything it cannot parse
// or correlate is acknowledged with no effect, never an error, so the
// POS retry queue is never blocked by our internals.
type ReconcileService struct {
	db      *gorm.DB
	orders  *OrderService
	gateway POSGateway
}

func NewReconcileService(db *gorm.DB, orders *OrderService, gateway POSGateway) *ReconcileService {
	return &ReconcileService{db: db, orders: orders, gateway: gateway}
}

// HandleWebhook processes one event delivery. The returned error is only
// ever an internal fault; unrelated, malformed or uncorrelatable events
// all come back nil so the HTTP layer acknowledges them.
func (r *ReconcileService) HandleWebhook(ctx context.Context, body []byte) error {
	var envelope pos.WebhookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		log.Printf("reconcile: undecodable webhook body ignored: %v", err)
		return nil
	}

	ext := envelope.EmbeddedOrder()
	if ext == nil {
		log.Printf("reconcile: webhook %s (%s) carries no order object, ignored", envelope.EventID, envelope.Type)
		return nil
	}

	orderID, strategy, ok := pos.CorrelateOrderID(ext)
	if !ok {
		log.Printf("reconcile: webhook %s order %s has no recoverable local id, ignored", envelope.EventID, ext.ID)
		return nil
	}
	log.Printf("reconcile: webhook %s correlated to order %d via %s", envelope.EventID, orderID, strategy)

	return r.apply(ctx, orderID, ext)
}

// ReconcileOpenOrders is the polling fallback: fetch recent POS orders
// and cross-reference each against still-open local orders, covering the
// case where no webhook arrived. Returns how many orders changed status.
func (r *ReconcileService) ReconcileOpenOrders(ctx context.Context) (int, error) {
	open, err := r.orders.OpenOrders(ctx)
	if err != nil {
		return 0, err
	}
	if len(open) == 0 {
		return 0, nil
	}

	openByID := make(map[uint]*models.Order, len(open))
	for i := range open {
		openByID[open[i].ID] = &open[i]
	}

	external, err := r.gateway.SearchOrders(ctx)
	if err != nil {
		return 0, fmt.Errorf("search pos orders: %w", err)
	}

	changed := 0
	for i := range external {
		ext := &external[i]
		orderID, _, ok := pos.CorrelateOrderID(ext)
		if !ok {
			continue
		}
		local, stillOpen := openByID[orderID]
		if !stillOpen {
			continue
		}

		before := local.Status
		if err := r.apply(ctx, orderID, ext); err != nil {
			log.Printf("reconcile: apply pos order %s to order %d failed: %v", ext.ID, orderID, err)
			continue
		}
		if mapped, ok := MapFulfillmentState(ext.FulfillmentState()); ok && mapped != before {
			changed++
		}
	}
	return changed, nil
}

// apply maps the external fulfillment state and moves the local order if
// the mapped status differs from the current one. The equality check in
// SetStatus is the concurrency guard for duplicate deliveries.
func (r *ReconcileService) apply(ctx context.Context, orderID uint, ext *pos.Order) error {
	mapped, ok := MapFulfillmentState(ext.FulfillmentState())
	if !ok {
		log.Printf("reconcile: pos state %q for order %d has no local mapping, ignored", ext.FulfillmentState(), orderID)
		return nil
	}

	_, err := r.orders.SetStatus(ctx, orderID, mapped)
	if err != nil {
		switch err {
		case ErrOrderNotFound:
			log.Printf("reconcile: pos order %s references unknown order %d, ignored", ext.ID, orderID)
			return nil
		case ErrTerminalStatus:
			log.Printf("reconcile: order %d already terminal, pos state %s ignored", orderID, ext.FulfillmentState())
			return nil
		}
		return err
	}

	now := time.Now()
	sync := map[string]any{
		"pos_state":      ext.FulfillmentState(),
		"last_synced_at": &now,
	}
	if ext.ID != "" {
		sync["pos_order_id"] = ext.ID
	}
	if err := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", orderID).Updates(sync).Error; err != nil {
		log.Printf("reconcile: record sync state for order %d failed: %v", orderID, err)
	}
	return nil
}
