package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"beanstalker/models"
	"beanstalker/providers/pos"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// POSGateway is the slice of the POS client the sync services need.
type POSGateway interface {
	CreateOrder(ctx context.Context, order *models.Order, items []models.OrderItem) (string, error)
	AttestPayment(ctx context.Context, posOrderID string, orderID uint, total decimal.Decimal) error
	SearchOrders(ctx context.Context) ([]pos.Order, error)
}

// MirrorService projects confirmed local orders into the POS so they
// show up on the kitchen display. Mirroring is an availability concern,
// not a correctness one: its failures never unwind the local order or
// the ledger.
type MirrorService struct {
	db      *gorm.DB
	gateway POSGateway
}

func NewMirrorService(db *gorm.DB, gateway POSGateway) *MirrorService {
	return &MirrorService{db: db, gateway: gateway}
}

// Mirror pushes one order to the POS. The idempotency key derives from
// the order id, so calling this again for an already mirrored order is
// safe and will not create a duplicate.
func (m *MirrorService) Mirror(ctx context.Context, orderID uint) (string, error) {
	var order models.Order
	if err := m.db.WithContext(ctx).First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrOrderNotFound
		}
		return "", fmt.Errorf("load order %d: %w", orderID, err)
	}

	items := order.Items.Data()
	posOrderID, err := m.gateway.CreateOrder(ctx, &order, items)
	if err != nil {
		return "", fmt.Errorf("mirror order %d: %w", orderID, err)
	}

	now := time.Now()
	updates := map[string]any{
		"pos_order_id":   posOrderID,
		"last_synced_at": &now,
	}
	if err := m.db.WithContext(ctx).Model(&order).Updates(updates).Error; err != nil {
		log.Printf("mirror: record pos order id for order %d failed: %v", orderID, err)
	}

	// The order exists on the kitchen display at this point. Payment
	// attestation only affects how it is shown as settled; a human can
	// reconcile that manually, so failure here is not failure overall.
	if err := m.gateway.AttestPayment(ctx, posOrderID, order.ID, order.Total); err != nil {
		log.Printf("mirror: payment attestation for order %d failed: %v", orderID, err)
	}

	return posOrderID, nil
}
