package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// OrderReference builds the stable "bs-order-<id>" key used both as the
// POS idempotency key and as the marker recovered by the reconciler.
func OrderReference(id uint) string {
	return fmt.Sprintf("bs-order-%d", id)
}

const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusPreparing  = "preparing"
	OrderStatusReady      = "ready"
	OrderStatusCompleted  = "completed"
	OrderStatusCancelled  = "cancelled"
)

// ValidOrderStatus reports whether s is one of the fixed status values.
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusPreparing,
		OrderStatusReady, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// TerminalOrderStatus reports whether no further transitions are allowed.
func TerminalOrderStatus(s string) bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

type OrderItem struct {
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Size      string          `json:"size,omitempty"`
	Flavor    string          `json:"flavor,omitempty"`
}

// Extension is the line total: quantity times unit price.
func (i OrderItem) Extension() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Order struct {
	gorm.Model

	UserID uint                            `gorm:"index" json:"user_id"`
	Items  datatypes.JSONType[[]OrderItem] `json:"items"`
	Total  decimal.Decimal                 `gorm:"type:numeric(12,2)" json:"total"`
	Status string                          `gorm:"size:16;index;default:pending" json:"status"`

	// Mirror state into the external POS platform. POSOrderID is empty
	// until the order has been projected at least once.
	POSOrderID   string     `gorm:"size:64;index" json:"pos_order_id,omitempty"`
	POSState     string     `gorm:"size:32" json:"pos_state,omitempty"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
}

// Reference returns the deterministic idempotency key embedded in every
// field of the mirrored POS order.
func (o *Order) Reference() string {
	return OrderReference(o.ID)
}

// OpenOrderStatuses lists statuses still eligible for reconciliation.
func OpenOrderStatuses() []string {
	return []string{OrderStatusPending, OrderStatusProcessing, OrderStatusPreparing, OrderStatusReady}
}
