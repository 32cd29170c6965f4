package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"beanstalker/models"
	"beanstalker/notifications"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MirrorScheduler is how the order service hands a freshly created order
// to the out-of-band mirroring worker. Never blocks the caller.
type MirrorScheduler interface {
	Enqueue(orderID uint)
}

// OrderService owns the order entity and its status machine. Creation
// debits the ledger in the same database transaction as the order insert;
// everything downstream (mirroring, notifications) is best-effort.
type OrderService struct {
	db       *gorm.DB
	ledger   *LedgerService
	notifier notifications.Sender
	mirror   MirrorScheduler
}

func NewOrderService(db *gorm.DB, ledger *LedgerService, notifier notifications.Sender, mirror MirrorScheduler) *OrderService {
	return &OrderService{db: db, ledger: ledger, notifier: notifier, mirror: mirror}
}

func orderTotal(items []models.OrderItem) (decimal.Decimal, error) {
	if len(items) == 0 {
		return decimal.Zero, ErrEmptyOrder
	}
	total := decimal.Zero
	for _, item := range items {
		if item.Name == "" || item.Quantity <= 0 || item.UnitPrice.Sign() < 0 {
			return decimal.Zero, ErrEmptyOrder
		}
		total = total.Add(item.Extension())
	}
	if total.Sign() <= 0 {
		return decimal.Zero, ErrEmptyOrder
	}
	return total, nil
}

// CreateOrder inserts the order and debits its total from the owner in
// one transaction: a failed debit aborts the insert and a failed insert
// rolls back the debit. Mirroring is scheduled after commit, never on the
// request path.
func (s *OrderService) CreateOrder(ctx context.Context, userID uint, items []models.OrderItem) (*models.Order, error) {
	total, err := orderTotal(items)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		UserID: userID,
		Items:  datatypes.NewJSONType(items),
		Total:  total,
		Status: models.OrderStatusPending,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		_, err := s.ledger.DebitInTx(tx, userID, total,
			fmt.Sprintf("Order #%d", order.ID),
			Correlation{OrderID: &order.ID})
		return err
	})
	if err != nil {
		return nil, err
	}

	if s.mirror != nil {
		s.mirror.Enqueue(order.ID)
	}
	s.notifyCreated(ctx, order)

	return order, nil
}

// SetStatus moves an order to a new status. Both staff edits and webhook
// reconciliation funnel through here; an unchanged status is a no-op with
// no notification, which is what makes repeated webhook deliveries and
// overlapping polling safe to run concurrently.
func (s *OrderService) SetStatus(ctx context.Context, orderID uint, newStatus string) (*models.Order, error) {
	if !models.ValidOrderStatus(newStatus) {
		return nil, ErrInvalidStatus
	}

	var order models.Order
	if err := s.db.WithContext(ctx).First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("load order %d: %w", orderID, err)
	}

	if order.Status == newStatus {
		return &order, nil
	}
	if models.TerminalOrderStatus(order.Status) {
		return nil, ErrTerminalStatus
	}

	if err := s.db.WithContext(ctx).Model(&order).Update("status", newStatus).Error; err != nil {
		return nil, fmt.Errorf("update order %d status: %w", orderID, err)
	}
	order.Status = newStatus

	s.notifyStatus(ctx, &order)
	return &order, nil
}

// Get returns one order or ErrOrderNotFound.
func (s *OrderService) Get(ctx context.Context, orderID uint) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("load order %d: %w", orderID, err)
	}
	return &order, nil
}

// OrdersFor lists an account's orders, newest first.
func (s *OrderService) OrdersFor(ctx context.Context, userID uint) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("load orders for user %d: %w", userID, err)
	}
	return orders, nil
}

// OpenOrders lists orders still eligible for reconciliation.
func (s *OrderService) OpenOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.WithContext(ctx).
		Where("status IN ?", models.OpenOrderStatuses()).
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("load open orders: %w", err)
	}
	return orders, nil
}

var statusCopy = map[string]notifications.Notification{
	models.OrderStatusProcessing: {Title: "Order received", Body: "We're on it! Your order has been received by the shop."},
	models.OrderStatusPreparing:  {Title: "Order in progress", Body: "Your order is being prepared."},
	models.OrderStatusReady:      {Title: "Order ready", Body: "Your order is ready for pickup!"},
	models.OrderStatusCompleted:  {Title: "Order complete", Body: "Your order is complete. Enjoy!"},
	models.OrderStatusCancelled:  {Title: "Order cancelled", Body: "Your order was cancelled. Your credits were not refunded automatically - see staff if this is unexpected."},
}

func (s *OrderService) notifyStatus(ctx context.Context, order *models.Order) {
	n, ok := statusCopy[order.Status]
	if !ok {
		return
	}
	n.Data = map[string]any{"type": "order_status", "order_id": order.ID, "status": order.Status}
	if err := s.notifier.Send(ctx, order.UserID, n); err != nil {
		log.Printf("order: notify user %d for order %d failed: %v", order.UserID, order.ID, err)
	}
}

// notifyCreated tells the owner and every staff account about a new
// order. Transport failures are logged and swallowed.
func (s *OrderService) notifyCreated(ctx context.Context, order *models.Order) {
	owner := notifications.Notification{
		Title: "Order placed",
		Body:  fmt.Sprintf("Order #%d placed - %s credits. We'll let you know when it's ready.", order.ID, order.Total.StringFixed(2)),
		Data:  map[string]any{"type": "order_created", "order_id": order.ID},
	}
	if err := s.notifier.Send(ctx, order.UserID, owner); err != nil {
		log.Printf("order: notify owner %d for order %d failed: %v", order.UserID, order.ID, err)
	}

	var admins []models.User
	if err := s.db.WithContext(ctx).Where("is_admin = ? AND is_active = ?", true, true).Find(&admins).Error; err != nil {
		log.Printf("order: load staff accounts failed: %v", err)
		return
	}
	for _, admin := range admins {
		if admin.ID == order.UserID {
			continue
		}
		staff := notifications.Notification{
			Title: "New order",
			Body:  fmt.Sprintf("Order #%d - %s credits.", order.ID, order.Total.StringFixed(2)),
			Data:  map[string]any{"type": "new_order", "order_id": order.ID},
		}
		if err := s.notifier.Send(ctx, admin.ID, staff); err != nil {
			log.Printf("order: notify staff %d for order %d failed: %v", admin.ID, order.ID, err)
		}
	}
}
