package services

import (
	"context"
	"sync"
	"testing"

	"beanstalker/database"
	"beanstalker/models"
	"beanstalker/notifications"
	"beanstalker/providers/pos"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	// one connection so every session sees the same in-memory database
	sqlDB.SetMaxOpenConns(1)

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newUser(t *testing.T, db *gorm.DB, username string, credits string, admin bool) *models.User {
	t.Helper()
	user := &models.User{
		Username: username,
		APIKey:   "key-" + username,
		Credits:  dec(credits),
		IsAdmin:  admin,
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// recordingNotifier captures every dispatch for side-effect assertions.
type recordingNotifier struct {
	mu    sync.Mutex
	sends []recordedSend
	fail  bool
}

type recordedSend struct {
	UserID uint
	Note   notifications.Notification
}

func (r *recordingNotifier) Send(_ context.Context, userID uint, n notifications.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sends = append(r.sends, recordedSend{UserID: userID, Note: n})
	if r.fail {
		return context.DeadlineExceeded
	}
	return nil
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sends)
}

func (r *recordingNotifier) sentTo(userID uint) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.sends {
		if s.UserID == userID {
			n++
		}
	}
	return n
}

// recordingScheduler stands in for the mirror queue.
type recordingScheduler struct {
	mu     sync.Mutex
	orders []uint
}

func (r *recordingScheduler) Enqueue(orderID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders = append(r.orders, orderID)
}

func (r *recordingScheduler) enqueued() []uint {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint(nil), r.orders...)
}

// fakeGateway is an in-memory POS double.
type fakeGateway struct {
	mu            sync.Mutex
	created       map[string]string // idempotency reference -> pos order id
	createCalls   int
	attestCalls   int
	failCreate    bool
	failAttest    bool
	searchResults []pos.Order
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{created: make(map[string]string)}
}

func (f *fakeGateway) CreateOrder(_ context.Context, order *models.Order, _ []models.OrderItem) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.failCreate {
		return "", context.DeadlineExceeded
	}
	ref := order.Reference()
	if id, ok := f.created[ref]; ok {
		return id, nil
	}
	id := "pos-" + ref
	f.created[ref] = id
	return id, nil
}

func (f *fakeGateway) AttestPayment(_ context.Context, _ string, _ uint, _ decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attestCalls++
	if f.failAttest {
		return context.DeadlineExceeded
	}
	return nil
}

func (f *fakeGateway) SearchOrders(_ context.Context) ([]pos.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.searchResults, nil
}
