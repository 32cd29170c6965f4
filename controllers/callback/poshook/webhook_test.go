package poshook

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"beanstalker/database"
	"beanstalker/notifications"
	"beanstalker/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type noopSender struct{}

func (noopSender) Send(context.Context, uint, notifications.Notification) error { return nil }

func newWebhookApp(t *testing.T) *fiber.App {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	ledger := services.NewLedgerService(db)
	orders := services.NewOrderService(db, ledger, noopSender{}, nil)
	reconcile := services.NewReconcileService(db, orders, nil)

	app := fiber.New()
	app.Post("/webhooks/pos", NewController(reconcile).Handle)
	return app
}

func TestWebhookEndpointAlwaysAcknowledges(t *testing.T) {
	app := newWebhookApp(t)

	bodies := []string{
		`not json at all`,
		`{}`,
		`{"event_id":"evt-1","type":"order.updated","data":{"object":{"order":{"id":"unrelated"}}}}`,
	}
	for i, body := range bodies {
		req := httptest.NewRequest("POST", "/webhooks/pos", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("body %d: %v", i, err)
		}
		if resp.StatusCode != fiber.StatusOK {
			t.Errorf("body %d: status = %d, want 200", i, resp.StatusCode)
		}
	}
}
