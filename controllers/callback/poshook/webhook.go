package poshook

import (
	"log"

	"beanstalker/services"

	"github.com/gofiber/fiber/v2"
)

type Controller struct {
	reconcile *services.ReconcileService
}

func NewController(reconcile *services.ReconcileService) *Controller {
	return &Controller{reconcile: reconcile}
}

// Handle receives POS event deliveries. This endpoint always returns 200
// so the platform's retry queue never backs up on our account; parse or
// correlation problems are logged internally and acknowledged.
func (ctl *Controller) Handle(c *fiber.Ctx) error {
	if err := ctl.reconcile.HandleWebhook(c.Context(), c.Body()); err != nil {
		log.Printf("poshook: processing failed, acknowledging anyway: %v", err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true})
}
