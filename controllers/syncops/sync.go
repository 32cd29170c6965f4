package syncops

import (
	"errors"

	"beanstalker/helpers"
	"beanstalker/services"

	"github.com/gofiber/fiber/v2"
)

// Admin triggers for the sync machinery: re-mirror a single order, or run
// the polling reconciliation across open orders.
type Controller struct {
	mirror    *services.MirrorService
	reconcile *services.ReconcileService
}

func NewController(mirror *services.MirrorService, reconcile *services.ReconcileService) *Controller {
	return &Controller{mirror: mirror, reconcile: reconcile}
}

func (ctl *Controller) MirrorOrder(c *fiber.Ctx) error {
	orderID, err := c.ParamsInt("id")
	if err != nil || orderID <= 0 {
		return helpers.JSONError(c, fiber.StatusBadRequest, "INVALID_ORDER_ID")
	}

	posOrderID, err := ctl.mirror.Mirror(c.Context(), uint(orderID))
	if errors.Is(err, services.ErrOrderNotFound) {
		return helpers.JSONError(c, fiber.StatusNotFound, "ORDER_NOT_FOUND")
	}
	if err != nil {
		return helpers.JSONError(c, fiber.StatusBadGateway, "MIRROR_FAILED")
	}

	return helpers.JSONSuccess(c, "Order mirrored", fiber.Map{
		"pos_order_id": posOrderID,
	})
}

func (ctl *Controller) Reconcile(c *fiber.Ctx) error {
	changed, err := ctl.reconcile.ReconcileOpenOrders(c.Context())
	if err != nil {
		return helpers.JSONError(c, fiber.StatusBadGateway, "RECONCILE_FAILED")
	}

	return helpers.JSONSuccess(c, "Reconciliation complete", fiber.Map{
		"orders_updated": changed,
	})
}
