package order

import (
	"errors"

	"beanstalker/helpers"
	"beanstalker/middlewares"
	"beanstalker/models"
	"beanstalker/services"

	"github.com/gofiber/fiber/v2"
)

type Controller struct {
	orders *services.OrderService
}

func NewController(orders *services.OrderService) *Controller {
	return &Controller{orders: orders}
}

type CreateRequest struct {
	Items []models.OrderItem `json:"items"`
}

func (ctl *Controller) Create(c *fiber.Ctx) error {
	user, ok := middlewares.CurrentUser(c)
	if !ok {
		return helpers.JSONError(c, fiber.StatusUnauthorized, "INVALID_SESSION")
	}

	var req CreateRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, fiber.StatusBadRequest, "INVALID_JSON")
	}

	created, err := ctl.orders.CreateOrder(c.Context(), user.ID, req.Items)
	switch {
	case errors.Is(err, services.ErrEmptyOrder):
		return helpers.JSONError(c, fiber.StatusBadRequest, "INVALID_ORDER_LINES")
	case errors.Is(err, services.ErrInsufficientBalance):
		return helpers.JSONError(c, fiber.StatusBadRequest, "INSUFFICIENT_CREDITS")
	case err != nil:
		return helpers.JSONError(c, fiber.StatusInternalServerError, "FAILED_TO_CREATE_ORDER")
	}

	return helpers.JSONCreated(c, "Order placed", created)
}

func (ctl *Controller) List(c *fiber.Ctx) error {
	user, ok := middlewares.CurrentUser(c)
	if !ok {
		return helpers.JSONError(c, fiber.StatusUnauthorized, "INVALID_SESSION")
	}

	orders, err := ctl.orders.OrdersFor(c.Context(), user.ID)
	if err != nil {
		return helpers.JSONError(c, fiber.StatusInternalServerError, "FAILED_TO_LOAD_ORDERS")
	}
	return helpers.JSONSuccess(c, "Orders loaded", orders)
}

type StatusRequest struct {
	Status string `json:"status"`
}

// SetStatus is the staff-facing manual transition. Setting the status an
// order already has is a no-op and still returns 200.
func (ctl *Controller) SetStatus(c *fiber.Ctx) error {
	orderID, err := c.ParamsInt("id")
	if err != nil || orderID <= 0 {
		return helpers.JSONError(c, fiber.StatusBadRequest, "INVALID_ORDER_ID")
	}

	var req StatusRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, fiber.StatusBadRequest, "INVALID_JSON")
	}

	updated, err := ctl.orders.SetStatus(c.Context(), uint(orderID), req.Status)
	switch {
	case errors.Is(err, services.ErrInvalidStatus):
		return helpers.JSONError(c, fiber.StatusBadRequest, "INVALID_STATUS")
	case errors.Is(err, services.ErrOrderNotFound):
		return helpers.JSONError(c, fiber.StatusNotFound, "ORDER_NOT_FOUND")
	case errors.Is(err, services.ErrTerminalStatus):
		return helpers.JSONError(c, fiber.StatusConflict, "ORDER_ALREADY_CLOSED")
	case err != nil:
		return helpers.JSONError(c, fiber.StatusInternalServerError, "FAILED_TO_UPDATE_STATUS")
	}

	return helpers.JSONSuccess(c, "Order updated", updated)
}
