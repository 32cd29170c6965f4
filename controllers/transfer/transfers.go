package transfer

import (
	"errors"

	"beanstalker/helpers"
	"beanstalker/middlewares"
	"beanstalker/services"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type Controller struct {
	transfers *services.TransferService
}

func NewController(transfers *services.TransferService) *Controller {
	return &Controller{transfers: transfers}
}

type CreateRequest struct {
	RecipientPhone string          `json:"recipient_phone"`
	Amount         decimal.Decimal `json:"amount"`
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
	if req.RecipientPhone == "" {
		return helpers.JSONError(c, fiber.StatusBadRequest, "RECIPIENT_PHONE_REQUIRED")
	}

	receipt, err := ctl.transfers.CreateTransfer(c.Context(), user.ID, req.RecipientPhone, req.Amount)
	switch {
	case errors.Is(err, services.ErrInvalidAmount):
		return helpers.JSONError(c, fiber.StatusBadRequest, "AMOUNT_MUST_BE_POSITIVE")
	case errors.Is(err, services.ErrInsufficientBalance):
		return helpers.JSONError(c, fiber.StatusBadRequest, "INSUFFICIENT_CREDITS")
	case err != nil:
		return helpers.JSONError(c, fiber.StatusInternalServerError, "FAILED_TO_CREATE_TRANSFER")
	}

	return helpers.JSONCreated(c, "Transfer created", receipt)
}

type RedeemRequest struct {
	Code string `json:"code"`
}

// Redeem settles a transfer code presented at the counter. Staff-only.
func (ctl *Controller) Redeem(c *fiber.Ctx) error {
	staff, ok := middlewares.CurrentUser(c)
	if !ok {
		return helpers.JSONError(c, fiber.StatusUnauthorized, "INVALID_SESSION")
	}

	var req RedeemRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, fiber.StatusBadRequest, "INVALID_JSON")
	}
	if req.Code == "" {
		return helpers.JSONError(c, fiber.StatusBadRequest, "CODE_REQUIRED")
	}

	summary, err := ctl.transfers.Redeem(c.Context(), req.Code, staff.ID)
	switch {
	case errors.Is(err, services.ErrTransferNotFound):
		return helpers.JSONError(c, fiber.StatusNotFound, "CODE_NOT_FOUND")
	case errors.Is(err, services.ErrTransferAlreadyUsed):
		return helpers.JSONError(c, fiber.StatusConflict, "CODE_ALREADY_USED")
	case errors.Is(err, services.ErrTransferExpired):
		return helpers.JSONError(c, fiber.StatusGone, "CODE_EXPIRED")
	case errors.Is(err, services.ErrInsufficientBalance):
		return helpers.JSONError(c, fiber.StatusConflict, "SENDER_BALANCE_TOO_LOW")
	case err != nil:
		return helpers.JSONError(c, fiber.StatusInternalServerError, "FAILED_TO_REDEEM")
	}

	return helpers.JSONSuccess(c, "Transfer redeemed", summary)
}
