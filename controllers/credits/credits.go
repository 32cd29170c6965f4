package credits

import (
	"errors"

	"beanstalker/helpers"
	"beanstalker/middlewares"
	"beanstalker/services"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type Controller struct {
	ledger *services.LedgerService
}

func NewController(ledger *services.LedgerService) *Controller {
	return &Controller{ledger: ledger}
}

func (ctl *Controller) Balance(c *fiber.Ctx) error {
	user, ok := middlewares.CurrentUser(c)
	if !ok {
		return helpers.JSONError(c, fiber.StatusUnauthorized, "INVALID_SESSION")
	}

	balance, err := ctl.ledger.Balance(c.Context(), user.ID)
	if err != nil {
		return helpers.JSONError(c, fiber.StatusInternalServerError, "FAILED_TO_LOAD_BALANCE")
	}

	return helpers.JSONSuccess(c, "Balance loaded", fiber.Map{
		"credits": balance,
	})
}

func (ctl *Controller) Transactions(c *fiber.Ctx) error {
	user, ok := middlewares.CurrentUser(c)
	if !ok {
		return helpers.JSONError(c, fiber.StatusUnauthorized, "INVALID_SESSION")
	}

	txns, err := ctl.ledger.TransactionsFor(c.Context(), user.ID)
	if err != nil {
		return helpers.JSONError(c, fiber.StatusInternalServerError, "FAILED_TO_LOAD_TRANSACTIONS")
	}

	return helpers.JSONSuccess(c, "Transactions loaded", txns)
}

type PurchaseRequest struct {
	Amount       decimal.Decimal `json:"amount"`
	ExternalTxID string          `json:"external_transaction_id"`
}

// Purchase applies a credit-purchase receipt. Receipts carry the store's
// transaction id; replaying one is rejected, not re-applied.
func (ctl *Controller) Purchase(c *fiber.Ctx) error {
	user, ok := middlewares.CurrentUser(c)
	if !ok {
		return helpers.JSONError(c, fiber.StatusUnauthorized, "INVALID_SESSION")
	}

	var req PurchaseRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, fiber.StatusBadRequest, "INVALID_JSON")
	}

	txn, err := ctl.ledger.Purchase(c.Context(), user.ID, req.Amount, req.ExternalTxID)
	switch {
	case errors.Is(err, services.ErrInvalidAmount):
		return helpers.JSONError(c, fiber.StatusBadRequest, "AMOUNT_MUST_BE_POSITIVE")
	case errors.Is(err, services.ErrReceiptAlreadyProcessed):
		return helpers.JSONError(c, fiber.StatusConflict, "RECEIPT_ALREADY_PROCESSED")
	case err != nil:
		return helpers.JSONError(c, fiber.StatusInternalServerError, "FAILED_TO_APPLY_PURCHASE")
	}

	return helpers.JSONSuccess(c, "Credits added", fiber.Map{
		"transaction": txn,
		"credits":     txn.BalanceAfter,
	})
}
