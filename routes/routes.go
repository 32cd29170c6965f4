package routes

import (
	"beanstalker/controllers/callback/poshook"
	"beanstalker/controllers/credits"
	"beanstalker/controllers/order"
	"beanstalker/controllers/syncops"
	"beanstalker/controllers/transfer"
	"beanstalker/middlewares"
	"beanstalker/services"

	"github.com/gofiber/fiber/v2"
)

type Services struct {
	Ledger    *services.LedgerService
	Orders    *services.OrderService
	Transfers *services.TransferService
	Mirror    *services.MirrorService
	Reconcile *services.ReconcileService
}

func Setup(app *fiber.App, svc Services) {
	creditsCtl := credits.NewController(svc.Ledger)
	orderCtl := order.NewController(svc.Orders)
	transferCtl := transfer.NewController(svc.Transfers)
	hookCtl := poshook.NewController(svc.Reconcile)
	syncCtl := syncops.NewController(svc.Mirror, svc.Reconcile)

	creditroutes := app.Group("/credits", middlewares.UserAuth)
	creditroutes.Get("/balance", creditsCtl.Balance)
	creditroutes.Get("/transactions", creditsCtl.Transactions)
	creditroutes.Post("/purchase", creditsCtl.Purchase)

	orderroutes := app.Group("/orders", middlewares.UserAuth)
	orderroutes.Post("/", orderCtl.Create)
	orderroutes.Get("/", orderCtl.List)
	orderroutes.Patch("/:id/status", middlewares.AdminOnly, orderCtl.SetStatus)

	transferroutes := app.Group("/credit-transfers", middlewares.UserAuth)
	transferroutes.Post("/", transferCtl.Create)
	transferroutes.Post("/redeem", middlewares.AdminOnly, transferCtl.Redeem)

	// POS webhook deliveries are unauthenticated by contract; the handler
	// acknowledges everything it cannot use.
	app.Post("/webhooks/pos", hookCtl.Handle)

	syncroutes := app.Group("/sync", middlewares.UserAuth, middlewares.AdminOnly)
	syncroutes.Post("/order/:id", syncCtl.MirrorOrder)
	syncroutes.Post("/reconcile", syncCtl.Reconcile)
}
