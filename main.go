package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"beanstalker/config"
	"beanstalker/database"
	"beanstalker/jobs"
	"beanstalker/notifications"
	"beanstalker/providers/pos"
	"beanstalker/routes"
	"beanstalker/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment")
	}

	cfg := config.Load()
	database.Connect()

	posClient := pos.NewClient(cfg.POS)
	notifier := notifications.NewPushSender(cfg.Push)

	ledger := services.NewLedgerService(database.DB)
	mirror := services.NewMirrorService(database.DB, posClient)
	queue := services.NewMirrorQueue(mirror)
	orders := services.NewOrderService(database.DB, ledger, notifier, queue)
	transfers := services.NewTransferService(database.DB, ledger, notifier)
	reconcile := services.NewReconcileService(database.DB, orders, posClient)

	ctx, stop := context.WithCancel(context.Background())
	queue.Start(ctx)
	jobs.StartTransferExpirySweeper(ctx, transfers)

	app := fiber.New()
	app.Use(logger.New())
	routes.Setup(app, routes.Services{
		Ledger:    ledger,
		Orders:    orders,
		Transfers: transfers,
		Mirror:    mirror,
		Reconcile: reconcile,
	})

	addr := fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)
	log.Println("Server running at", addr)

	go func() {
		if err := app.Listen(addr); err != nil {
			log.Panicf("Failed to start server: %v", err)
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	log.Println("Gracefully shutting down...")
	stop()
	if err := app.Shutdown(); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exited cleanly")
}
