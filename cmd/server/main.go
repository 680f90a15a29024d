package main

import (
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/campus-eats/canteen-platform/internal/broadcast"
	"github.com/campus-eats/canteen-platform/internal/config"
	"github.com/campus-eats/canteen-platform/internal/handlers"
	"github.com/campus-eats/canteen-platform/internal/messaging"
	"github.com/campus-eats/canteen-platform/internal/repository"
	"github.com/campus-eats/canteen-platform/internal/service"
	"github.com/campus-eats/canteen-platform/internal/ws"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

func main() {
	log.Println("🚀 Starting Canteen Platform...")

	cfg := config.Load()
	instanceID := uuid.New().String()

	db, err := initDatabase(cfg)
	if err != nil {
		log.Fatalf("Database connection error: %v", err)
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	hub := broadcast.NewHub()
	go hub.Run()
	defer hub.Stop()

	relay, rabbitClient := initRelay(cfg, instanceID)
	if rabbitClient != nil {
		defer rabbitClient.Close()
	}

	broadcaster := broadcast.NewBroadcaster(hub, relay, instanceID)

	if rabbitClient != nil {
		bridge := messaging.NewBridge(rabbitClient, instanceID, broadcaster.PublishLocal)
		if err := bridge.Start(); err != nil {
			log.Printf("Bridge start error (peer events disabled): %v", err)
		}
	}

	menuRepo := repository.NewMenuRepository(db)
	canteenRepo := repository.NewCanteenRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	cartRepo := repository.NewCartRepository(redisClient, cfg.Redis.CartTTL)

	inventoryService := service.NewInventoryService(menuRepo, broadcaster, cfg.LowStockThreshold)
	canteenService := service.NewCanteenService(canteenRepo, broadcaster)
	cartService := service.NewCartService(cartRepo, menuRepo)
	orderService := service.NewOrderService(orderRepo, cartRepo, inventoryService)

	menuHandler := handlers.NewMenuHandler(inventoryService)
	canteenHandler := handlers.NewCanteenHandler(canteenService)
	cartHandler := handlers.NewCartHandler(cartService)
	orderHandler := handlers.NewOrderHandler(orderService)
	wsHandler := ws.NewHandler(hub)

	app := setupFiberApp()
	setupRoutes(app, menuHandler, canteenHandler, cartHandler, orderHandler, wsHandler)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("🛑 Shutting down Canteen Platform...")
		if err := app.Shutdown(); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	log.Printf("🌍 Canteen Platform running on: http://localhost:%s", cfg.HTTPPort)

	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Fatalf("Server startup error: %v", err)
	}
}

func initDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)

	if err := db.Ping(); err != nil {
		return nil, err
	}

	log.Printf("✅ Database connection successful: %s", cfg.Database.Name)
	return db, nil
}

// initRelay connects the RabbitMQ leg. The relay is an optional freshness
// channel between instances: when it cannot connect the platform still runs,
// only cross-instance fan-out is missing.
func initRelay(cfg *config.Config, instanceID string) (broadcast.Relay, *messaging.Client) {
	rabbitClient := messaging.NewClient(cfg.RabbitMQ)
	if err := rabbitClient.Connect(); err != nil {
		log.Printf("RabbitMQ connection error (running without relay): %v", err)
		return nil, nil
	}

	return messaging.NewRelay(rabbitClient, instanceID), rabbitClient
}

func setupFiberApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Canteen Platform v1.0",
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} - ${latency}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-Request-ID,X-User-ID,X-User-Role",
	}))

	return app
}

func setupRoutes(
	app *fiber.App,
	menuHandler *handlers.MenuHandler,
	canteenHandler *handlers.CanteenHandler,
	cartHandler *handlers.CartHandler,
	orderHandler *handlers.OrderHandler,
	wsHandler *ws.Handler,
) {
	api := app.Group("/api/v1")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"service": "canteen-platform", "status": "healthy"})
	})

	api.Get("/canteens", canteenHandler.ListCanteens)
	api.Get("/canteens/:canteen_id", canteenHandler.GetCanteen)
	api.Patch("/canteens/:canteen_id/status", canteenHandler.SetOpen)

	api.Get("/canteens/:canteen_id/menu", menuHandler.GetFullMenu)
	api.Post("/canteens/:canteen_id/menu", menuHandler.CreateItem)
	api.Post("/canteens/:canteen_id/menu/bulk", menuHandler.BulkApply)
	api.Get("/menu/:item_id", menuHandler.GetItem)
	api.Patch("/menu/:item_id/quantity", menuHandler.SetQuantityDelta)
	api.Patch("/menu/:item_id/availability", menuHandler.SetAvailability)
	api.Delete("/menu/:item_id", menuHandler.RemoveItem)

	api.Get("/cart", cartHandler.GetCart)
	api.Put("/cart/items", cartHandler.SetItem)
	api.Delete("/cart", cartHandler.ClearCart)

	api.Post("/orders", orderHandler.PlaceOrder)
	api.Get("/orders", orderHandler.GetMyOrders)
	api.Get("/orders/:order_id", orderHandler.GetOrderByID)
	api.Patch("/orders/:order_id/status", orderHandler.UpdateStatus)
	api.Get("/canteens/:canteen_id/orders", orderHandler.GetCanteenOrders)

	app.Use("/ws", wsHandler.Upgrade)
	app.Get("/ws", websocket.New(wsHandler.Serve))

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Route not found",
		})
	})
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	log.Printf("Error: %v", err)

	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}
