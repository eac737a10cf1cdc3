package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go-gearstore/internal/config"
	"go-gearstore/internal/handler"
	"go-gearstore/internal/middleware"
	"go-gearstore/internal/model"
	"go-gearstore/internal/repository"
	"go-gearstore/internal/service"
	"go-gearstore/internal/ws"
	"go-gearstore/pkg/cache"
	"go-gearstore/pkg/database"
	"go-gearstore/pkg/jwt"
	"go-gearstore/pkg/mailer"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
)

func main() {
	// 1. Load Env
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to read configuration: %v", err)
	}

	// 2. Setup Database
	db, err := database.ConnectDB(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := model.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// 3. Product cache: Redis when configured, in-process otherwise
	var store cache.Store
	if cfg.Cache.RedisAddr != "" {
		redisStore, err := cache.NewRedisStore(cfg.Cache.RedisAddr)
		if err != nil {
			log.Printf("Warning: %v, falling back to in-memory cache", err)
			store = cache.NewMemoryStore()
		} else {
			store = redisStore
		}
	} else {
		store = cache.NewMemoryStore()
	}
	defer store.Close()

	// 4. Setup WebSocket Hub
	wsHub := ws.NewHub()
	go wsHub.Run()

	// 5. Dependency Injection (Wiring Layers)
	tokens := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.TTL)

	userRepo := repository.NewUserRepo(db)
	categoryRepo := repository.NewCategoryRepo(db)
	productRepo := repository.NewProductRepo(db)
	unitRepo := repository.NewUnitRepo(db)
	cartRepo := repository.NewCartRepo(db)
	orderRepo := repository.NewOrderRepo(db)
	codeRepo := repository.NewAuthCodeRepo(db)

	productCache := service.NewProductCache(store, cfg.Cache.TTL)
	notifier := service.NewNotifier(mailer.NewLogSender(cfg.MailFrom), wsHub)

	authService := service.NewAuthService(userRepo, tokens, wsHub)
	userService := service.NewUserService(userRepo)
	catalogService := service.NewCatalogService(categoryRepo, productRepo, productCache)
	invService := service.NewInventoryService(productRepo, unitRepo, db, productCache, wsHub)
	cartService := service.NewCartService(cartRepo, productRepo)
	codeService := service.NewAuthCodeService(codeRepo, notifier, cfg.PublicOrigin, cfg.QRRenderURL)
	orderService := service.NewOrderService(db, orderRepo, cartRepo, userRepo, invService, codeService, notifier, wsHub)
	dashService := service.NewDashboardService(productRepo, unitRepo, orderRepo, codeRepo)

	if err := authService.SeedAdmin(context.Background(), cfg.Admin.Email, cfg.Admin.Password); err != nil {
		log.Printf("Warning: Failed to seed admin user: %v", err)
	}

	authHandler := handler.NewAuthHandler(authService, userService)
	userHandler := handler.NewUserHandler(userService)
	catalogHandler := handler.NewCatalogHandler(catalogService)
	invHandler := handler.NewInventoryHandler(invService)
	cartHandler := handler.NewCartHandler(cartService)
	orderHandler := handler.NewOrderHandler(orderService)
	verifyHandler := handler.NewVerificationHandler(codeService)
	dashHandler := handler.NewDashboardHandler(dashService)

	// 6. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName: "Gear Store API v1.0",
	})

	app.Use(logger.New())
	app.Use(recover.New())
	app.Use(cors.New())

	// 7. Routes
	api := app.Group("/api/v1")
	requireAuth := middleware.RequireAuth(tokens, userRepo)

	// ============ PUBLIC ROUTES ============
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/change-password", requireAuth, authHandler.ChangePassword)
	auth.Post("/heartbeat", requireAuth, authHandler.Heartbeat)

	api.Get("/products", catalogHandler.ListProducts)
	api.Get("/products/:slug", catalogHandler.GetProduct)
	api.Get("/categories", catalogHandler.ListCategories)

	api.Get("/verify/:code", verifyHandler.Verify)
	api.Post("/verify/:code", verifyHandler.Verify)

	// ============ CUSTOMER ROUTES ============
	protected := api.Group("", requireAuth)

	protected.Get("/me", authHandler.Me)
	protected.Put("/me", authHandler.UpdateMe)

	protected.Get("/cart", cartHandler.GetCart)
	protected.Delete("/cart", cartHandler.ClearCart)
	protected.Post("/cart/items", cartHandler.AddItem)
	protected.Put("/cart/items/:id", cartHandler.SetQuantity)
	protected.Delete("/cart/items/:id", cartHandler.RemoveItem)

	protected.Post("/checkout", orderHandler.Checkout)
	protected.Get("/orders", orderHandler.GetMyOrders)
	protected.Get("/orders/:id", orderHandler.GetOrder)
	protected.Get("/codes", verifyHandler.GetMyCodes)

	// ============ ADMIN ROUTES ============
	admin := api.Group("/admin", requireAuth, middleware.RequireAdmin())

	admin.Get("/products", catalogHandler.ListAllProducts)
	admin.Post("/products", catalogHandler.CreateProduct)
	admin.Put("/products/:id", catalogHandler.UpdateProduct)
	admin.Post("/categories", catalogHandler.CreateCategory)
	admin.Put("/categories/:id", catalogHandler.UpdateCategory)

	admin.Post("/units", invHandler.CreateUnit)
	admin.Get("/units", invHandler.GetUnits)
	admin.Get("/units/:id", invHandler.GetUnit)
	admin.Put("/units/:id/status", invHandler.UpdateUnitStatus)

	admin.Get("/orders", orderHandler.GetAllOrders)
	admin.Get("/orders/:id/units", invHandler.GetOrderUnits)
	admin.Put("/orders/:id/status", orderHandler.UpdateStatus)
	admin.Put("/orders/:id/payment-status", orderHandler.UpdatePaymentStatus)

	admin.Get("/codes", verifyHandler.GetCodes)
	admin.Get("/users", userHandler.GetAllUsers)
	admin.Get("/users/:id", userHandler.GetUser)

	api.Get("/dashboard/stats", requireAuth, middleware.RequireAdmin(), dashHandler.GetDashboardStats)

	// WebSocket Route. A live session token ties the socket to its user so
	// it receives order and verification pushes; without one it only gets
	// public stock updates.
	app.Use("/ws", middleware.WebSocketIdentity(tokens, userRepo))
	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		userID, _ := c.Locals("ws_user_id").(string)
		wsHub.Register <- &ws.Client{Conn: c, UserID: userID}
		defer func() { wsHub.Unregister <- c }()

		for {
			// Keep alive loop
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	}))

	// 8. Graceful Shutdown
	go func() {
		if err := app.Listen(cfg.Address()); err != nil {
			log.Panic(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
