package main

import (
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"sales-backend/config"
	"sales-backend/internal/eventbus"
	"sales-backend/internal/handler"
	"sales-backend/internal/middleware"
	"sales-backend/internal/models"
	"sales-backend/internal/service"
	"sales-backend/pkg/database"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	// 1. Load Configuration
	config.LoadConfig()

	if config.AppConfig.Server.Env == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// 2. Connect to Database
	db, err := database.Connect(config.AppConfig.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Database connection failed")
	}

	// 3. Auto-Migrate Models
	log.Info().Msg("Running migrations...")
	err = db.AutoMigrate(
		&models.Product{},
		&models.Inventory{},
		&models.InventoryAdjustment{},
		&models.Dealer{},
		&models.Order{},
		&models.OrderItem{},
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}
	log.Info().Msg("Migrations completed successfully")

	// 4. Wire Services
	var publisher service.OrderEventPublisher
	if config.AppConfig.RabbitMQ.URL != "" {
		p, err := eventbus.NewPublisher(config.AppConfig.RabbitMQ)
		if err != nil {
			log.Warn().Err(err).Msg("Event publishing disabled: RabbitMQ connection failed")
		} else {
			defer p.Close()
			publisher = p
		}
	}

	inventoryService := service.NewInventoryService(db)
	catalogService := service.NewCatalogService(db, inventoryService)
	dealerService := service.NewDealerService(db)
	orderService := service.NewOrderService(
		db,
		inventoryService,
		publisher,
		config.AppConfig.Defaults.OrderPrefix,
		config.AppConfig.Defaults.SystemActor,
	)

	// 5. Initialize Router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())

	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// 6. Setup Routes
	productHandler := handler.NewProductHandler(catalogService)
	dealerHandler := handler.NewDealerHandler(dealerService)
	orderHandler := handler.NewOrderHandler(orderService)
	inventoryHandler := handler.NewInventoryHandler(inventoryService)

	api := r.Group("/api/v1")
	{
		api.GET("/products", productHandler.List)
		api.POST("/products", productHandler.Create)
		api.GET("/products/:id", productHandler.Get)
		api.PUT("/products/:id", productHandler.Update)
		api.PATCH("/products/:id", productHandler.Update)
		api.DELETE("/products/:id", productHandler.Delete)

		api.GET("/dealers", dealerHandler.List)
		api.POST("/dealers", dealerHandler.Create)
		api.GET("/dealers/:id", dealerHandler.Get)
		api.PUT("/dealers/:id", dealerHandler.Update)
		api.PATCH("/dealers/:id", dealerHandler.Update)
		api.DELETE("/dealers/:id", dealerHandler.Delete)

		api.GET("/orders", orderHandler.List)
		api.POST("/orders", orderHandler.Create)
		api.GET("/orders/:id", orderHandler.Get)
		api.PUT("/orders/:id", orderHandler.Update)
		api.PATCH("/orders/:id", orderHandler.Update)
		api.DELETE("/orders/:id", orderHandler.Delete)
		api.POST("/orders/:id/confirm", orderHandler.Confirm)
		api.POST("/orders/:id/deliver", orderHandler.Deliver)

		api.GET("/inventories", inventoryHandler.List)
		api.GET("/inventories/:product_id", inventoryHandler.Get)
		api.PUT("/inventories/:product_id", inventoryHandler.SetQuantity)
		api.PATCH("/inventories/:product_id", inventoryHandler.SetQuantity)
	}

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// 7. Start Server
	port := config.AppConfig.Server.Port
	log.Info().Str("port", port).Msg("Server starting")
	if err := r.Run(":" + port); err != nil {
		log.Fatal().Err(err).Msg("Failed to run server")
	}
}
