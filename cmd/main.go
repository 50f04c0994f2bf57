package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"fixly-app/marketplace-service/internal/config"
	"fixly-app/marketplace-service/internal/handler"
	"fixly-app/marketplace-service/internal/repository"
	"fixly-app/marketplace-service/internal/services"
	"fixly-app/marketplace-service/internal/utils"
)

func main() {
	baseCtx := context.Background()
	ctx, shutdownManager := utils.NewShutdownManager(baseCtx)
	shutdownManager.StartListening()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	db := mongoClient.Database(cfg.MongoDatabase)

	shutdownManager.Register("MongoDB connection", mongoClient.Disconnect)

	if err := repository.EnsureIndexes(ctx, db); err != nil {
		log.Fatal("Failed to ensure indexes:", err)
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatal("Invalid Redis URL:", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal("Failed to ping Redis:", err)
	}

	shutdownManager.Register("Redis connection", func(context.Context) error {
		return rdb.Close()
	})

	requestRepo := repository.NewRequestRepository(db)
	workerRepo := repository.NewWorkerRepository(db)
	trackingRepo := repository.NewTrackingRepository(db)

	reviewClient := utils.NewReviewClient(cfg.ReviewServiceURL)

	requestService := services.NewRequestService(requestRepo, workerRepo, trackingRepo, rdb, cfg, reviewClient)
	workerService := services.NewWorkerService(workerRepo)
	trackingService := services.NewTrackingService(trackingRepo, requestRepo, workerRepo, rdb)

	requestHandler := handler.NewRequestHandler(requestService)
	workerHandler := handler.NewWorkerHandler(workerService)
	trackingHandler := handler.NewTrackingHandler(trackingService)

	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://localhost:8001"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.Use(utils.AuthMiddleware(cfg.JWTSecret))

	requests := router.Group("/api/requests")
	{
		requests.POST("/", utils.RequireRoles("customer"), requestHandler.Create)
		requests.GET("/my", requestHandler.GetMine)
		requests.GET("/:id", requestHandler.GetByID)
		requests.POST("/:id/cancel", requestHandler.Terminate)
		requests.POST("/:id/rate", requestHandler.Rate)

		workerOnly := requests.Group("/")
		workerOnly.Use(utils.RequireRoles("worker"))
		{
			workerOnly.GET("/nearby", requestHandler.GetNearby)
			workerOnly.POST("/:id/accept", requestHandler.Accept)
			workerOnly.POST("/:id/reject", requestHandler.Terminate)
			workerOnly.POST("/:id/start", requestHandler.Start)
			workerOnly.POST("/:id/complete", requestHandler.Complete)
		}
	}

	trackings := router.Group("/api/trackings")
	{
		trackings.GET("/live", trackingHandler.ListLive)
		trackings.GET("/request/:id", trackingHandler.GetByRequest)
		trackings.GET("/request/:id/history", trackingHandler.History)

		workerOnly := trackings.Group("/")
		workerOnly.Use(utils.RequireRoles("worker"))
		{
			workerOnly.POST("/", trackingHandler.Open)
			workerOnly.PUT("/:id/location", trackingHandler.UpdateLocation)
			workerOnly.PUT("/:id/status", trackingHandler.UpdateStatus)
			workerOnly.PUT("/:id/end", trackingHandler.End)
		}
	}

	workers := router.Group("/api/workers")
	{
		workers.GET("/search", workerHandler.Search)
		workers.GET("/:id", workerHandler.GetByID)

		workerOnly := workers.Group("/")
		workerOnly.Use(utils.RequireRoles("worker"))
		{
			workerOnly.POST("/", workerHandler.Register)
			workerOnly.GET("/me", workerHandler.GetMe)
			workerOnly.PUT("/me", workerHandler.UpdateProfile)
			workerOnly.PUT("/me/location", workerHandler.UpdateLocation)
			workerOnly.PUT("/me/availability", workerHandler.SetAvailability)
		}
	}

	server := &http.Server{
		Addr:    cfg.ServerPort,
		Handler: router,
	}

	go func() {
		log.Printf("Marketplace service running on %s", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	shutdownManager.Register("HTTP server", server.Shutdown)

	select {}
}
