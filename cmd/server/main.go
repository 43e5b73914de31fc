package main

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/joho/godotenv"
	"github.com/raushan728/studyhub-backend/internal/cache"
	"github.com/raushan728/studyhub-backend/internal/handlers"
	"github.com/raushan728/studyhub-backend/internal/middleware"
	"github.com/raushan728/studyhub-backend/internal/repository"
	"github.com/raushan728/studyhub-backend/internal/service"
	"github.com/raushan728/studyhub-backend/internal/storage"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	if os.Getenv("JWT_SECRET") == "" {
		log.Fatal("JWT_SECRET is required")
	}

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName: "StudyHub Backend",
		// Attachment uploads up to 10MB + multipart overhead.
		BodyLimit: 12 * 1024 * 1024,
	})

	// Middleware
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     os.Getenv("ALLOWED_ORIGINS"),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS",
		AllowCredentials: true,
	}))

	// Initialize database connection
	db, err := repository.InitDB()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Initialize Redis cache
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	redisDB := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if parsedDB, err := strconv.Atoi(dbStr); err == nil {
			redisDB = parsedDB
		}
	}

	redisCache := cache.NewRedisCache(redisAddr, os.Getenv("REDIS_PASSWORD"), redisDB)
	if err := redisCache.Ping(); err != nil {
		log.Printf("WARNING: Redis connection failed: %v. Running without cache.", err)
		redisCache = nil
	} else {
		log.Println("Redis cache connected successfully")
	}
	conversationCache := cache.NewConversationCache(redisCache)

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	// Initialize services
	chatService := service.NewChatService(conversationRepo, messageRepo, userRepo)
	queryService := service.NewConversationQueryService(conversationRepo, messageRepo, userRepo)

	// Initialize S3/MinIO storage (best-effort; upload endpoints return 503 if missing)
	var s3Store *storage.S3Storage
	if cfg, err := storage.LoadS3ConfigFromEnv(); err != nil {
		log.Printf("WARNING: S3 storage not configured: %v", err)
	} else if st, err := storage.NewS3Storage(cfg); err != nil {
		log.Printf("WARNING: Failed to initialize S3 storage: %v", err)
	} else {
		s3Store = st
		log.Printf("S3 storage initialized successfully (bucket=%s)", cfg.Bucket)
	}

	// Initialize handlers
	chatHandler := handlers.NewChatHandler(chatService, queryService, conversationCache)
	mediaHandler := handlers.NewMediaHandler(s3Store, chatService, conversationCache)

	// Protected routes
	api := app.Group("/api", middleware.AuthRequired())

	api.Get("/chats", chatHandler.ListChats)
	api.Post("/chats", chatHandler.CreateChat)
	api.Post("/chats/group", chatHandler.CreateGroupChat)
	api.Get("/chats/users", chatHandler.GetChatUsers)
	api.Get("/chats/:id", chatHandler.GetChat)
	api.Delete("/chats/:id", chatHandler.DeleteChat)
	api.Get("/chats/:id/messages", chatHandler.GetChatMessages)
	api.Post("/chats/:id/messages", chatHandler.SendMessage)
	api.Post("/chats/:id/read", chatHandler.MarkChatRead)
	api.Post(
		"/chats/:id/attachments",
		limiter.New(limiter.Config{
			Max:        20,
			Expiration: 10 * time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
		}),
		mediaHandler.UploadAttachment,
	)
	api.Get("/media/*", mediaHandler.GetAttachment)

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"message": "StudyHub backend is running",
		})
	})

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s...", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
