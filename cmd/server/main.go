package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"

	"go-match/internal/chat"
	"go-match/internal/config"
	"go-match/internal/db"
	myMiddleware "go-match/internal/middleware"
	"go-match/internal/presence"
	"go-match/internal/quota"
	"go-match/internal/swipe"
	"go-match/internal/user"
	"go-match/internal/validate"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
)

func main() {
	// 1. Config & Flags
	addr := flag.String("addr", "", "http service address (overrides LISTEN_ADDR)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Config error: %v", err)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// 2. Connect to the platform layer
	database, err := db.NewDatabase(cfg.DSN)
	if err != nil {
		log.Fatalf("❌ Failed to connect to DB: %v", err)
	}
	log.Println("✅ Connected to PostgreSQL")

	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}
	log.Println("✅ Database schema initialized")

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		log.Fatalf("❌ Failed to connect to Redis: %v", err)
	}
	log.Println("✅ Connected to Redis")

	val := validate.New()

	// 3. Identity
	userRepo := user.NewRepository(database.Conn)
	userService := user.NewService(userRepo, cfg.JWTSecret)
	userHandler := user.NewHandler(userService, val, logger)

	// 4. Presence + room routing
	registry := presence.NewRegistry()
	broker := chat.NewRedisBroker(redisClient, logger)
	hub := chat.NewHub(broker, registry, userRepo, logger)
	go hub.Run(context.Background())

	// 5. Chat
	chatRepo := chat.NewRepository(database.Conn)
	chatService := chat.NewService(chatRepo, hub, logger)
	chatHandler := chat.NewHandler(hub, chatService, val, logger)

	// 6. Swiping & matching. Matches are announced through the chat service's
	// per-user channels.
	swipeRepo := swipe.NewRepository(database.Conn)
	limiter := quota.NewRedisLimiter(redisClient, cfg.SwipeDailyLimit)
	swipeService := swipe.NewService(swipeRepo, userRepo, limiter, chatService, cfg.PassCooldown, logger)
	swipeHandler := swipe.NewHandler(swipeService, val, logger)

	authMiddleware := myMiddleware.NewAuthMiddleware(userService)

	// 7. Routes
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Public routes
	r.Post("/register", userHandler.Register)
	r.Post("/login", userHandler.Login)

	// Protected routes (require JWT)
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Handle)
		r.Get("/api/users/search", userHandler.SearchUsers)

		// WebSocket (real-time)
		r.Get("/ws", chatHandler.ServeWs)

		// Discovery
		r.Get("/api/explore", swipeHandler.Explore)
		r.Post("/api/swipes", swipeHandler.Swipe)

		// Conversations & messages
		r.Post("/api/conversations", chatHandler.StartConversation)
		r.Get("/api/conversations", chatHandler.ListConversations)
		r.Get("/api/conversations/{conversationID}/messages", chatHandler.GetMessages)
		r.Post("/api/conversations/{conversationID}/messages", chatHandler.SendMessage)
		r.Post("/api/conversations/{conversationID}/read", chatHandler.MarkRead)
		r.Post("/api/messages/{messageID}/delivered", chatHandler.MarkDelivered)
	})

	log.Printf("🚀 Server starting on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, r); err != nil {
		log.Fatal(err)
	}
}
