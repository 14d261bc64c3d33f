package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blindify/backend/internal/config"
	"github.com/blindify/backend/internal/repository/postgres"
	"github.com/blindify/backend/internal/repository/redis"
	"github.com/blindify/backend/internal/service/catalog"
	"github.com/blindify/backend/internal/service/cleanup"
	"github.com/blindify/backend/internal/service/game"
	"github.com/blindify/backend/internal/service/ratelimit"
	"github.com/blindify/backend/internal/service/room"
	"github.com/blindify/backend/internal/service/session"
	"github.com/blindify/backend/internal/service/spotify"
	transportHttp "github.com/blindify/backend/internal/transport/http"
	"github.com/blindify/backend/internal/transport/websocket"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("../.env"); err != nil {
			log.Println("No .env file found")
		}
	}

	// 1. Configuration
	cfg := config.LoadConfig()

	// 2. Database
	db, err := postgres.Open(cfg.DatabaseURL, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetimeMin)
	if err != nil {
		log.Fatalf("Database unreachable: %v", err)
	}
	defer db.Close()

	log.Println("Running database migrations...")
	if err := postgres.RunMigrations(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("Database migration completed successfully")

	// 3. Repositories
	userRepo := postgres.NewUserRepo(db)
	trackRepo := postgres.NewTrackRepo(db)
	gameRepo := postgres.NewGameRepo(db)

	// 3b. Redis (optional)
	if err := redis.InitRedis(cfg.RedisURL, cfg.RedisPassword); err != nil {
		log.Printf("Failed to initialize Redis: %v", err)
	}
	defer redis.CloseRedis()

	var cache session.CacheRepository
	var counter ratelimit.Counter
	if redis.IsRedisEnabled() && redis.RedisClient != nil {
		redisCache := redis.NewRedisCache(redis.RedisClient)
		cache = redisCache
		counter = redisCache
	}

	// 4. Services
	spotifyClient := spotify.NewClient(cfg.OAuthConfig.APIURL)
	authService := session.NewAuthService(userRepo, cache, cfg.OAuthConfig.SpotifyLoginConfig, spotifyClient)
	catalogService := catalog.NewService(trackRepo, spotifyClient, cfg.TrackImportLimit)
	gameService := game.NewService(gameRepo, trackRepo)

	connManager := websocket.NewConnectionManager()
	roomRegistry := room.NewRegistry(connManager, gameService)
	limiter := ratelimit.NewLimiter(counter, cfg.RateLimitPerMinute, cfg.SlowDownAfter, cfg.SlowDownDelay)

	// 5. Background workers
	cleanupWorker := cleanup.NewWorker(roomRegistry, limiter, gameRepo, cfg.RoomIdleTTL)
	if err := cleanupWorker.Start(); err != nil {
		log.Fatalf("Failed to start cleanup worker: %v", err)
	}
	defer cleanupWorker.Stop()

	// 6. HTTP layer
	wsHandler := websocket.NewHandler(connManager)
	router := transportHttp.NewRouter(transportHttp.Handlers{
		OAuth:     transportHttp.NewOAuthHandler(authService),
		Auth:      transportHttp.NewAuthHandler(authService, gameService),
		Tracks:    transportHttp.NewTrackHandler(catalogService),
		Games:     transportHttp.NewGameHandler(gameService),
		Rooms:     transportHttp.NewRoomHandler(roomRegistry),
		Health:    transportHttp.NewHealthHandler(db, redis.IsRedisEnabled),
		WebSocket: wsHandler.HandleWebSocket,
	}, authService, limiter)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("Server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	connManager.CloseAll()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited gracefully")
}
