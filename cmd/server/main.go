package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/postpilothq/postpilot/configs"
	"github.com/postpilothq/postpilot/internal/api/handlers"
	"github.com/postpilothq/postpilot/internal/api/middleware"
	job "github.com/postpilothq/postpilot/internal/jobs"
	"github.com/postpilothq/postpilot/internal/platform"
	"github.com/postpilothq/postpilot/internal/queue"
	"github.com/postpilothq/postpilot/internal/repository"
	"github.com/postpilothq/postpilot/internal/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	pageRepo := repository.NewPageRepository(db)
	connRepo := repository.NewConnectionRepository(db)
	lockRepo := repository.NewLockRepository(db)
	mediaAssetRepo := repository.NewMediaAssetRepository(db)
	apiKeyRepo := repository.NewApiKeyRepository(db)

	registry := platform.NewRegistry(
		platform.NewLinkedinAdapter(*cfg),
		platform.NewTwitterAdapter(*cfg),
		platform.NewFacebookAdapter(*cfg),
	)

	authService := service.NewAuthService(*cfg, userRepo)
	userService := service.NewUserService(userRepo)
	r2Service := service.NewR2Service(*cfg)
	postService := service.NewPostService(db, postRepo, pageRepo, mediaAssetRepo, *r2Service)
	pageService := service.NewPageService(pageRepo, connRepo, cfg.SecretKey)
	apiKeyService := service.NewApiKeyService(apiKeyRepo)
	tokenService := service.NewTokenService(connRepo, cfg.SecretKey)
	publishService := service.NewPublishService(registry, tokenService)
	linkedinService := service.NewLinkedinService()

	publishJob := job.NewPublishJob(lockRepo, postRepo, pageRepo, userRepo, connRepo,
		publishService, linkedinService, cfg.SecretKey, cfg.PublishLockTTL)
	refreshTokenJob := job.NewTokenRefreshJob(connRepo, registry, tokenService, cfg.SecretKey)

	authMiddleware := middleware.NewAuthMiddleware(*cfg, apiKeyService)

	auth := handlers.NewAuthHandler(*cfg, authService)
	app.Post("/login", auth.Login)
	app.Post("/logout", auth.Logout)

	cronHandler := handlers.NewCronHandler(publishJob, cfg.CronSecret)
	app.Get("/api/cron/publish", cronHandler.RunPublish)
	app.Post("/api/cron/publish", cronHandler.RunPublish)

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	user := handlers.NewUserHandler(userService)
	api.Get("/user/info", user.GetUserInfo)

	apiKeys := handlers.NewApiKeyHandler(apiKeyService)
	api.Post("/api_key/new", apiKeys.CreateApiKey)
	api.Get("/api_key/list", apiKeys.ListKeys)
	api.Post("/api_key/remove", apiKeys.RemoveApiKey)

	post := handlers.NewPostHandler(postService, client)
	api.Post("/posts/create", post.CreatePost)
	api.Get("/posts", post.ListPosts)
	api.Post("/posts/remove", post.RemovePost)

	page := handlers.NewPageHandler(pageService)
	api.Post("/pages/create", page.CreatePage)
	api.Get("/pages", page.ListPages)
	api.Post("/pages/remove", page.RemovePage)
	api.Post("/connections/create", page.CreateConnection)
	api.Get("/connections", page.ListConnections)
	api.Post("/connections/remove", page.RemoveConnection)

	// cron jobs
	c := cron.New()
	c.AddFunc("@every 00h10m00s", refreshTokenJob.RefreshTokens)
	c.Start()

	// queue worker
	worker := queue.NewWorker(publishJob)

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 10,
		})

		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypePublishPost, worker.HandlePublishPostTask)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(":3000"); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Println("Server is running on http://localhost:3000")

	gracefulShutdown(app, db)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
