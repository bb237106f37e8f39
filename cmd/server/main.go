package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/gofiber/contrib/otelfiber/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5/stdlib"

	"avatar-service/internal/api"
	"avatar-service/internal/avatar"
	"avatar-service/internal/config"
	"avatar-service/internal/events"
	"avatar-service/internal/repository"
	"avatar-service/internal/s3"
	"avatar-service/internal/service"
	"avatar-service/internal/tracing"
	_ "avatar-service/migrations"
)

const serviceName = "avatar-service"

func main() {
	if err := godotenv.Load(".env.dev"); err != nil {
		fmt.Println("No .env.dev file found, reading from environment variables provided by Docker")
	}

	logger := api.SetupGlobalHandler(serviceName)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		handleMigrations(cfg.DB)
		return
	}

	ctx := context.Background()

	shutdownTracer, err := tracing.InitTracerProvider(ctx, serviceName, cfg.OTelEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize OpenTelemetry: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Printf("Error shutting down tracer provider: %v", err)
		}
	}()

	db := connectDB(cfg.DB)
	defer db.Close()

	filePresigner, err := s3.NewFilePresigner(ctx, cfg.S3)
	if err != nil {
		log.Fatalf("Failed to initialize S3 presigner: %v", err)
	}
	log.Println("Successfully initialized S3 presigner.")

	var publisher events.EventPublisher = events.NopPublisher{}
	natsPublisher, err := events.NewNatsPublisher(cfg.NatsURL)
	if err != nil {
		log.Printf("WARNING: Failed to connect to NATS, avatar events are disabled: %v", err)
	} else {
		defer natsPublisher.Close()
		publisher = natsPublisher
		log.Println("Successfully connected to NATS.")
	}

	resolver := avatar.NewResolver(cfg.Resolver(), avatar.WithLogger(logger))
	if cfg.Avatar.URL == nil {
		slog.Warn("AVATAR_URL is not set, avatars will not be shown")
	}
	uploadKeys := avatar.NewResolver(avatar.Config{URL: &cfg.Avatar.UploadKey}, avatar.WithLogger(logger))

	userRepo := repository.NewPostgresUserRepository(db)
	avatarService := service.NewAvatarService(userRepo, resolver, uploadKeys, filePresigner, publisher)
	avatarHandler := api.NewAvatarHandler(avatarService)

	app := fiber.New()
	app.Use(otelfiber.Middleware())
	app.Use(api.PrometheusMiddleware())

	api.SetupRoutes(app, avatarHandler, api.RouteConfig{
		JWTSecret:           []byte(cfg.JWTSecret),
		InternalSecret:      cfg.InternalSecret,
		RateLimitMax:        cfg.RateLimitMax,
		RateLimitExpiration: cfg.RateLimitExpiration,
	})

	log.Printf("Listening %s on port %s", serviceName, cfg.Port)
	log.Fatal(app.Listen(":" + cfg.Port))
}

func connectDB(cfg config.DBConfig) *sqlx.DB {
	db, err := sqlx.Connect("pgx", cfg.URL())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("Successfully connected to the database.")
	return db
}

func handleMigrations(cfg config.DBConfig) {
	fmt.Println("Running database migrations...")

	db, err := sql.Open("pgx", cfg.URL())
	if err != nil {
		log.Fatalf("failed to connect to database for migration: %v", err)
	}
	defer db.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatalf("failed to set goose dialect: %v", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		log.Fatalf("goose: failed to run migrations: %v", err)
	}

	fmt.Println("Migrations applied successfully!")
}
