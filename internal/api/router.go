package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouteConfig struct {
	JWTSecret      []byte
	InternalSecret string

	// RateLimitMax caps public avatar requests per client IP. Zero disables it.
	RateLimitMax        int
	RateLimitExpiration time.Duration
}

func SetupRoutes(app *fiber.App, h *AvatarHandler, cfg RouteConfig) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": "avatar-service"})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	v1 := app.Group("/v1")

	avatars := v1.Group("/avatars")
	if cfg.RateLimitMax > 0 {
		avatars.Use(limiter.New(limiter.Config{
			Max:        cfg.RateLimitMax,
			Expiration: cfg.RateLimitExpiration,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
					"error": "Too many request, please try again later.",
				})
			},
		}))
	}
	avatars.Get("/:username", h.RedirectAvatar)
	avatars.Get("/:username/change", h.RedirectChangeAvatar)

	// registered before /users/:id/avatar so "me" is not parsed as an id
	me := v1.Group("/users/me", AuthMiddleware(cfg.JWTSecret))
	me.Get("/avatar", h.GetMyAvatarLinks)
	me.Post("/avatar/upload-url", h.GetAvatarUploadURL)

	v1.Get("/users/:id/avatar", InternalAuthMiddleware(cfg.InternalSecret), h.GetUserAvatarLinks)
}
