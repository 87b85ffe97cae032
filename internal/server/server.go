package server

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/versesong/api/internal/apperr"
	"github.com/versesong/api/internal/client"
	"github.com/versesong/api/internal/config"
	"github.com/versesong/api/internal/handler"
	"github.com/versesong/api/internal/middleware"
	"github.com/versesong/api/internal/service"
	ws "github.com/versesong/api/internal/websocket"
	"github.com/versesong/api/pkg/response"
)

// Deps is everything the HTTP surface needs
type Deps struct {
	Verse         *service.VerseService
	Music         *service.MusicService
	Callbacks     *service.CallbackService
	Notifications *service.NotificationService
	Hub           *ws.Hub
	Text          client.TextGenerator
	MusicClient   client.MusicGenerator
	Limiter       *middleware.RateLimiter
	RateLimit     config.RateLimitConfig
	// AccessLog enables the request logger middleware
	AccessLog bool
}

// New builds the Fiber app with every route mounted
func New(d *Deps) *fiber.App {
	validate := validator.New()

	verseHandler := handler.NewVerseHandler(d.Verse, validate)
	musicHandler := handler.NewMusicHandler(d.Music, validate)
	callbackHandler := handler.NewCallbackHandler(d.Callbacks)
	notificationHandler := handler.NewNotificationHandler(d.Notifications, validate)
	setupHandler := handler.NewSetupHandler(d.Text, d.MusicClient)
	streamHandler := handler.NewStreamHandler(d.Hub)

	app := fiber.New(fiber.Config{
		ErrorHandler:          customErrorHandler,
		BodyLimit:             1 * 1024 * 1024, // 1MB
		DisableStartupMessage: true,
	})

	// Global middleware
	app.Use(recover.New())
	if d.AccessLog {
		app.Use(logger.New(logger.Config{
			Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
		}))
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"name": "versesong", "timestamp": time.Now().Unix()})
	})
	app.Get("/health", setupHandler.Health)

	api := app.Group("/api")
	api.Get("/setup", setupHandler.Setup)

	// Verse routes
	api.Post("/verse/generate", d.Limiter.VerseLimit(d.RateLimit.VersePerMin), verseHandler.Generate)

	// Music routes
	music := api.Group("/music")
	music.Post("/generate", d.Limiter.MusicLimit(d.RateLimit.MusicPerHour), musicHandler.Generate)
	music.Post("/status", musicHandler.Status)
	music.Get("/job", musicHandler.Job)
	music.Post("/callback", callbackHandler.Receive)
	music.Get("/callback", callbackHandler.Echo)

	// Notification routes
	api.Post("/notifications", notificationHandler.Post)
	api.Get("/notifications", notificationHandler.Get)

	// WebSocket routes
	app.Get("/ws/notifications/:sessionId", streamHandler.Upgrade, streamHandler.Notifications())

	return app
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	var e *fiber.Error
	if !errors.As(err, &e) {
		return response.FromError(c, err)
	}

	kind := apperr.KindService
	switch e.Code {
	case fiber.StatusNotFound, fiber.StatusMethodNotAllowed:
		kind = apperr.KindNotFound
	case fiber.StatusTooManyRequests:
		kind = apperr.KindRateLimited
	case fiber.StatusInternalServerError, fiber.StatusBadGateway, fiber.StatusServiceUnavailable:
		kind = apperr.KindService
	default:
		if e.Code >= 400 && e.Code < 500 {
			kind = apperr.KindValidation
		}
	}

	return c.Status(e.Code).JSON(response.ErrorResponse{
		Error:     e.Message,
		Type:      kind,
		Retryable: kind.Retryable(),
	})
}
