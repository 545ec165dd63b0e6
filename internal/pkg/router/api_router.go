package router

import (
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	redisstorage "github.com/gofiber/storage/redis"

	"github.com/careerforge/careerforge/app/controllers"
	"github.com/careerforge/careerforge/internal/pkg/cache"
	"github.com/careerforge/careerforge/internal/pkg/env"
	"github.com/careerforge/careerforge/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		Storage:    newLimiterStorage(),
	}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "CareerForge API",
		})
	})

	v1 := api.Group("/v1", middleware.APIKeyAuthMiddleware())

	// Account
	v1.Get("/user/account", controllers.HandleGetUserAccount)
	v1.Get("/user/credits", controllers.HandleGetCreditBalance)
	v1.Post("/user/api-key/rotate", controllers.HandleRotateAPIKey)

	// Payments
	v1.Post("/payments/orders", controllers.HandleCreateOrder)
	v1.Post("/payments/callback", controllers.HandlePaymentCallback)
	v1.Get("/payments", controllers.HandleListPayments)
	v1.Get("/payments/:id", controllers.HandleGetPayment)

	// Mentor chat
	v1.Post("/chat/sessions", controllers.HandleCreateChatSession)
	v1.Get("/chat/sessions", controllers.HandleListChatSessions)
	v1.Get("/chat/sessions/:uuid", controllers.HandleGetChatSession)
	v1.Post("/chat/sessions/:uuid/messages", controllers.HandleSendChatMessage)
	v1.Get("/chat/messages/:uuid", controllers.HandleGetChatMessage)

	// Cover letters
	v1.Post("/cover-letters", controllers.HandleCreateCoverLetter)
	v1.Get("/cover-letters", controllers.HandleListCoverLetters)
	v1.Get("/cover-letters/:uuid", controllers.HandleGetCoverLetter)

	// Learning roadmaps
	v1.Post("/roadmaps", controllers.HandleCreateRoadmap)
	v1.Get("/roadmaps", controllers.HandleListRoadmaps)
	v1.Get("/roadmaps/:uuid", controllers.HandleGetRoadmap)

	// Capstone reviews
	v1.Post("/capstone-reviews", controllers.HandleCreateCapstoneReview)
	v1.Get("/capstone-reviews", controllers.HandleListCapstoneReviews)
	v1.Get("/capstone-reviews/:uuid", controllers.HandleGetCapstoneReview)

	// Event streams for pending generations
	v1.Get("/events/:kind/:uuid", controllers.HandleEventStream)

	// Job status polling
	v1.Get("/jobs/:id", controllers.HandleGetJob)

	// Admin queue monitor
	v1.Get("/admin/queue/stats", controllers.HandleGetQueueStats)
	v1.Delete("/admin/queue/stats", controllers.HandleResetQueueStats)
}

// newLimiterStorage backs the rate limiter with Redis so limits hold across
// processes. Reuses the cache connection settings, separate database.
func newLimiterStorage() *redisstorage.Storage {
	host := "localhost"
	port := 6379
	password := env.GetEnv("CACHE_PASSWORD", "")
	if client := cache.GetClient(); client != nil {
		addr := client.Options().Addr
		if h, p, err := net.SplitHostPort(addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		if p := client.Options().Password; p != "" {
			password = p
		}
	}

	return redisstorage.New(redisstorage.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: 2,
		Reset:    false,
	})
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
