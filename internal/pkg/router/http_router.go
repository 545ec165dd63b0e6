package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/careerforge/careerforge/app/controllers"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	h.registerPublicRoutes(app)
}

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	app.Get("/healthz", controllers.HandleHealth)

	// Account creation and password login (no API key yet)
	app.Post("/register", controllers.HandleRegister)
	app.Post("/login", controllers.HandleLogin)

	// Payment gateway webhooks (no auth, signature-verified in the service)
	app.Post("/webhooks/razorpay", controllers.HandlePaymentWebhook)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
