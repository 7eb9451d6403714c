package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/solacehq/solace/app/controllers"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New(limiter.Config{Max: 60}))

	v1 := api.Group("/v1")
	v1.Get("/ping", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"ping": "pong"})
	})

	v1.Post("/register", controllers.HandleRegister)
	v1.Post("/chat", controllers.HandleChat)
	v1.Get("/conversations/:id", controllers.HandleGetConversation)
	v1.Get("/tokens/:accountId", controllers.HandleGetTokens)
	v1.Post("/checkout/sessions", controllers.HandleCreateCheckoutSession)

	// Webhooks are authenticated by signature, not session, and live outside
	// the rate-limited /api prefix so provider redeliveries never bounce.
	app.Post("/webhooks/payment", controllers.HandlePaymentWebhook)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
