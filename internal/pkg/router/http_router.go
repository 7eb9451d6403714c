package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/solacehq/solace/app/controllers"
	"github.com/solacehq/solace/app/repository"
	"github.com/solacehq/solace/internal/pkg/database"
	"github.com/solacehq/solace/internal/pkg/middleware"
	"github.com/solacehq/solace/internal/pkg/session"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session
	session.NewSessionStore()

	// init repositories
	repository.InitializeFactory(database.GetDB())

	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware)

	// Initialize controllers that carry wired provider clients
	controllers.InitializeChatController()
	controllers.InitializeCheckoutController()
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
