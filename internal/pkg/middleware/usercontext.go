package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/solacehq/solace/app/repository"
	"github.com/solacehq/solace/internal/pkg/env"
	"github.com/solacehq/solace/internal/pkg/security"
	"github.com/solacehq/solace/internal/pkg/session"
	"github.com/solacehq/solace/internal/pkg/usercontext"
)

// VisitorCookieName carries the signed anonymous visitor token.
const VisitorCookieName = "visitor_token"

// UserContextMiddleware sets up the complete user context for every request.
// Logged-in users are resolved from the session store; everyone else gets
// their visitor id from the signed visitor cookie when present.
func UserContextMiddleware(c *fiber.Ctx) error {
	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		c.Locals("USER_CONTEXT", anonymousContext(c))
		return c.Next()
	}

	userID, ok := sess.Get(usercontext.KeyUserID).(uint)
	if !ok || userID == 0 {
		c.Locals("USER_CONTEXT", anonymousContext(c))
		return c.Next()
	}

	userCtx := usercontext.UserContext{
		UserID:     userID,
		IsLoggedIn: true,
	}

	// Plan is read from the account row so tier changes apply immediately.
	if user, err := repository.GetGlobalFactory().GetUserRepository().GetByID(userID); err == nil {
		userCtx.Email = user.Email
		userCtx.Plan = user.Plan
	}

	c.Locals("USER_CONTEXT", userCtx)
	return c.Next()
}

func anonymousContext(c *fiber.Ctx) usercontext.UserContext {
	userCtx := usercontext.UserContext{IsLoggedIn: false}

	token := c.Cookies(VisitorCookieName)
	if token == "" {
		return userCtx
	}
	claims, err := security.VerifyVisitorToken(token, env.GetEnv("APP_SECRET", ""))
	if err != nil {
		return userCtx
	}
	userCtx.VisitorID = claims.VisitorID
	return userCtx
}
