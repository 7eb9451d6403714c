package usercontext

// Shared Locals/session keys used across controllers and middlewares
const (
	KeyUserID    = "user_id"
	KeyUserEmail = "user_email"
	KeyUserPlan  = "user_plan"
	KeyVisitorID = "visitor_id"
)
