package middlewares

const (
	CtxRequestID = "request_id"

	ctxUserIDKey = "session.userID"
	ctxEmailKey  = "session.email"
	ctxRoleKey   = "session.role"
)
