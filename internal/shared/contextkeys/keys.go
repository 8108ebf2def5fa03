package contextkeys

// contextKey is an unexported type to prevent collisions with context keys defined in
// other packages.
type contextKey string

// String makes contextKey satisfy the Stringer interface to assist with debugging.
func (c contextKey) String() string {
	return "thing-counter context key " + string(c)
}

const (
	// UserIDKey holds the authenticated user's uid
	UserIDKey = contextKey("userID")
	// UserEmailKey holds the authenticated user's email
	UserEmailKey = contextKey("userEmail")
	// RequestIDKey holds the X-Request-ID of the current request
	RequestIDKey = contextKey("requestID")
	// ComponentKey and OperationKey annotate log lines
	ComponentKey = contextKey("component")
	OperationKey = contextKey("operation")
)

// Fiber Locals keys. Websocket handlers only see Locals, not the user context.
const (
	LocalsUserID    = "userID"
	LocalsUserEmail = "userEmail"
	LocalsRequestID = "requestid"
)
