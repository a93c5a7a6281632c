package globals

// Context keys
type ContextKey string

const (
	RoleKey     ContextKey = "role"
	UserIDKey   ContextKey = "userId"
	UsernameKey ContextKey = "username"
)
