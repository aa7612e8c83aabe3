package types

// RoleAdmin and RoleUser are the roles the backend assigns.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User represents an account as listed by the admin endpoint.
type User struct {
	// UserID is the unique identifier of the user.
	UserID int64 `json:"userId"`

	// Username is the unique login name chosen by the user.
	Username string `json:"username"`

	// Email is the user's email address.
	Email string `json:"email"`

	// Role indicates the user's authorization level ("admin", "user").
	Role string `json:"role"`
}
