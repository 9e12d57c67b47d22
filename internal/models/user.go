package models

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleStaff UserRole = "staff"
)

// User is a stored credential. PasswordHash is a bcrypt hash, never a plaintext password.
type User struct {
	ID           string   `db:"id" json:"id"`
	Username     string   `db:"username" json:"username"`
	PasswordHash string   `db:"password_hash" json:"password_hash"`
	Role         UserRole `db:"role" json:"role"`
}
