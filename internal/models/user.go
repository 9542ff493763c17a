package models

import "time"

// UserRole distinguishes the actors of the attendance engine.
type UserRole string

const (
	RoleAdmin      UserRole = "admin"
	RoleInstructor UserRole = "instructor"
	RoleStudent    UserRole = "student"
)

// CanManageAttendance reports whether the role may issue codes and mutate the
// ledger directly. Admins inherit instructor capabilities.
func (r UserRole) CanManageAttendance() bool {
	return r == RoleInstructor || r == RoleAdmin
}

// User is an account in the academy administration tool.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         UserRole   `db:"role" json:"role"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Active       bool       `db:"active" json:"active"`
	LastLoginAt  *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}
