package model

// User roles
const (
	RoleUser  = "ROLE_USER"
	RoleAdmin = "ROLE_ADMIN"
)

// User represents a system user
type User struct {
	Base
	Username     string `json:"username" db:"username"`
	PasswordHash string `json:"-" db:"password_hash"`
	FullName     string `json:"fullName" db:"full_name"`
	Email        string `json:"email" db:"email"`
	Role         string `json:"role" db:"role"`
	Active       bool   `json:"active" db:"active"`
}

// SeedUser describes a default account created at startup when missing.
type SeedUser struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	FullName string `mapstructure:"full_name"`
	Email    string `mapstructure:"email"`
	Role     string `mapstructure:"role"`
}
