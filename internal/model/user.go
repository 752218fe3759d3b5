package model

import "time"

// User roles.  ADMIN provisions sessions and seats; CUSTOMER reserves and
// buys them.
const (
    RoleAdmin    = "ADMIN"
    RoleCustomer = "CUSTOMER"
)

// User is an account able to authenticate against the API.  Only the
// bcrypt hash of the password is stored.
type User struct {
    ID           uint64    // users.id
    Email        string    // users.email (unique)
    PasswordHash string    // users.password_hash
    Role         string    // users.role
    CreatedAt    time.Time // users.created_at
    UpdatedAt    time.Time // users.updated_at
}
