package repository

import (
    "context"
    "database/sql"
    "errors"
    "strings"

    "github.com/tickethub/event-seat-reservation/internal/model"
    "github.com/tickethub/event-seat-reservation/internal/utils"
)

// UserRepo provides data access to the users table.
type UserRepo struct {
    db *sql.DB
}

// NewUserRepo returns a new UserRepo bound to the given database.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

// Create hashes the password with bcrypt and inserts a new user.  It
// returns the new user's id, or ErrEmailExists when the email is taken.
func (r *UserRepo) Create(ctx context.Context, email, password, role string, bcryptCost int) (uint64, error) {
    hash, err := utils.HashPassword(password, bcryptCost)
    if err != nil {
        return 0, err
    }
    const q = `INSERT INTO users (email, password_hash, role) VALUES (?, ?, ?)`
    result, err := r.db.ExecContext(ctx, q, email, hash, role)
    if err != nil {
        // 1062 is MySQL's duplicate-entry error; string match keeps the
        // driver types out of the repository surface.
        if strings.Contains(err.Error(), "1062") {
            return 0, ErrEmailExists
        }
        return 0, err
    }
    id, err := result.LastInsertId()
    if err != nil {
        return 0, err
    }
    return uint64(id), nil
}

// GetByEmail returns a user by email or ErrUserNotFound.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
    const q = `SELECT id, email, password_hash, role, created_at, updated_at
               FROM users WHERE email = ?`
    var u model.User
    err := r.db.QueryRowContext(ctx, q, email).Scan(
        &u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt,
    )
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrUserNotFound
    }
    if err != nil {
        return nil, err
    }
    return &u, nil
}
