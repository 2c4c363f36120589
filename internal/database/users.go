package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicate is returned when a unique constraint rejects an insert or update.
	ErrDuplicate = errors.New("duplicate value")
)

// User is a platform account. Phone and email are each optional but at least
// one is always present; the password hash is nil for SMS-only accounts.
type User struct {
	ID             uuid.UUID
	Phone          *string
	Email          *string
	Nickname       *string
	Avatar         *string
	Gender         *string
	HashedPassword *string
	IsVIP          bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ProfilePatch carries merge-patch profile updates; nil fields stay untouched.
type ProfilePatch struct {
	Nickname *string
	Avatar   *string
	Gender   *string
	Email    *string
}

const userColumns = `id, phone, email, nickname, avatar, gender, hashed_password, is_vip, created_at, updated_at`

// UserRepository handles all database operations for users.
type UserRepository struct {
	db Service
}

// NewUserRepository creates a users repository.
func NewUserRepository(db Service) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row pgx.Row) (*User, error) {
	u := &User{}
	err := row.Scan(
		&u.ID,
		&u.Phone,
		&u.Email,
		&u.Nickname,
		&u.Avatar,
		&u.Gender,
		&u.HashedPassword,
		&u.IsVIP,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

// GetByID retrieves a user by primary key.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRow(ctx, query, id))
}

// GetByPhone retrieves a user by phone number.
func (r *UserRepository) GetByPhone(ctx context.Context, phone string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE phone = $1`
	return scanUser(r.db.QueryRow(ctx, query, phone))
}

// GetByEmail retrieves a user by email address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRow(ctx, query, email))
}

// CreateWithPhone inserts a phone-based account. hashedPassword and nickname
// may be nil (SMS auto-registration creates password-less accounts).
func (r *UserRepository) CreateWithPhone(ctx context.Context, phone string, hashedPassword, nickname *string) (*User, error) {
	query := `
		INSERT INTO users (phone, hashed_password, nickname, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING ` + userColumns
	user, err := scanUser(r.db.QueryRow(ctx, query, phone, hashedPassword, nickname))
	if err != nil {
		return nil, mapDuplicate(err)
	}
	return user, nil
}

// CreateWithEmail inserts an email-based account.
func (r *UserRepository) CreateWithEmail(ctx context.Context, email, hashedPassword string, nickname *string) (*User, error) {
	query := `
		INSERT INTO users (email, hashed_password, nickname, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING ` + userColumns
	user, err := scanUser(r.db.QueryRow(ctx, query, email, hashedPassword, nickname))
	if err != nil {
		return nil, mapDuplicate(err)
	}
	return user, nil
}

// UpdateProfile applies a merge-patch to the user's profile fields and
// returns the updated row. COALESCE keeps unset fields intact.
func (r *UserRepository) UpdateProfile(ctx context.Context, id uuid.UUID, patch ProfilePatch) (*User, error) {
	query := `
		UPDATE users
		SET nickname   = COALESCE($2, nickname),
		    avatar     = COALESCE($3, avatar),
		    gender     = COALESCE($4, gender),
		    email      = COALESCE($5, email),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns
	user, err := scanUser(r.db.QueryRow(ctx, query, id, patch.Nickname, patch.Avatar, patch.Gender, patch.Email))
	if err != nil {
		return nil, mapDuplicate(err)
	}
	return user, nil
}

// SetPassword replaces the user's password hash.
func (r *UserRepository) SetPassword(ctx context.Context, id uuid.UUID, hashedPassword string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET hashed_password = $2, updated_at = NOW() WHERE id = $1`,
		id, hashedPassword)
	if err != nil {
		return fmt.Errorf("set password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func mapDuplicate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}
