package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"govflow/authz"
)

var (
	// ErrNotFound signals the profile does not exist.
	ErrNotFound = errors.New("profile: not found")
	// ErrDuplicateEmail signals the email is already registered.
	ErrDuplicateEmail = errors.New("profile: email already exists")
)

// Repository handles data access for reviewer identities.
type Repository interface {
	Create(ctx context.Context, params CreateParams) (Profile, error)
	GetByEmail(ctx context.Context, email string) (Profile, error)
	GetByID(ctx context.Context, id string) (Profile, error)
}

// CreateParams contains write parameters for creating profiles.
type CreateParams struct {
	Email        string
	FullName     string
	PasswordHash string
	AccessLevel  authz.AccessLevel
	Role         authz.AccountRole
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a PostgreSQL-backed profile repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const profileColumns = `id, email, full_name, password_hash, access_level, account_role, created_at, updated_at`

func (r *PGRepository) Create(ctx context.Context, params CreateParams) (Profile, error) {
	const insertSQL = `
		INSERT INTO profiles (email, full_name, password_hash, access_level, account_role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + profileColumns

	p, err := scanProfile(r.pool.QueryRow(ctx, insertSQL,
		params.Email, params.FullName, params.PasswordHash,
		params.AccessLevel.String(), params.Role.String(),
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Profile{}, ErrDuplicateEmail
		}
		return Profile{}, fmt.Errorf("profile: create: %w", err)
	}
	return p, nil
}

func (r *PGRepository) GetByEmail(ctx context.Context, email string) (Profile, error) {
	const selectSQL = `SELECT ` + profileColumns + ` FROM profiles WHERE email = $1`

	p, err := scanProfile(r.pool.QueryRow(ctx, selectSQL, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, fmt.Errorf("profile: get by email: %w", err)
	}
	return p, nil
}

func (r *PGRepository) GetByID(ctx context.Context, id string) (Profile, error) {
	const selectSQL = `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`

	p, err := scanProfile(r.pool.QueryRow(ctx, selectSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, fmt.Errorf("profile: get by id: %w", err)
	}
	return p, nil
}

func scanProfile(row pgx.Row) (Profile, error) {
	var (
		p     Profile
		level string
		role  string
	)
	if err := row.Scan(&p.ID, &p.Email, &p.FullName, &p.PasswordHash, &level, &role, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Profile{}, err
	}
	p.AccessLevel = authz.ParseAccessLevel(level)
	p.Role = authz.ParseAccountRole(role)
	return p, nil
}
