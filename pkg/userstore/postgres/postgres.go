// Package postgres provides a PostgreSQL implementation of
// userstore.Store. It uses pgx/v5 for connection pooling and relies on
// unique constraints for conflict detection.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pforte-dev/pforte/pkg/userstore"
)

// Store is a PostgreSQL-backed user store.
type Store struct {
	pool *pgxpool.Pool
}

// Ensure Store implements userstore.Store at compile time.
var _ userstore.Store = (*Store)(nil)

// New creates a new PostgreSQL store with the given configuration.
// If MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connectivity.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool}

	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

const userColumns = "id, username, password_hash, active, internal_groups, auth_methods, created_at, updated_at"

// Get retrieves a user by ID.
func (s *Store) Get(ctx context.Context, id string) (*userstore.User, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1", id)
	return scanUser(row)
}

// GetByUsername retrieves a user by username.
func (s *Store) GetByUsername(ctx context.Context, username string) (*userstore.User, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE username = $1", username)
	return scanUser(row)
}

// List returns all users ordered by username.
func (s *Store) List(ctx context.Context) ([]*userstore.User, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY username")
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	var users []*userstore.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Create inserts a new user.
func (s *Store) Create(ctx context.Context, u *userstore.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, username, password_hash, active, internal_groups, auth_methods, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		u.ID, u.Username, u.PasswordHash, u.Active,
		u.InternalGroups, u.AuthMethods, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return userstore.ErrConflict
		}
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

// Update replaces an existing user record by ID.
func (s *Store) Update(ctx context.Context, u *userstore.User) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE users
		SET username = $2, password_hash = $3, active = $4,
		    internal_groups = $5, auth_methods = $6, updated_at = $7
		WHERE id = $1`,
		u.ID, u.Username, u.PasswordHash, u.Active,
		u.InternalGroups, u.AuthMethods, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("updating user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return userstore.ErrNotFound
	}
	return nil
}

// Delete physically removes a record.
func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return userstore.ErrNotFound
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// scanUser reads one user row.
func scanUser(row pgx.Row) (*userstore.User, error) {
	var u userstore.User
	err := row.Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.Active,
		&u.InternalGroups, &u.AuthMethods, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, userstore.ErrNotFound
		}
		return nil, fmt.Errorf("scanning user: %w", err)
	}
	return &u, nil
}
