package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"pulse/internal/auth"
)

// PostgresStore persists accounts in PostgreSQL. The pool is owned by
// the caller; the store never closes it.
type PostgresStore struct {
	pool  *pgxpool.Pool
	table string
}

// NewPostgresStore constructs a store over an existing pool.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, errors.New("user: nil pool")
	}
	return &PostgresStore{pool: pool, table: pgx.Identifier{"users"}.Sanitize()}, nil
}

const userColumns = "id, username, password_hash, role, state, created_at, updated_at"

func (s *PostgresStore) Create(ctx context.Context, u User) (User, error) {
	now := time.Now().UTC()
	err := s.pool.QueryRow(ctx,
		`INSERT INTO `+s.table+` (username, password_hash, role, state, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $5)
		 RETURNING id`,
		u.Username, u.PasswordHash, int(u.Role), int(u.State), now,
	).Scan(&u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrUsernameTaken
		}
		return User{}, err
	}
	u.CreatedAt = now
	u.UpdatedAt = now
	return u, nil
}

func (s *PostgresStore) ByID(ctx context.Context, id int64) (User, error) {
	return s.scanOne(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM `+s.table+` WHERE id = $1`, id))
}

func (s *PostgresStore) ByUsername(ctx context.Context, username string) (User, error) {
	return s.scanOne(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM `+s.table+` WHERE username = $1`,
		strings.TrimSpace(username)))
}

func (s *PostgresStore) Update(ctx context.Context, u User) (User, error) {
	now := time.Now().UTC()
	ct, err := s.pool.Exec(ctx,
		`UPDATE `+s.table+`
		    SET username = $1, password_hash = $2, role = $3, state = $4, updated_at = $5
		  WHERE id = $6`,
		u.Username, u.PasswordHash, int(u.Role), int(u.State), now, u.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrUsernameTaken
		}
		return User{}, err
	}
	if ct.RowsAffected() == 0 {
		return User{}, ErrNotFound
	}
	u.UpdatedAt = now
	return u, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	ct, err := s.pool.Exec(ctx, `DELETE FROM `+s.table+` WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CountAdmins(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM `+s.table+` WHERE role = $1`, int(auth.RoleAdmin),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("user: count admins: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) scanOne(row pgx.Row) (User, error) {
	var (
		u           User
		role, state int
	)
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &role, &state, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	u.Role = auth.Role(role)
	u.State = auth.State(state)
	return u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
