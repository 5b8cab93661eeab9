package userstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/w22116972/tokenauth"
)

var _ tokenauth.UserProvider = (*Postgres)(nil)

const uniqueViolation = "23505"

const (
	qUserInsert = `
INSERT INTO users (email, password_hash, role)
VALUES ($1, $2, $3)
RETURNING email, password_hash, role, created_at;`

	qUserByEmail = `
SELECT email, password_hash, role, created_at
FROM users
WHERE email = $1;`
)

// PostgresConfig tunes the connection pool. Zero values keep pgx defaults.
type PostgresConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	QueryTimeout    time.Duration
}

// Postgres reads and writes the users table.
type Postgres struct {
	pool         *pgxpool.Pool
	queryTimeout time.Duration
}

// OpenPostgres creates a pool and verifies it with a ping.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*Postgres, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pcfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pcfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pcfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	hctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(hctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return &Postgres{pool: pool, queryTimeout: cfg.QueryTimeout}, nil
}

func (p *Postgres) Close() { p.pool.Close() }

// Ping checks the pool can reach the database.
func (p *Postgres) Ping(ctx context.Context) error {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()
	return p.pool.Ping(ctx)
}

func (p *Postgres) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.queryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.queryTimeout)
}

func (p *Postgres) GetUserByIdentifier(ctx context.Context, email string) (tokenauth.UserRecord, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	var u tokenauth.UserRecord
	if err := scanUser(p.pool.QueryRow(ctx, qUserByEmail, email), &u); err != nil {
		return tokenauth.UserRecord{}, err
	}
	return u, nil
}

func (p *Postgres) CreateUser(ctx context.Context, u tokenauth.UserRecord) (tokenauth.UserRecord, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	var out tokenauth.UserRecord
	err := scanUser(p.pool.QueryRow(ctx, qUserInsert, u.Email, u.PasswordHash, string(u.Role)), &out)
	if err != nil {
		return tokenauth.UserRecord{}, insertError(err)
	}
	return out, nil
}

func scanUser(row pgx.Row, out *tokenauth.UserRecord) error {
	var role string
	if err := row.Scan(&out.Email, &out.PasswordHash, &role, &out.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return tokenauth.ErrUserNotFound
		}
		return fmt.Errorf("scan user: %w", err)
	}
	out.Role = tokenauth.Role(role)
	return nil
}

func insertError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return tokenauth.ErrAccountExists
	}
	return fmt.Errorf("user insert: %w", err)
}
