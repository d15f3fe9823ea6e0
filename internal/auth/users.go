package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserStore persists accounts. Emails are matched case-insensitively.
type UserStore interface {
	CreateUser(ctx context.Context, u User, passwordHash string) error
	UserByEmail(ctx context.Context, email string) (*User, string, error)
	UserByID(ctx context.Context, id string) (*User, error)
}

type PostgresUsers struct {
	pool *pgxpool.Pool
}

func NewPostgresUsers(pool *pgxpool.Pool) *PostgresUsers {
	return &PostgresUsers{pool: pool}
}

func (p *PostgresUsers) CreateUser(ctx context.Context, u User, passwordHash string) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO users (id, email, password, display_name) VALUES ($1, $2, $3, $4)`,
		u.ID, strings.ToLower(u.Email), passwordHash, u.DisplayName)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (p *PostgresUsers) UserByEmail(ctx context.Context, email string) (*User, string, error) {
	var u User
	var hash string
	err := p.pool.QueryRow(ctx,
		`SELECT id, email, display_name, password FROM users WHERE email = $1`,
		strings.ToLower(email)).Scan(&u.ID, &u.Email, &u.DisplayName, &hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", ErrUserNotFound
		}
		return nil, "", fmt.Errorf("get user: %w", err)
	}
	return &u, hash, nil
}

func (p *PostgresUsers) UserByID(ctx context.Context, id string) (*User, error) {
	var u User
	err := p.pool.QueryRow(ctx,
		`SELECT id, email, display_name FROM users WHERE id = $1`, id).Scan(&u.ID, &u.Email, &u.DisplayName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

type memUser struct {
	user User
	hash string
}

// MemoryUsers is an in-process UserStore.
type MemoryUsers struct {
	mu      sync.RWMutex
	byID    map[string]*memUser
	byEmail map[string]*memUser
}

func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{byID: make(map[string]*memUser), byEmail: make(map[string]*memUser)}
}

func (m *MemoryUsers) CreateUser(_ context.Context, u User, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToLower(u.Email)
	if _, ok := m.byEmail[key]; ok {
		return ErrEmailTaken
	}
	u.Email = key
	rec := &memUser{user: u, hash: passwordHash}
	m.byID[u.ID] = rec
	m.byEmail[key] = rec
	return nil
}

func (m *MemoryUsers) UserByEmail(_ context.Context, email string) (*User, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, "", ErrUserNotFound
	}
	u := rec.user
	return &u, rec.hash, nil
}

func (m *MemoryUsers) UserByID(_ context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	u := rec.user
	return &u, nil
}
