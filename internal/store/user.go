package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// User is an account in the "users" auth collection.
type User struct {
	ID             uuid.UUID
	Email          string
	HashedPassword string
	Name           string
	Created        time.Time
	Updated        time.Time
}

// Superuser is a privileged account. Superusers are never created through the
// public API; the first one comes from cmd/seed.
type Superuser struct {
	ID             uuid.UUID
	Email          string
	HashedPassword string
	Created        time.Time
}

// CreateUser inserts a user with an already-hashed password. Returns
// ErrEmailExists on duplicates.
func (s *Store) CreateUser(ctx context.Context, email, hashedPassword, name string) (User, error) {
	var u User
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (email, hashed_password, name)
		VALUES ($1, $2, $3)
		RETURNING id, email, hashed_password, name, created, updated`,
		email, hashedPassword, name,
	).Scan(&u.ID, &u.Email, &u.HashedPassword, &u.Name, &u.Created, &u.Updated)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrEmailExists
		}
		return User{}, err
	}
	return u, nil
}

// GetUserByEmail fetches a user. Propagates pgx.ErrNoRows when absent.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := s.pool.QueryRow(ctx, `
		SELECT id, email, hashed_password, name, created, updated
		FROM users WHERE email = $1`, email,
	).Scan(&u.ID, &u.Email, &u.HashedPassword, &u.Name, &u.Created, &u.Updated)
	return u, err
}

// ListUsers returns all users ordered by creation time.
func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, email, hashed_password, name, created, updated
		FROM users ORDER BY created, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.HashedPassword, &u.Name, &u.Created, &u.Updated); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// GetSuperuserByEmail fetches a superuser. Propagates pgx.ErrNoRows.
func (s *Store) GetSuperuserByEmail(ctx context.Context, email string) (Superuser, error) {
	var su Superuser
	err := s.pool.QueryRow(ctx, `
		SELECT id, email, hashed_password, created
		FROM superusers WHERE email = $1`, email,
	).Scan(&su.ID, &su.Email, &su.HashedPassword, &su.Created)
	return su, err
}

// CreateSuperuser inserts a superuser with an already-hashed password.
func (s *Store) CreateSuperuser(ctx context.Context, email, hashedPassword string) (Superuser, error) {
	var su Superuser
	err := s.pool.QueryRow(ctx, `
		INSERT INTO superusers (email, hashed_password)
		VALUES ($1, $2)
		RETURNING id, email, hashed_password, created`,
		email, hashedPassword,
	).Scan(&su.ID, &su.Email, &su.HashedPassword, &su.Created)
	if err != nil {
		if isUniqueViolation(err) {
			return Superuser{}, ErrEmailExists
		}
		return Superuser{}, err
	}
	return su, nil
}
