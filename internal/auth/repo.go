package auth

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/glowcare/storefront/internal/platform/db"
)

// Repository defines persistence operations for auth module.
type Repository interface {
	CreateUser(ctx context.Context, u User) error
	FindUserByUsername(ctx context.Context, username string) (User, error)
	FindUserByID(ctx context.Context, id string) (User, error)
	UpdateUser(ctx context.Context, id string, upd ProfileUpdate) (User, error)
	CreateAdmin(ctx context.Context, a Admin) error
	FindAdminByEmail(ctx context.Context, email string) (Admin, error)
	AdminUsernameExists(ctx context.Context, username string) (bool, error)
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db dbtx
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool dbtx) *PGRepository {
	return &PGRepository{db: pool}
}

const userColumns = `id::text, name, middle_name, email, username, password_hash, role, avatar, address, phone, created_at`

// CreateUser inserts a shopper account.
func (r *PGRepository) CreateUser(ctx context.Context, u User) error {
	_, err := r.db.Exec(ctx, `INSERT INTO users (id, name, middle_name, email, username, password_hash, role, avatar, address, phone, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		u.ID, u.Name, u.MiddleName, u.Email, u.Username, u.PasswordHash, string(u.Role), u.Avatar, u.Address, u.Phone, u.CreatedAt)
	return mapUniqueViolation(err)
}

// FindUserByUsername fetches a shopper by username.
func (r *PGRepository) FindUserByUsername(ctx context.Context, username string) (User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
}

// FindUserByID fetches a shopper by id.
func (r *PGRepository) FindUserByID(ctx context.Context, id string) (User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// UpdateUser applies a profile update and returns the stored result.
func (r *PGRepository) UpdateUser(ctx context.Context, id string, upd ProfileUpdate) (User, error) {
	return scanUser(r.db.QueryRow(ctx, `UPDATE users SET
		name = COALESCE($2, name),
		address = COALESCE($3, address),
		phone = COALESCE($4, phone),
		avatar = COALESCE($5, avatar)
		WHERE id = $1 RETURNING `+userColumns,
		id, upd.Name, upd.Address, upd.Phone, upd.Avatar))
}

// CreateAdmin inserts an administrator account.
func (r *PGRepository) CreateAdmin(ctx context.Context, a Admin) error {
	_, err := r.db.Exec(ctx, `INSERT INTO admins (id, name, email, username, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.Name, a.Email, a.Username, a.PasswordHash, a.CreatedAt)
	return mapUniqueViolation(err)
}

// FindAdminByEmail fetches an administrator by email.
func (r *PGRepository) FindAdminByEmail(ctx context.Context, email string) (Admin, error) {
	var a Admin
	err := r.db.QueryRow(ctx, `SELECT id::text, name, email, username, password_hash, created_at FROM admins WHERE email = $1`, email).
		Scan(&a.ID, &a.Name, &a.Email, &a.Username, &a.PasswordHash, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Admin{}, ErrUserNotFound
	}
	return a, err
}

// AdminUsernameExists reports whether an administrator already uses username.
func (r *PGRepository) AdminUsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM admins WHERE username = $1)`, username).Scan(&exists)
	return exists, err
}

func scanUser(row pgx.Row) (User, error) {
	var (
		u    User
		role string
	)
	err := row.Scan(&u.ID, &u.Name, &u.MiddleName, &u.Email, &u.Username, &u.PasswordHash, &role,
		&u.Avatar, &u.Address, &u.Phone, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, err
	}
	u.Role = Role(role)
	return u, nil
}

// mapUniqueViolation turns a unique index failure into the matching sentinel.
func mapUniqueViolation(err error) error {
	if err == nil || !db.IsUniqueViolation(err) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.Contains(pgErr.ConstraintName, "username") {
		return ErrUsernameTaken
	}
	return ErrEmailTaken
}

var _ Repository = (*PGRepository)(nil)

// MemoryRepository implements Repository in process.
type MemoryRepository struct {
	mu     sync.RWMutex
	users  map[string]User
	admins map[string]Admin
}

// NewMemoryRepository constructs an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{users: map[string]User{}, admins: map[string]Admin{}}
}

// CreateUser implements Repository.
func (r *MemoryRepository) CreateUser(_ context.Context, u User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return ErrEmailTaken
		}
		if existing.Username == u.Username {
			return ErrUsernameTaken
		}
	}
	r.users[u.ID] = u
	return nil
}

// FindUserByUsername implements Repository.
func (r *MemoryRepository) FindUserByUsername(_ context.Context, username string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}

// FindUserByID implements Repository.
func (r *MemoryRepository) FindUserByID(_ context.Context, id string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

// UpdateUser implements Repository.
func (r *MemoryRepository) UpdateUser(_ context.Context, id string, upd ProfileUpdate) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Address != nil {
		u.Address = *upd.Address
	}
	if upd.Phone != nil {
		u.Phone = *upd.Phone
	}
	if upd.Avatar != nil {
		u.Avatar = *upd.Avatar
	}
	r.users[id] = u
	return u, nil
}

// CreateAdmin implements Repository.
func (r *MemoryRepository) CreateAdmin(_ context.Context, a Admin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.admins {
		if strings.EqualFold(existing.Email, a.Email) {
			return ErrEmailTaken
		}
		if existing.Username == a.Username {
			return ErrUsernameTaken
		}
	}
	r.admins[a.ID] = a
	return nil
}

// FindAdminByEmail implements Repository.
func (r *MemoryRepository) FindAdminByEmail(_ context.Context, email string) (Admin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.admins {
		if strings.EqualFold(a.Email, email) {
			return a, nil
		}
	}
	return Admin{}, ErrUserNotFound
}

// AdminUsernameExists implements Repository.
func (r *MemoryRepository) AdminUsernameExists(_ context.Context, username string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.admins {
		if a.Username == username {
			return true, nil
		}
	}
	return false, nil
}

var _ Repository = (*MemoryRepository)(nil)
