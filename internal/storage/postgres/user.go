package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

// ErrUserNotFound is returned when a user lookup yields no results.
var ErrUserNotFound = errors.New("user not found")

// ErrUserExists is returned when creating a user with an email or username
// already in use.
var ErrUserExists = errors.New("user already exists")

// ErrInvalidCredentials is returned when authentication fails. Unknown
// username and wrong password are deliberately indistinguishable.
var ErrInvalidCredentials = errors.New("invalid credentials")

// User represents an account in the database. PasswordHash is never exposed
// through the API layer.
type User struct {
	ID           int64
	Email        string
	Username     string
	PasswordHash string
	IsActive     bool
	IsSuperuser  bool
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}

// UserRepository provides user persistence operations.
type UserRepository struct {
	db         *pgxpool.Pool
	bcryptCost int
}

// NewUserRepository creates a UserRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool; bcryptCost must be
// a valid bcrypt work factor.
func NewUserRepository(db *pgxpool.Pool, bcryptCost int) *UserRepository {
	return &UserRepository{db: db, bcryptCost: bcryptCost}
}

const userColumns = `id, email, username, password_hash, is_active, is_superuser, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash,
		&u.IsActive, &u.IsSuperuser, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// Create inserts a new user with a bcrypt-hashed password.
//
// Precondition: email, username, and password must be non-empty.
// Postcondition: Returns the created user with ID set, or ErrUserExists on a
// duplicate email or username.
func (r *UserRepository) Create(ctx context.Context, email, username, password string) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), r.bcryptCost)
	if err != nil {
		return User{}, fmt.Errorf("hashing password: %w", err)
	}

	u, err := scanUser(r.db.QueryRow(ctx, `
		INSERT INTO users (email, username, password_hash)
		VALUES ($1, $2, $3)
		RETURNING `+userColumns,
		email, username, string(hash),
	))
	if err != nil {
		if isDuplicateKeyError(err) {
			return User{}, ErrUserExists
		}
		return User{}, fmt.Errorf("inserting user: %w", err)
	}
	return u, nil
}

// Authenticate verifies a username/password pair.
//
// Postcondition: Returns the user on success, or ErrInvalidCredentials when
// the username is unknown, the password does not match, or the user is inactive.
func (r *UserRepository) Authenticate(ctx context.Context, username, password string) (User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users WHERE username = $1`,
		username,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, fmt.Errorf("querying user: %w", err)
	}

	if !u.IsActive {
		return User{}, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

// GetByID retrieves a user by primary key.
//
// Precondition: id must be > 0.
// Postcondition: Returns the user or ErrUserNotFound.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("querying user: %w", err)
	}
	return u, nil
}

// UserUpdate holds optional profile changes; nil fields are left unchanged.
type UserUpdate struct {
	Email    *string
	Username *string
	Password *string
}

// Update applies the non-nil fields of upd to the user.
//
// Postcondition: Returns the updated user, ErrUserNotFound if id is unknown,
// or ErrUserExists when the new email or username is taken.
func (r *UserRepository) Update(ctx context.Context, id int64, upd UserUpdate) (User, error) {
	var hash *string
	if upd.Password != nil {
		h, err := bcrypt.GenerateFromPassword([]byte(*upd.Password), r.bcryptCost)
		if err != nil {
			return User{}, fmt.Errorf("hashing password: %w", err)
		}
		s := string(h)
		hash = &s
	}

	u, err := scanUser(r.db.QueryRow(ctx, `
		UPDATE users SET
			email = COALESCE($2, email),
			username = COALESCE($3, username),
			password_hash = COALESCE($4, password_hash),
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns,
		id, upd.Email, upd.Username, hash,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		if isDuplicateKeyError(err) {
			return User{}, ErrUserExists
		}
		return User{}, fmt.Errorf("updating user: %w", err)
	}
	return u, nil
}

// Search returns up to limit users whose email or username contains q,
// case-insensitively.
//
// Precondition: limit must be > 0.
// Postcondition: Returns a slice (may be empty) or a non-nil error.
func (r *UserRepository) Search(ctx context.Context, q string, limit int) ([]User, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE email ILIKE '%' || $1 || '%' OR username ILIKE '%' || $1 || '%'
		ORDER BY username ASC
		LIMIT $2`,
		q, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("searching users: %w", err)
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user row: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
