package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"hallynk/internal/auth"
)

type Store struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

func New(db *sql.DB) *Store {
	return &Store{
		db:      db,
		dialect: DialectMySQL,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) SetDialect(d Dialect) {
	if strings.TrimSpace(string(d)) == "" {
		return
	}
	s.dialect = d
}

func (s *Store) Dialect() Dialect { return s.dialect }

func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("store has no database")
	}
	return s.db.PingContext(ctx)
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) q(query string) string { return rebind(s.dialect, query) }

// insertID runs an INSERT and returns the new row id on every dialect.
func (s *Store) insertID(ctx context.Context, q querier, query string, args ...any) (int64, error) {
	if s.dialect == DialectPostgres {
		var id int64
		if err := q.QueryRowContext(ctx, s.q(query+" RETURNING id"), args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}
	res, err := q.ExecContext(ctx, s.q(query), args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *Store) CreateUser(ctx context.Context, email string, fullName string, passwordHash []byte, role auth.Role) (int64, error) {
	return s.createUserTx(ctx, s.db, email, fullName, passwordHash, role)
}

func (s *Store) createUserTx(ctx context.Context, q querier, email string, fullName string, passwordHash []byte, role auth.Role) (int64, error) {
	email = auth.NormalizeEmail(email)
	if email == "" {
		return 0, invalidf("email must not be empty")
	}
	if !role.Valid() {
		role = auth.RoleStudent
	}
	now := s.now()
	id, err := s.insertID(ctx, q, `
INSERT INTO users(email, full_name, password_hash, role, status, created_at, updated_at)
VALUES(?, ?, ?, ?, ?, ?, ?)`, email, strings.TrimSpace(fullName), passwordHash, string(role), UserStatusActive, now, now)
	if err != nil {
		if isDuplicateKeyError(err) {
			return 0, ErrEmailTaken
		}
		return 0, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

// RegisterUser creates a self-registered account. The first account becomes
// ADMIN; later ones keep role and need allowOpen. Claiming the bootstrap row
// serializes concurrent first registrations.
func (s *Store) RegisterUser(ctx context.Context, email string, fullName string, passwordHash []byte, role auth.Role, allowOpen bool) (int64, auth.Role, error) {
	for attempt := 0; attempt < 2; attempt++ {
		var (
			id      int64
			granted auth.Role
		)
		err := s.withTx(ctx, func(tx *sql.Tx) error {
			var n int64
			if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM users`).Scan(&n); err != nil {
				return fmt.Errorf("count users: %w", err)
			}
			granted = role
			if n == 0 {
				if _, err := tx.ExecContext(ctx, s.q(`INSERT INTO registration_bootstrap(id, created_at) VALUES(1, ?)`), s.now()); err != nil {
					if isDuplicateKeyError(err) {
						return errBootstrapClaimed
					}
					return fmt.Errorf("claim bootstrap: %w", err)
				}
				granted = auth.RoleAdmin
			} else if !allowOpen {
				return ErrRegistrationClosed
			}
			var err error
			id, err = s.createUserTx(ctx, tx, email, fullName, passwordHash, granted)
			return err
		})
		if errors.Is(err, errBootstrapClaimed) {
			if !allowOpen {
				return 0, "", ErrRegistrationClosed
			}
			continue
		}
		if err != nil {
			return 0, "", err
		}
		return id, granted, nil
	}
	return 0, "", ErrRegistrationClosed
}

const userColumns = `id, email, full_name, password_hash, role, status, session_version, created_at, updated_at`

func scanUser(row interface{ Scan(dest ...any) error }) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &u.Role, &u.Status, &u.SessionVersion, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, s.q(`SELECT `+userColumns+` FROM users WHERE email=?`), auth.NormalizeEmail(email)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, sql.ErrNoRows
		}
		return User{}, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (s *Store) GetUserByID(ctx context.Context, userID int64) (User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, s.q(`SELECT `+userColumns+` FROM users WHERE id=?`), userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, sql.ErrNoRows
		}
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// ListUsers filters by role when role is non-empty.
func (s *Store) ListUsers(ctx context.Context, role auth.Role, limit, offset int) ([]User, error) {
	limit, offset = clampPage(limit, offset)
	query := `SELECT ` + userColumns + ` FROM users`
	var args []any
	if role != "" {
		query += ` WHERE role=?`
		args = append(args, string(role))
	}
	query += ` ORDER BY id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// UpdateUserRole bumps session_version, which invalidates cookie sessions issued before the change.
func (s *Store) UpdateUserRole(ctx context.Context, userID int64, role auth.Role) error {
	if !role.Valid() {
		return invalidf("invalid role %q", role)
	}
	return s.updateUser(ctx, userID, `role=?`, string(role))
}

func (s *Store) UpdateUserStatus(ctx context.Context, userID int64, status int) error {
	if status != UserStatusActive && status != UserStatusDisabled {
		return invalidf("invalid status %d", status)
	}
	return s.updateUser(ctx, userID, `status=?`, status)
}

func (s *Store) UpdateUserPasswordHash(ctx context.Context, userID int64, passwordHash []byte) error {
	return s.updateUser(ctx, userID, `password_hash=?`, passwordHash)
}

func (s *Store) updateUser(ctx context.Context, userID int64, set string, value any) error {
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE users SET `+set+`, session_version=session_version+1, updated_at=? WHERE id=?`), value, s.now(), userID)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *Store) CountUsersByRole(ctx context.Context) (map[auth.Role]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT role, COUNT(1) FROM users GROUP BY role`)
	if err != nil {
		return nil, fmt.Errorf("count users by role: %w", err)
	}
	defer rows.Close()

	out := map[auth.Role]int64{auth.RoleStudent: 0, auth.RoleOwner: 0, auth.RoleAdmin: 0}
	for rows.Next() {
		var role string
		var n int64
		if err := rows.Scan(&role, &n); err != nil {
			return nil, fmt.Errorf("scan role count: %w", err)
		}
		out[auth.NormalizeRole(role)] += n
	}
	return out, rows.Err()
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
