package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"workzen/internal/platform/querier"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

const accountColumns = `
    u.id, u.email, u.role, u.status, COALESCE(e.id::text, ''),
    u.mfa_enabled, u.last_login, u.created_at, u.password_hash, u.mfa_secret_enc`

func scanAccount(row interface{ Scan(dest ...any) error }) (Account, error) {
	var out Account
	var role string
	err := row.Scan(&out.ID, &out.Email, &role, &out.Status, &out.EmployeeID,
		&out.MFAEnabled, &out.LastLogin, &out.CreatedAt, &out.PasswordHash, &out.MFASecretEnc)
	out.Role = Role(role)
	return out, err
}

func (s *Store) FindAccountByEmail(ctx context.Context, email string) (Account, error) {
	out, err := scanAccount(s.DB.QueryRow(ctx, `
    SELECT `+accountColumns+`
    FROM users u
    LEFT JOIN employees e ON e.user_id = u.id
    WHERE lower(u.email) = lower($1)
  `, strings.TrimSpace(email)))
	if querier.IsNoRows(err) {
		return Account{}, ErrAccountNotFound
	}
	return out, err
}

func (s *Store) AccountByID(ctx context.Context, userID string) (Account, error) {
	out, err := scanAccount(s.DB.QueryRow(ctx, `
    SELECT `+accountColumns+`
    FROM users u
    LEFT JOIN employees e ON e.user_id = u.id
    WHERE u.id = $1
  `, userID))
	if querier.IsNoRows(err) {
		return Account{}, fmt.Errorf("account %s: %w", userID, ErrAccountNotFound)
	}
	return out, err
}

func (s *Store) ListAccounts(ctx context.Context) ([]Account, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+accountColumns+`
    FROM users u
    LEFT JOIN employees e ON e.user_id = u.id
    ORDER BY u.created_at
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, account)
	}
	return out, rows.Err()
}

// CreateAccount inserts a user row on q so callers can pair it with other
// writes in one transaction.
func (s *Store) CreateAccount(ctx context.Context, q querier.Querier, email, passwordHash string, role Role) (string, error) {
	var id string
	err := q.QueryRow(ctx, `
    INSERT INTO users (email, password_hash, role)
    VALUES ($1, $2, $3)
    RETURNING id
  `, strings.TrimSpace(email), passwordHash, string(role)).Scan(&id)
	if querier.IsUniqueViolation(err, "users_email_key") {
		return "", fmt.Errorf("%s: %w", email, ErrEmailTaken)
	}
	return id, err
}

func (s *Store) CreateSession(ctx context.Context, userID, tokenHash string, expires time.Time) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO sessions (user_id, token_hash, expires_at)
    VALUES ($1, $2, $3)
  `, userID, tokenHash, expires)
	return err
}

func (s *Store) SessionActive(ctx context.Context, userID, tokenHash string) (bool, error) {
	var count int
	if err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM sessions
    WHERE user_id = $1 AND token_hash = $2 AND expires_at > now() AND revoked_at IS NULL
  `, userID, tokenHash).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) RevokeSession(ctx context.Context, userID, tokenHash string) error {
	_, err := s.DB.Exec(ctx, "UPDATE sessions SET revoked_at = now() WHERE user_id = $1 AND token_hash = $2", userID, tokenHash)
	return err
}

func (s *Store) RevokeUserSessions(ctx context.Context, userID string) error {
	_, err := s.DB.Exec(ctx, "UPDATE sessions SET revoked_at = now() WHERE user_id = $1 AND revoked_at IS NULL", userID)
	return err
}

func (s *Store) UpdateLastLogin(ctx context.Context, userID string) error {
	_, err := s.DB.Exec(ctx, "UPDATE users SET last_login = now() WHERE id = $1", userID)
	return err
}

func (s *Store) UpdateMFASecret(ctx context.Context, userID string, secretEnc []byte) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE users SET mfa_secret_enc = $1, mfa_enabled = false, updated_at = now() WHERE id = $2
  `, secretEnc, userID)
	return err
}

func (s *Store) SetMFAEnabled(ctx context.Context, userID string, enabled bool) error {
	_, err := s.DB.Exec(ctx, "UPDATE users SET mfa_enabled = $1, updated_at = now() WHERE id = $2", enabled, userID)
	return err
}

func (s *Store) UpdatePassword(ctx context.Context, userID, hash string) error {
	_, err := s.DB.Exec(ctx, "UPDATE users SET password_hash = $1, updated_at = now() WHERE id = $2", hash, userID)
	return err
}

func (s *Store) UpdateRole(ctx context.Context, userID string, role Role) error {
	tag, err := s.DB.Exec(ctx, "UPDATE users SET role = $1, updated_at = now() WHERE id = $2", string(role), userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account %s: %w", userID, ErrAccountNotFound)
	}
	return nil
}

func (s *Store) UpdateStatus(ctx context.Context, userID, status string) error {
	tag, err := s.DB.Exec(ctx, "UPDATE users SET status = $1, updated_at = now() WHERE id = $2", status, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account %s: %w", userID, ErrAccountNotFound)
	}
	return nil
}
