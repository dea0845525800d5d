package auth

import (
	"context"
	"time"
)

type StoreAPI interface {
	FindAccountByEmail(ctx context.Context, email string) (Account, error)
	AccountByID(ctx context.Context, userID string) (Account, error)
	ListAccounts(ctx context.Context) ([]Account, error)
	CreateSession(ctx context.Context, userID, tokenHash string, expires time.Time) error
	SessionActive(ctx context.Context, userID, tokenHash string) (bool, error)
	RevokeSession(ctx context.Context, userID, tokenHash string) error
	RevokeUserSessions(ctx context.Context, userID string) error
	UpdateLastLogin(ctx context.Context, userID string) error
	UpdateMFASecret(ctx context.Context, userID string, secretEnc []byte) error
	SetMFAEnabled(ctx context.Context, userID string, enabled bool) error
	UpdatePassword(ctx context.Context, userID, hash string) error
	UpdateRole(ctx context.Context, userID string, role Role) error
	UpdateStatus(ctx context.Context, userID, status string) error
}

var _ StoreAPI = (*Store)(nil)
