package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"workzen/internal/domain/audit"
)

const mfaIssuer = "WorkZen"

// SecretSealer encrypts values stored at rest.
type SecretSealer interface {
	Configured() bool
	EncryptString(value string) ([]byte, error)
	DecryptString(value []byte) (string, error)
}

type Service struct {
	Store      StoreAPI
	Crypto     SecretSealer
	Secret     string
	SessionTTL time.Duration
	Audit      audit.Logger
	Now        func() time.Time
}

func NewService(store StoreAPI, crypto SecretSealer, secret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &Service{Store: store, Crypto: crypto, Secret: secret, SessionTTL: ttl, Now: time.Now}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *Service) Login(ctx context.Context, email, password, mfaCode string) (LoginResult, error) {
	account, err := s.Store.FindAccountByEmail(ctx, email)
	if errors.Is(err, ErrAccountNotFound) {
		return LoginResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, err
	}
	if err := CheckPassword(account.PasswordHash, password); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}
	if account.Status != AccountStatusActive {
		return LoginResult{}, ErrAccountDisabled
	}

	if account.MFAEnabled {
		if mfaCode == "" {
			return LoginResult{}, ErrMFARequired
		}
		secret, err := s.openSecret(account.MFASecretEnc)
		if err != nil || secret == "" || !totp.Validate(mfaCode, secret) {
			return LoginResult{}, ErrMFAInvalid
		}
	}

	sessionID, err := NewSessionID()
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue session: %w", err)
	}
	expires := s.now().Add(s.SessionTTL)
	if err := s.Store.CreateSession(ctx, account.ID, HashToken(sessionID), expires); err != nil {
		return LoginResult{}, fmt.Errorf("start session: %w", err)
	}

	token, err := GenerateToken(s.Secret, Claims{UserID: account.ID, Role: account.Role, SessionID: sessionID}, s.SessionTTL)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue token: %w", err)
	}

	if err := s.Store.UpdateLastLogin(ctx, account.ID); err != nil {
		slog.Warn("update last_login failed", "userId", account.ID, "err", err)
	}

	return LoginResult{Token: token, ExpiresAt: expires, User: account.Principal(sessionID)}, nil
}

// ResolveToken validates a bearer token and rebuilds the principal from the
// store. The token's role claim is ignored.
func (s *Service) ResolveToken(ctx context.Context, token string) (Principal, error) {
	claims, err := ParseToken(s.Secret, token)
	if err != nil {
		return Principal{}, ErrSessionInvalid
	}
	active, err := s.Store.SessionActive(ctx, claims.UserID, HashToken(claims.SessionID))
	if err != nil {
		return Principal{}, err
	}
	if !active {
		return Principal{}, ErrSessionInvalid
	}
	account, err := s.Store.AccountByID(ctx, claims.UserID)
	if errors.Is(err, ErrAccountNotFound) {
		return Principal{}, ErrSessionInvalid
	}
	if err != nil {
		return Principal{}, err
	}
	if account.Status != AccountStatusActive {
		return Principal{}, ErrAccountDisabled
	}
	return account.Principal(claims.SessionID), nil
}

func (s *Service) Logout(ctx context.Context, p Principal) error {
	if p.SessionID == "" {
		return nil
	}
	return s.Store.RevokeSession(ctx, p.UserID, HashToken(p.SessionID))
}

func (s *Service) ChangePassword(ctx context.Context, p Principal, current, next string) error {
	account, err := s.Store.AccountByID(ctx, p.UserID)
	if err != nil {
		return err
	}
	if err := CheckPassword(account.PasswordHash, current); err != nil {
		return ErrInvalidCredentials
	}
	if err := ValidatePassword(next); err != nil {
		return err
	}
	hash, err := HashPassword(next)
	if err != nil {
		return err
	}
	if err := s.Store.UpdatePassword(ctx, p.UserID, hash); err != nil {
		return err
	}
	return s.Store.RevokeUserSessions(ctx, p.UserID)
}

func (s *Service) SetupMFA(ctx context.Context, p Principal) (MFASetup, error) {
	if s.Crypto == nil || !s.Crypto.Configured() {
		return MFASetup{}, ErrMFAUnavailable
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      mfaIssuer,
		AccountName: p.Email,
		Period:      30,
		Digits:      otp.DigitsSix,
	})
	if err != nil {
		return MFASetup{}, fmt.Errorf("generate mfa secret: %w", err)
	}
	sealed, err := s.Crypto.EncryptString(key.Secret())
	if err != nil {
		return MFASetup{}, fmt.Errorf("seal mfa secret: %w", err)
	}
	if err := s.Store.UpdateMFASecret(ctx, p.UserID, sealed); err != nil {
		return MFASetup{}, err
	}
	return MFASetup{Secret: key.Secret(), OTPAuthURL: key.URL()}, nil
}

func (s *Service) EnableMFA(ctx context.Context, p Principal, code string) error {
	return s.toggleMFA(ctx, p, code, true)
}

func (s *Service) DisableMFA(ctx context.Context, p Principal, code string) error {
	return s.toggleMFA(ctx, p, code, false)
}

func (s *Service) toggleMFA(ctx context.Context, p Principal, code string, enabled bool) error {
	if s.Crypto == nil || !s.Crypto.Configured() {
		return ErrMFAUnavailable
	}
	account, err := s.Store.AccountByID(ctx, p.UserID)
	if err != nil {
		return err
	}
	if len(account.MFASecretEnc) == 0 {
		return ErrMFANotConfigured
	}
	secret, err := s.openSecret(account.MFASecretEnc)
	if err != nil {
		return ErrMFAInvalid
	}
	if !totp.Validate(code, secret) {
		return ErrMFAInvalid
	}
	return s.Store.SetMFAEnabled(ctx, p.UserID, enabled)
}

func (s *Service) openSecret(sealed []byte) (string, error) {
	if s.Crypto != nil && s.Crypto.Configured() {
		return s.Crypto.DecryptString(sealed)
	}
	return string(sealed), nil
}

func (s *Service) ListAccounts(ctx context.Context, actor Principal) ([]Account, error) {
	if err := Require(actor, ActionRead, ResourceUserAccount, ""); err != nil {
		return nil, err
	}
	return s.Store.ListAccounts(ctx)
}

// ChangeRole is restricted to Admin. Existing sessions of the target keep
// working because every request reloads the role from the store.
func (s *Service) ChangeRole(ctx context.Context, actor Principal, userID string, role Role) (Account, error) {
	if err := Require(actor, ActionUpdate, ResourceUserAccount, ""); err != nil {
		return Account{}, err
	}
	if !role.Valid() {
		return Account{}, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	if userID == actor.UserID {
		return Account{}, ErrSelfRoleChange
	}
	before, err := s.Store.AccountByID(ctx, userID)
	if err != nil {
		return Account{}, err
	}
	if before.Role == role {
		return before, nil
	}
	if err := s.Store.UpdateRole(ctx, userID, role); err != nil {
		return Account{}, err
	}
	if s.Audit != nil {
		if err := s.Audit.Log(ctx, nil, audit.Entry{
			ActorID:    actor.UserID,
			Action:     "user.role.change",
			EntityType: "user",
			EntityID:   userID,
			Before:     map[string]Role{"role": before.Role},
			After:      map[string]Role{"role": role},
		}); err != nil {
			slog.Warn("audit user.role.change failed", "userId", userID, "err", err)
		}
	}
	after := before
	after.Role = role
	return after, nil
}

func (s *Service) SetAccountStatus(ctx context.Context, actor Principal, userID, status string) error {
	if err := Require(actor, ActionUpdate, ResourceUserAccount, ""); err != nil {
		return err
	}
	if status != AccountStatusActive && status != AccountStatusDisabled {
		return fmt.Errorf("unknown account status %q", status)
	}
	if userID == actor.UserID && status == AccountStatusDisabled {
		return ErrSelfDisable
	}
	if err := s.Store.UpdateStatus(ctx, userID, status); err != nil {
		return err
	}
	if status == AccountStatusDisabled {
		return s.Store.RevokeUserSessions(ctx, userID)
	}
	return nil
}
