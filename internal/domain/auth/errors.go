package auth

import (
	"errors"
	"fmt"
)

var (
	ErrForbidden          = errors.New("forbidden")
	ErrUnknownRole        = errors.New("unknown role")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrSessionInvalid     = errors.New("session expired or revoked")
	ErrMFARequired        = errors.New("mfa code required")
	ErrMFAInvalid         = errors.New("invalid mfa code")
	ErrMFAUnavailable     = errors.New("mfa requires an encryption key")
	ErrMFANotConfigured   = errors.New("mfa setup required")
	ErrWeakPassword       = errors.New("password does not meet complexity rules")
	ErrAccountNotFound    = errors.New("account not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrSelfRoleChange     = errors.New("admins cannot change their own role")
	ErrSelfDisable        = errors.New("admins cannot disable their own account")
)

// ForbiddenError carries the rejected (role, action, resource) tuple and
// matches ErrForbidden with errors.Is.
type ForbiddenError struct {
	Role     Role
	Action   Action
	Resource Resource
	Subject  string
}

func (e *ForbiddenError) Error() string {
	if e.Subject != "" {
		return fmt.Sprintf("forbidden: role %q may not %s %s of employee %s", e.Role, e.Action, e.Resource, e.Subject)
	}
	return fmt.Sprintf("forbidden: role %q may not %s %s", e.Role, e.Action, e.Resource)
}

func (e *ForbiddenError) Is(target error) bool {
	return target == ErrForbidden
}
