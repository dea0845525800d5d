package auth

import "time"

const (
	AccountStatusActive   = "active"
	AccountStatusDisabled = "disabled"
)

// Principal is the authenticated actor passed explicitly into every
// authorization check and mutation.
type Principal struct {
	UserID     string `json:"userId"`
	EmployeeID string `json:"employeeId,omitempty"`
	Email      string `json:"email"`
	Role       Role   `json:"role"`
	SessionID  string `json:"-"`
}

type Account struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Role         Role       `json:"role"`
	Status       string     `json:"status"`
	EmployeeID   string     `json:"employeeId,omitempty"`
	MFAEnabled   bool       `json:"mfaEnabled"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	PasswordHash string     `json:"-"`
	MFASecretEnc []byte     `json:"-"`
}

func (a Account) Principal(sessionID string) Principal {
	return Principal{
		UserID:     a.ID,
		EmployeeID: a.EmployeeID,
		Email:      a.Email,
		Role:       a.Role,
		SessionID:  sessionID,
	}
}

type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      Principal `json:"user"`
}

type MFASetup struct {
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauthUrl"`
}
