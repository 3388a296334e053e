package ports

import "context"

// SignupInput carries the fields accepted at account creation.
type SignupInput struct {
	Username    string
	Password    string
	DisplayName string
	Email       string
	Phone       string
	Roles       []string
}

// SessionUser is the caller-facing view of an authenticated user.
type SessionUser struct {
	ID          string   `json:"id"`
	Username    string   `json:"username"`
	DisplayName string   `json:"display_name,omitempty"`
	Email       string   `json:"email,omitempty"`
	Roles       []string `json:"roles"`
}

// AuthService implements login (with brute-force lockout), signup, token
// issuance and profile lookup.
type AuthService interface {
	Login(ctx context.Context, username, password string) (token string, user *SessionUser, err error)
	Signup(ctx context.Context, in SignupInput) (token string, user *SessionUser, err error)
	Me(ctx context.Context, userID string) (*SessionUser, error)
}

// RecoveryInput identifies the account asking for password recovery.
type RecoveryInput struct {
	Username string
	Email    string
	Message  string
	RemoteIP string
}

// LeadInput is a public lead-generation form submission.
type LeadInput struct {
	Name     string
	Email    string
	Message  string
	RemoteIP string
}

// RecoveryService throttles and forwards recovery and public-form
// submissions.
type RecoveryService interface {
	Recover(ctx context.Context, in RecoveryInput) error
	SubmitLead(ctx context.Context, in LeadInput) error
}
