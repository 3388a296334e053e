package service

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/shogunlabs/reports-api/internal/api/metrics"
	"github.com/shogunlabs/reports-api/internal/core/domain"
	"github.com/shogunlabs/reports-api/internal/core/guard"
	"github.com/shogunlabs/reports-api/internal/core/ports"
)

const defaultTokenTTL = 8 * time.Hour

// AuthService implements login with brute-force lockout, signup, and
// profile lookup.
type AuthService struct {
	repo      ports.UserRepository
	guard     *guard.LoginGuard
	jwtSecret string
	tokenTTL  time.Duration
	log       zerolog.Logger
}

func NewAuthService(repo ports.UserRepository, g *guard.LoginGuard, jwtSecret string, tokenTTL time.Duration, log zerolog.Logger) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = defaultTokenTTL
	}
	return &AuthService{repo: repo, guard: g, jwtSecret: jwtSecret, tokenTTL: tokenTTL, log: log}
}

// Login verifies credentials and issues a session token.
//
// Wrong username and wrong password return the identical generic error so
// usernames cannot be enumerated; only the lockout message differs. Every
// failure for an identity counts toward its lockout, password correctness
// is not even checked while the window is open.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *ports.SessionUser, error) {
	identity := guard.NormalizeIdentity(username)
	if identity == "" || password == "" {
		return "", nil, domain.ErrInvalidCredentials
	}

	if locked, retry := s.guard.Check(identity); locked {
		metrics.LoginsTotal.WithLabelValues("locked").Inc()
		return "", nil, &domain.LockedError{RetryAfter: retry}
	}

	user, err := s.repo.FindByUsername(ctx, identity)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return "", nil, s.recordFailure(identity)
		}
		return "", nil, err
	}

	if !user.Active {
		return "", nil, s.recordFailure(identity)
	}

	// bcrypt's comparison is constant-time over the hash.
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, s.recordFailure(identity)
	}

	s.guard.Reset(identity)

	roles := domain.DeriveRoles(*user)
	token, err := s.issueToken(user, roles)
	if err != nil {
		return "", nil, err
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	s.log.Info().Str("username", user.Username).Msg("login succeeded")

	return token, sessionUser(user, roles), nil
}

func (s *AuthService) recordFailure(identity string) error {
	if locked, _ := s.guard.Fail(identity); locked {
		metrics.LockoutsTotal.Inc()
		s.log.Warn().Str("identity", identity).Msg("identity locked after repeated failures")
	}
	metrics.LoginsTotal.WithLabelValues("failure").Inc()
	return domain.ErrInvalidCredentials
}

// Signup creates an account and logs it straight in. Public signup only
// grants the client and sponsor tags; shogun roles are seeded or granted by
// an admin.
func (s *AuthService) Signup(ctx context.Context, in ports.SignupInput) (string, *ports.SessionUser, error) {
	username := guard.NormalizeIdentity(in.Username)
	if username == "" {
		return "", nil, domain.NewValidationError("username", "is required")
	}
	if len(in.Password) < 8 {
		return "", nil, domain.NewValidationError("password", "must be at least 8 characters")
	}

	roles := domain.NewRoleSet(in.Roles...)
	for _, tag := range roles.Tags() {
		if tag != domain.RoleClient && tag != domain.RoleSponsor {
			return "", nil, domain.NewValidationError("roles", "tag not allowed at signup: "+tag)
		}
	}
	if roles.Empty() {
		roles = domain.NewRoleSet(domain.RoleClient)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, err
	}

	now := time.Now().UTC()
	user := &domain.User{
		Username:     username,
		DisplayName:  in.DisplayName,
		Email:        in.Email,
		Phone:        in.Phone,
		PasswordHash: string(hash),
		Roles:        roles.Tags(),
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		return "", nil, err
	}

	token, err := s.issueToken(created, roles)
	if err != nil {
		return "", nil, err
	}

	s.log.Info().Str("username", created.Username).Strs("roles", roles.Tags()).Msg("user signed up")
	return token, sessionUser(created, roles), nil
}

// Me returns the caller's profile from a fresh user load.
func (s *AuthService) Me(ctx context.Context, userID string) (*ports.SessionUser, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return sessionUser(user, domain.DeriveRoles(*user)), nil
}

func (s *AuthService) issueToken(user *domain.User, roles domain.RoleSet) (string, error) {
	claims := jwt.MapClaims{
		"sub":      user.ID,
		"username": user.Username,
		"roles":    roles.Tags(),
		"exp":      time.Now().Add(s.tokenTTL).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.jwtSecret))
}

func sessionUser(u *domain.User, roles domain.RoleSet) *ports.SessionUser {
	return &ports.SessionUser{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Email:       u.Email,
		Roles:       roles.Tags(),
	}
}
