package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/shogunlabs/reports-api/internal/api/metrics"
	"github.com/shogunlabs/reports-api/internal/core/domain"
	"github.com/shogunlabs/reports-api/internal/core/guard"
	"github.com/shogunlabs/reports-api/internal/core/ports"
)

// Key prefixes keep recovery and lead-form counters separate even when the
// same limiter backend is shared.
const (
	recoveryKeyPrefix = "recover:"
	leadKeyPrefix     = "lead:"
)

// RecoveryService throttles password-recovery requests and public
// lead-generation submissions, then forwards them to the mail collaborator.
type RecoveryService struct {
	users   ports.UserRepository
	limiter ports.RateLimiter
	mailer  ports.Mailer
	inbox   string
	log     zerolog.Logger
}

func NewRecoveryService(users ports.UserRepository, limiter ports.RateLimiter, mailer ports.Mailer, inbox string, log zerolog.Logger) *RecoveryService {
	return &RecoveryService{users: users, limiter: limiter, mailer: mailer, inbox: inbox, log: log}
}

// Recover handles a password-recovery request. The request must name a
// username or an email; the caller IP is only a last-resort limiter key,
// never an accepted identity. Whether the account exists is never revealed
// to the caller.
func (s *RecoveryService) Recover(ctx context.Context, in ports.RecoveryInput) error {
	if in.Username == "" && in.Email == "" {
		return domain.NewValidationError("identity", "username or email is required")
	}
	key := firstNonEmpty(in.Username, in.Email, in.RemoteIP)

	ok, err := s.limiter.Allow(ctx, recoveryKeyPrefix+key)
	if err != nil {
		// Limiter backends are best effort; fail open but loudly.
		s.log.Warn().Err(err).Msg("recovery limiter unavailable")
	} else if !ok {
		metrics.RateLimitedTotal.WithLabelValues("recovery").Inc()
		return domain.ErrRateLimited
	}

	to := in.Email
	if in.Username != "" {
		user, err := s.users.FindByUsername(ctx, guard.NormalizeIdentity(in.Username))
		switch {
		case err == nil:
			to = user.Email
		case errors.Is(err, domain.ErrUserNotFound):
			// Accept silently; the response is identical either way.
		default:
			return err
		}
	}
	if to == "" {
		s.log.Info().Str("key", key).Msg("recovery request had no deliverable address")
		return nil
	}

	mail := ports.Mail{
		To:      to,
		Subject: "Password recovery",
		Body:    fmt.Sprintf("A password recovery was requested for your account.\n\n%s", in.Message),
	}
	if err := s.mailer.Send(ctx, mail); err != nil {
		s.log.Error().Err(err).Msg("recovery mail failed")
	}
	return nil
}

// SubmitLead handles a public lead-generation form submission, throttled on
// its own counter.
func (s *RecoveryService) SubmitLead(ctx context.Context, in ports.LeadInput) error {
	key := firstNonEmpty(in.Email, in.RemoteIP)
	if key == "" {
		return domain.NewValidationError("email", "is required")
	}

	ok, err := s.limiter.Allow(ctx, leadKeyPrefix+key)
	if err != nil {
		s.log.Warn().Err(err).Msg("lead limiter unavailable")
	} else if !ok {
		metrics.RateLimitedTotal.WithLabelValues("lead").Inc()
		return domain.ErrRateLimited
	}

	mail := ports.Mail{
		To:      s.inbox,
		Subject: fmt.Sprintf("New lead: %s", in.Name),
		Body:    fmt.Sprintf("From: %s <%s>\n\n%s", in.Name, in.Email, in.Message),
	}
	if err := s.mailer.Send(ctx, mail); err != nil {
		s.log.Error().Err(err).Msg("lead mail failed")
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
