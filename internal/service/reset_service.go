package service

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hellotrader/ops-api/internal/domain"
	"github.com/hellotrader/ops-api/internal/repository/ports"
	"github.com/hellotrader/ops-api/internal/util"
)

var (
	ErrInvalidEmail = errors.New("invalid email address")
	ErrInvalidOTP   = errors.New("otp must be exactly 6 digits")

	// ErrInvalidOrExpired covers every challenge mismatch: wrong code or
	// token, expired, already consumed, or no challenge at all. Callers must
	// not be able to tell these apart.
	ErrInvalidOrExpired = errors.New("invalid or expired reset code")

	// ErrRateLimited is returned when the caller exhausted the request or
	// verify budget for the window.
	ErrRateLimited = errors.New("too many attempts, try again later")
)

// ResetCodeSender delivers a reset code out of band.
type ResetCodeSender interface {
	SendResetCode(ctx context.Context, email, code string) error
}

// ResetLimiter throttles an operation across a set of keys.
type ResetLimiter interface {
	Allow(ctx context.Context, keys ...string) error
}

const (
	otpDigits       = 6
	mailSendTimeout = 5 * time.Second
)

// ResetService drives the transaction-password reset protocol: a stored
// challenge moves from requested through verified to consumed, one live
// challenge per user at a time.
type ResetService struct {
	users          ports.UserRepository
	challenges     ports.ResetChallengeRepository
	mailer         ResetCodeSender
	requestLimiter ResetLimiter
	verifyLimiter  ResetLimiter
	ttl            time.Duration
	now            func() time.Time
}

func NewResetService(users ports.UserRepository, challenges ports.ResetChallengeRepository, mailer ResetCodeSender, requestLimiter, verifyLimiter ResetLimiter, ttl time.Duration) *ResetService {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &ResetService{
		users:          users,
		challenges:     challenges,
		mailer:         mailer,
		requestLimiter: requestLimiter,
		verifyLimiter:  verifyLimiter,
		ttl:            ttl,
		now:            time.Now,
	}
}

// RequestReset creates a fresh challenge for the account behind email and
// dispatches the code. When no account matches, it still succeeds with a nil
// user id: this endpoint must not reveal whether an account exists.
func (s *ResetService) RequestReset(ctx context.Context, email, clientIP string) (*uuid.UUID, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}

	if err := s.allow(ctx, s.requestLimiter, email, clientIP); err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	code, err := util.GenerateNumericOTP(otpDigits)
	if err != nil {
		return nil, err
	}
	token, err := util.GenerateResetToken()
	if err != nil {
		return nil, err
	}

	expiresAt := s.now().Add(s.ttl)
	if _, err := s.challenges.Upsert(ctx, user.ID, domain.ResetPurposeTxnPassword, code, token, expiresAt); err != nil {
		return nil, err
	}

	s.dispatchCode(ctx, user.Email, code)

	userID := user.ID
	return &userID, nil
}

// dispatchCode sends the code best-effort under a short timeout. Delivery
// failure is an operational problem, not a caller-visible one: surfacing it
// would break the shape parity that hides account existence.
func (s *ResetService) dispatchCode(ctx context.Context, email, code string) {
	if s.mailer == nil {
		log.Printf("reset: mailer not configured, code for %s not delivered", email)
		return
	}
	sendCtx, cancel := context.WithTimeout(ctx, mailSendTimeout)
	defer cancel()
	if err := s.mailer.SendResetCode(sendCtx, email, code); err != nil {
		log.Printf("reset: code delivery to %s failed: %v", email, err)
	}
}

// VerifyCode checks the submitted code against the live challenge and returns
// the reset token on a match. The challenge is not consumed here; the code
// stays verifiable until the final commit or expiry.
func (s *ResetService) VerifyCode(ctx context.Context, userID uuid.UUID, code, clientIP string) (string, error) {
	if !isSixDigits(code) {
		return "", ErrInvalidOTP
	}

	if err := s.allow(ctx, s.verifyLimiter, userID.String(), clientIP); err != nil {
		return "", err
	}

	challenge, err := s.challenges.FindLiveByCode(ctx, userID, domain.ResetPurposeTxnPassword, code, s.now())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrInvalidOrExpired
		}
		return "", err
	}
	return challenge.ResetToken, nil
}

// CommitReset validates the reset token, writes the new transaction password
// and consumes the challenge. The consume and the credential write happen in
// one storage transaction; a replayed or raced commit fails uniformly.
func (s *ResetService) CommitReset(ctx context.Context, userID uuid.UUID, resetToken, newPassword string) error {
	if err := util.ValidateTransactionPassword(newPassword); err != nil {
		return err
	}
	if strings.TrimSpace(resetToken) == "" {
		return ErrInvalidOrExpired
	}

	hash, salt, err := util.DerivePassword(newPassword)
	if err != nil {
		return err
	}

	err = s.challenges.ConsumeWithTxnPassword(ctx, userID, domain.ResetPurposeTxnPassword, resetToken, hash, salt, s.now())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrInvalidOrExpired
		}
		return err
	}
	return nil
}

func (s *ResetService) allow(ctx context.Context, limiter ResetLimiter, identifier, clientIP string) error {
	if limiter == nil {
		return nil
	}
	keys := []string{identifier}
	if clientIP != "" {
		keys = append(keys, "ip:"+clientIP)
	}
	if err := limiter.Allow(ctx, keys...); err != nil {
		return ErrRateLimited
	}
	return nil
}

func isSixDigits(code string) bool {
	if len(code) != otpDigits {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}
