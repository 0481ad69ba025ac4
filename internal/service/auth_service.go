package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"google.golang.org/api/idtoken"

	"github.com/hellotrader/ops-api/internal/domain"
	"github.com/hellotrader/ops-api/internal/repository/ports"
	"github.com/hellotrader/ops-api/internal/util"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidSession     = errors.New("invalid or expired session")
)

// LoginResult carries the signed token and the authenticated user.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

// AuthService authenticates dashboard operators. Email/password is the primary
// path; Google Workspace SSO is available when an audience is configured.
type AuthService struct {
	users    ports.UserRepository
	sessions ports.SessionRepository
	jwt      *util.JWTManager
	aud      string
}

func NewAuthService(users ports.UserRepository, sessions ports.SessionRepository, jwtManager *util.JWTManager, googleAud string) *AuthService {
	return &AuthService{users: users, sessions: sessions, jwt: jwtManager, aud: googleAud}
}

func (s *AuthService) LoginWithEmail(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !util.VerifyPassword(password, user.PasswordSalt, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return s.issueSession(ctx, user)
}

func (s *AuthService) LoginWithGoogle(ctx context.Context, idTok string) (*LoginResult, error) {
	if s.aud == "" {
		return nil, ErrInvalidCredentials
	}
	payload, err := idtoken.Validate(ctx, idTok, s.aud)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	email, _ := payload.Claims["email"].(string)
	name, _ := payload.Claims["name"].(string)
	if email == "" {
		return nil, ErrInvalidCredentials
	}

	var fullName *string
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		fullName = &trimmed
	}
	user, err := s.users.UpsertByEmail(ctx, strings.ToLower(email), fullName)
	if err != nil {
		return nil, err
	}
	return s.issueSession(ctx, user)
}

func (s *AuthService) issueSession(ctx context.Context, user *domain.User) (*LoginResult, error) {
	token, expiresAt, err := s.jwt.Generate(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	if _, err := s.sessions.CreateSession(ctx, user.ID, token, expiresAt); err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// Authenticate resolves a bearer token to its user. The token must parse and
// still have an active session row; logout kills the session even though the
// JWT itself stays well-formed until expiry.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.jwt.Parse(token)
	if err != nil {
		return nil, ErrInvalidSession
	}
	session, err := s.sessions.FindActiveSession(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidSession
		}
		return nil, err
	}
	if session.UserID != claims.UserID {
		return nil, ErrInvalidSession
	}
	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidSession
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.DeactivateSession(ctx, token)
}
