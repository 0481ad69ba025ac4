package http

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hellotrader/ops-api/internal/domain"
	"github.com/hellotrader/ops-api/internal/service"
)

type stubUserRepo struct {
	user *domain.User
}

func (s *stubUserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	if s.user != nil && s.user.Email == email {
		return s.user, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if s.user != nil && s.user.ID == id {
		return s.user, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubUserRepo) UpsertByEmail(ctx context.Context, email string, fullName *string) (*domain.User, error) {
	return s.user, nil
}

type stubChallengeRepo struct {
	mu        sync.Mutex
	challenge *domain.ResetChallenge
}

func (s *stubChallengeRepo) Upsert(ctx context.Context, userID uuid.UUID, purpose domain.ResetPurpose, code, resetToken string, expiresAt time.Time) (*domain.ResetChallenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenge = &domain.ResetChallenge{
		ID: 1, UserID: userID, Purpose: purpose,
		Code: code, ResetToken: resetToken, ExpiresAt: expiresAt,
	}
	clone := *s.challenge
	return &clone, nil
}

func (s *stubChallengeRepo) FindLiveByCode(ctx context.Context, userID uuid.UUID, purpose domain.ResetPurpose, code string, now time.Time) (*domain.ResetChallenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.challenge
	if c == nil || c.UserID != userID || c.Purpose != purpose || c.Code != code || c.Consumed || !now.Before(c.ExpiresAt) {
		return nil, sql.ErrNoRows
	}
	clone := *c
	return &clone, nil
}

func (s *stubChallengeRepo) ConsumeWithTxnPassword(ctx context.Context, userID uuid.UUID, purpose domain.ResetPurpose, resetToken string, txnHash, txnSalt []byte, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.challenge
	if c == nil || c.UserID != userID || c.Purpose != purpose || c.ResetToken != resetToken || c.Consumed || !now.Before(c.ExpiresAt) {
		return sql.ErrNoRows
	}
	c.Consumed = true
	return nil
}

type captureMailer struct {
	lastCode string
}

func (m *captureMailer) SendResetCode(ctx context.Context, email, code string) error {
	m.lastCode = code
	return nil
}

type deniedLimiter struct{}

func (deniedLimiter) Allow(ctx context.Context, keys ...string) error {
	return errors.New("limited")
}

func newResetTestServer(t *testing.T, users *stubUserRepo, requestLimiter service.ResetLimiter) (*echo.Echo, *captureMailer, *stubChallengeRepo) {
	t.Helper()
	challenges := &stubChallengeRepo{}
	mailer := &captureMailer{}
	svc := service.NewResetService(users, challenges, mailer, requestLimiter, nil, 15*time.Minute)
	e := NewRouter([]string{"*"})
	RegisterReset(e, svc)
	return e, mailer, challenges
}

func postJSON(t *testing.T, e *echo.Echo, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON response %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestRequestResetResponseShapeParity(t *testing.T) {
	user := &domain.User{ID: uuid.New(), Email: "known@hellotrader.com"}
	e, _, _ := newResetTestServer(t, &stubUserRepo{user: user}, nil)

	known := postJSON(t, e, "/v1/transaction-password/request-reset", `{"email":"known@hellotrader.com"}`)
	unknown := postJSON(t, e, "/v1/transaction-password/request-reset", `{"email":"unknown@hellotrader.com"}`)

	if known.Code != http.StatusOK || unknown.Code != http.StatusOK {
		t.Fatalf("expected 200 for both, got %d and %d", known.Code, unknown.Code)
	}

	knownBody := decodeBody(t, known)
	unknownBody := decodeBody(t, unknown)
	if knownBody["message"] != unknownBody["message"] {
		t.Fatalf("expected identical messages, got %q vs %q", knownBody["message"], unknownBody["message"])
	}
	if _, ok := knownBody["user_id"]; !ok {
		t.Fatal("expected user_id for known account")
	}
	if _, ok := unknownBody["user_id"]; ok {
		t.Fatal("expected no user_id for unknown account")
	}
}

func TestRequestResetMalformedEmail(t *testing.T) {
	e, _, _ := newResetTestServer(t, &stubUserRepo{}, nil)

	rec := postJSON(t, e, "/v1/transaction-password/request-reset", `{"email":"not-an-email"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRequestResetRateLimited(t *testing.T) {
	user := &domain.User{ID: uuid.New(), Email: "known@hellotrader.com"}
	e, _, _ := newResetTestServer(t, &stubUserRepo{user: user}, deniedLimiter{})

	rec := postJSON(t, e, "/v1/transaction-password/request-reset", `{"email":"known@hellotrader.com"}`)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
}

func TestVerifyOTPBadUserID(t *testing.T) {
	e, _, _ := newResetTestServer(t, &stubUserRepo{}, nil)

	rec := postJSON(t, e, "/v1/transaction-password/verify-otp", `{"user_id":"not-a-uuid","otp":"123456"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestResetFlowEndToEnd(t *testing.T) {
	user := &domain.User{ID: uuid.New(), Email: "known@hellotrader.com"}
	e, mailer, challenges := newResetTestServer(t, &stubUserRepo{user: user}, nil)

	rec := postJSON(t, e, "/v1/transaction-password/request-reset", `{"email":"known@hellotrader.com"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("request-reset: expected 200, got %d", rec.Code)
	}
	userID, _ := decodeBody(t, rec)["user_id"].(string)
	if userID == "" {
		t.Fatal("request-reset: expected user_id in response")
	}
	if mailer.lastCode == "" {
		t.Fatal("request-reset: expected code delivered through mailer")
	}

	rec = postJSON(t, e, "/v1/transaction-password/verify-otp", `{"user_id":"`+userID+`","otp":"`+mailer.lastCode+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("verify-otp: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resetToken, _ := decodeBody(t, rec)["reset_token"].(string)
	if len(resetToken) != 64 {
		t.Fatalf("verify-otp: expected 64-character token, got %q", resetToken)
	}

	rec = postJSON(t, e, "/v1/transaction-password/reset", `{"user_id":"`+userID+`","reset_token":"`+resetToken+`","new_password":"abcdefgh"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("reset: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if challenges.challenge == nil || !challenges.challenge.Consumed {
		t.Fatal("reset: expected challenge to be consumed")
	}

	// The token is single use; replaying the commit must fail generically.
	rec = postJSON(t, e, "/v1/transaction-password/reset", `{"user_id":"`+userID+`","reset_token":"`+resetToken+`","new_password":"ijklmnop"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("reset replay: expected 400, got %d", rec.Code)
	}
}

func TestResetShortPassword(t *testing.T) {
	user := &domain.User{ID: uuid.New(), Email: "known@hellotrader.com"}
	e, _, _ := newResetTestServer(t, &stubUserRepo{user: user}, nil)

	rec := postJSON(t, e, "/v1/transaction-password/reset", `{"user_id":"`+user.ID.String()+`","reset_token":"abc","new_password":"short"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "8 characters") {
		t.Fatalf("expected field-level validation message, got %s", rec.Body.String())
	}
}

func TestWrongCodeAndWrongTokenLookTheSame(t *testing.T) {
	user := &domain.User{ID: uuid.New(), Email: "known@hellotrader.com"}
	e, mailer, _ := newResetTestServer(t, &stubUserRepo{user: user}, nil)

	rec := postJSON(t, e, "/v1/transaction-password/request-reset", `{"email":"known@hellotrader.com"}`)
	userID, _ := decodeBody(t, rec)["user_id"].(string)

	wrongCode := "000000"
	if wrongCode == mailer.lastCode {
		wrongCode = "000001"
	}
	badOTP := postJSON(t, e, "/v1/transaction-password/verify-otp", `{"user_id":"`+userID+`","otp":"`+wrongCode+`"}`)
	badToken := postJSON(t, e, "/v1/transaction-password/reset", `{"user_id":"`+userID+`","reset_token":"`+strings.Repeat("ab", 32)+`","new_password":"abcdefgh"}`)

	if badOTP.Code != http.StatusBadRequest || badToken.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for both, got %d and %d", badOTP.Code, badToken.Code)
	}
	if badOTP.Body.String() != badToken.Body.String() {
		t.Fatalf("expected identical generic bodies, got %s vs %s", badOTP.Body.String(), badToken.Body.String())
	}
}
