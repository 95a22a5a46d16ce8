package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aification/authsvc/internal/models"
	"github.com/aification/authsvc/internal/server/auth"
	"github.com/aification/authsvc/internal/server/identity"
	"github.com/aification/authsvc/pkg/api"
)

func setupTestLogger() *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelError, // Only show errors in tests
	}
	handler := slog.NewTextHandler(os.Stdout, opts)
	return slog.New(handler)
}

// mockAuthService is a mock implementation of AuthService for testing
type mockAuthService struct {
	signupErr    error
	loginErr     error
	federatedErr error

	gotEmail     string
	gotPassword  string
	gotAssertion string
}

func (m *mockAuthService) Signup(ctx context.Context, email, password string) (*models.User, error) {
	m.gotEmail, m.gotPassword = email, password
	if m.signupErr != nil {
		return nil, m.signupErr
	}
	return &models.User{ID: "u-1", Email: email}, nil
}

func (m *mockAuthService) LoginLocal(ctx context.Context, email, password string) (*auth.Token, error) {
	m.gotEmail, m.gotPassword = email, password
	if m.loginErr != nil {
		return nil, m.loginErr
	}
	return &auth.Token{AccessToken: "access-" + email, TokenType: auth.TokenTypeBearer, ExpiresIn: time.Hour}, nil
}

func (m *mockAuthService) LoginFederated(ctx context.Context, assertion string) (*auth.Token, error) {
	m.gotAssertion = assertion
	if m.federatedErr != nil {
		return nil, m.federatedErr
	}
	return &auth.Token{AccessToken: "fed-token", TokenType: auth.TokenTypeBearer, ExpiresIn: time.Hour}, nil
}

func jsonBody(t *testing.T, v any) *bytes.Reader {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(body)
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) api.ErrorResponse {
	t.Helper()
	var resp api.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func TestAuthHandler_Signup(t *testing.T) {
	tests := []struct {
		name       string
		body       any
		rawBody    string
		serviceErr error
		wantStatus int
	}{
		{name: "created", body: api.SignupRequest{Email: "a@x.com", Password: "pw"}, wantStatus: http.StatusCreated},
		{name: "invalid json", rawBody: "{not json", wantStatus: http.StatusBadRequest},
		{name: "invalid email", body: api.SignupRequest{Email: "nope", Password: "pw"}, wantStatus: http.StatusUnprocessableEntity},
		{name: "empty password", body: api.SignupRequest{Email: "a@x.com"}, wantStatus: http.StatusUnprocessableEntity},
		{name: "password over 72 bytes", body: api.SignupRequest{Email: "a@x.com", Password: strings.Repeat("p", 73)}, wantStatus: http.StatusUnprocessableEntity},
		{name: "duplicate email", body: api.SignupRequest{Email: "a@x.com", Password: "pw"}, serviceErr: auth.ErrEmailAlreadyRegistered, wantStatus: http.StatusBadRequest},
		{name: "storage failure", body: api.SignupRequest{Email: "a@x.com", Password: "pw"}, serviceErr: errors.New("db down"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockAuthService{signupErr: tt.serviceErr}
			handler := NewAuthHandler(setupTestLogger(), svc)

			var req *http.Request
			if tt.rawBody != "" {
				req = httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader(tt.rawBody))
			} else {
				req = httptest.NewRequest(http.MethodPost, "/signup", jsonBody(t, tt.body))
			}
			req.Header.Set("Content-Type", "application/json")

			w := httptest.NewRecorder()
			handler.Signup(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			if tt.wantStatus == http.StatusCreated {
				var resp api.SignupResponse
				require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
				assert.Equal(t, "User created successfully", resp.Msg)
				assert.Equal(t, "a@x.com", svc.gotEmail)
				return
			}

			resp := decodeError(t, w)
			assert.Equal(t, http.StatusText(tt.wantStatus), resp.Error)
			assert.NotEmpty(t, resp.Detail)
			assert.NotContains(t, resp.Detail, "db down", "internal errors are not leaked")
		})
	}
}

func TestAuthHandler_Login_Form(t *testing.T) {
	svc := &mockAuthService{}
	handler := NewAuthHandler(setupTestLogger(), svc)

	form := url.Values{"username": {"a@x.com"}, "password": {"secret"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	w := httptest.NewRecorder()
	handler.Login(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp api.TokenResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "access-a@x.com", resp.AccessToken)
	assert.Equal(t, "bearer", resp.TokenType)
	assert.EqualValues(t, 3600, resp.ExpiresIn)
	assert.Equal(t, "secret", svc.gotPassword)
}

func TestAuthHandler_Login(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		serviceErr  error
		wantStatus  int
	}{
		{name: "json", contentType: "application/json", body: `{"email":"a@x.com","password":"pw"}`, wantStatus: http.StatusOK},
		{name: "json with charset", contentType: "application/json; charset=utf-8", body: `{"email":"a@x.com","password":"pw"}`, wantStatus: http.StatusOK},
		{name: "form missing password", contentType: "application/x-www-form-urlencoded", body: "username=a%40x.com", wantStatus: http.StatusUnprocessableEntity},
		{name: "json missing email", contentType: "application/json", body: `{"password":"pw"}`, wantStatus: http.StatusUnprocessableEntity},
		{name: "broken json", contentType: "application/json", body: `{`, wantStatus: http.StatusBadRequest},
		{name: "invalid credentials", contentType: "application/json", body: `{"email":"a@x.com","password":"pw"}`, serviceErr: auth.ErrInvalidCredentials, wantStatus: http.StatusUnauthorized},
		{name: "storage failure", contentType: "application/json", body: `{"email":"a@x.com","password":"pw"}`, serviceErr: fmt.Errorf("failed to record login: %w", errors.New("db")), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewAuthHandler(setupTestLogger(), &mockAuthService{loginErr: tt.serviceErr})

			req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)

			w := httptest.NewRecorder()
			handler.Login(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestAuthHandler_Google(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		serviceErr error
		wantStatus int
	}{
		{name: "success", body: `{"credential":"id-token"}`, wantStatus: http.StatusOK},
		{name: "missing credential", body: `{}`, wantStatus: http.StatusUnprocessableEntity},
		{name: "verification failed", body: `{"credential":"x"}`, serviceErr: &identity.VerificationError{Reason: errors.New("expired")}, wantStatus: http.StatusUnauthorized},
		{name: "provider conflict", body: `{"credential":"x"}`, serviceErr: auth.ErrProviderConflict, wantStatus: http.StatusConflict},
		{name: "not configured", body: `{"credential":"x"}`, serviceErr: fmt.Errorf("%w: no accepted audiences", identity.ErrConfiguration), wantStatus: http.StatusInternalServerError},
		{name: "lost signup race", body: `{"credential":"x"}`, serviceErr: auth.ErrEmailAlreadyRegistered, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockAuthService{federatedErr: tt.serviceErr}
			handler := NewAuthHandler(setupTestLogger(), svc)

			req := httptest.NewRequest(http.MethodPost, "/auth/google", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")

			w := httptest.NewRecorder()
			handler.Google(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				var resp api.TokenResponse
				require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
				assert.Equal(t, "fed-token", resp.AccessToken)
				assert.Equal(t, "id-token", svc.gotAssertion)
			}
		})
	}
}

func TestAuthHandler_Me(t *testing.T) {
	handler := NewAuthHandler(setupTestLogger(), &mockAuthService{})

	t.Run("with principal", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req = req.WithContext(WithPrincipal(req.Context(), &auth.Principal{Subject: "a@x.com", AuthMethod: "local"}))

		w := httptest.NewRecorder()
		handler.Me(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var resp api.MeResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, api.MeResponse{Email: "a@x.com", Auth: "local"}, resp)
	})

	t.Run("without principal", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.Me(w, httptest.NewRequest(http.MethodGet, "/me", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: auth.ErrEmailAlreadyRegistered, want: http.StatusBadRequest},
		{err: auth.ErrInvalidCredentials, want: http.StatusUnauthorized},
		{err: &identity.VerificationError{Reason: errors.New("x")}, want: http.StatusUnauthorized},
		{err: auth.ErrProviderConflict, want: http.StatusConflict},
		{err: auth.ErrConfiguration, want: http.StatusInternalServerError},
		{err: auth.ErrMalformedAuthHeader, want: http.StatusUnauthorized},
		{err: fmt.Errorf("%w: expired", auth.ErrInvalidToken), want: http.StatusUnauthorized},
		{err: auth.ErrWrongTokenType, want: http.StatusUnauthorized},
		{err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			got, msg := StatusFor(tt.err)
			assert.Equal(t, tt.want, got)
			assert.NotEmpty(t, msg)
		})
	}
}
