package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"

	"github.com/aification/authsvc/internal/models"
	"github.com/aification/authsvc/internal/server/auth"
	"github.com/aification/authsvc/internal/validation"
	"github.com/aification/authsvc/pkg/api"
)

const maxBodyBytes = 1 << 20

// AuthService определяет операции авторизации, которые нужны handler'ам
type AuthService interface {
	Signup(ctx context.Context, email, password string) (*models.User, error)
	LoginLocal(ctx context.Context, email, password string) (*auth.Token, error)
	LoginFederated(ctx context.Context, assertion string) (*auth.Token, error)
}

// AuthHandler обрабатывает запросы авторизации
type AuthHandler struct {
	logger *slog.Logger
	auth   AuthService
}

// NewAuthHandler создает новый handler для авторизации
func NewAuthHandler(logger *slog.Logger, authService AuthService) *AuthHandler {
	return &AuthHandler{
		logger: logger,
		auth:   authService,
	}
}

// Signup обрабатывает POST /signup
// Регистрация по email и паролю
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.SignupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode signup request", slog.Any("error", err))
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := validation.ValidateEmail(req.Email); err != nil {
		h.sendError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if err := validation.ValidatePassword(req.Password); err != nil {
		h.sendError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	if _, err := h.auth.Signup(ctx, req.Email, req.Password); err != nil {
		h.handleAuthError(ctx, w, "signup failed", err)
		return
	}

	h.sendJSON(w, api.SignupResponse{Msg: "User created successfully"}, http.StatusCreated)
}

// Login обрабатывает POST /login
// Принимает форму OAuth2 (username=email, password) или JSON {email, password}
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	email, password, err := h.readCredentials(w, r)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to decode login request", slog.Any("error", err))
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if email == "" || password == "" {
		h.sendError(w, "email and password are required", http.StatusUnprocessableEntity)
		return
	}

	token, err := h.auth.LoginLocal(ctx, email, password)
	if err != nil {
		h.handleAuthError(ctx, w, "login failed", err)
		return
	}

	h.sendToken(w, token)
}

// Google обрабатывает POST /auth/google
// Вход через Google ID token (поле credential)
func (h *AuthHandler) Google(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.GoogleAuthRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode google auth request", slog.Any("error", err))
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.Credential == "" {
		h.sendError(w, "credential is required", http.StatusUnprocessableEntity)
		return
	}

	token, err := h.auth.LoginFederated(ctx, req.Credential)
	if err != nil {
		h.handleAuthError(ctx, w, "google login failed", err)
		return
	}

	h.sendToken(w, token)
}

// Me обрабатывает GET /me
// Требует AuthMiddleware, который кладет principal в контекст
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := GetPrincipal(r.Context())
	if !ok {
		h.sendError(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	h.sendJSON(w, api.MeResponse{
		Email: principal.Subject,
		Auth:  principal.AuthMethod,
	}, http.StatusOK)
}

func (h *AuthHandler) readCredentials(w http.ResponseWriter, r *http.Request) (string, string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return "", "", err
		}
		return r.PostFormValue("username"), r.PostFormValue("password"), nil
	default:
		var req api.LoginRequest
		if err := decodeJSON(w, r, &req); err != nil {
			return "", "", err
		}
		return req.Email, req.Password, nil
	}
}

// handleAuthError переводит ошибку сервиса в HTTP статус
func (h *AuthHandler) handleAuthError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	status, message := StatusFor(err)

	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, msg, slog.Int("status", status), slog.Any("error", err))

	h.sendError(w, message, status)
}

// StatusFor возвращает HTTP статус и безопасное сообщение для ошибки сервиса
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrEmailAlreadyRegistered):
		return http.StatusBadRequest, "Email already registered"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, auth.ErrIdentityVerificationFailed):
		return http.StatusUnauthorized, "Invalid Google token"
	case errors.Is(err, auth.ErrProviderConflict):
		return http.StatusConflict, "Email is linked to a different Google account"
	case errors.Is(err, auth.ErrConfiguration):
		return http.StatusInternalServerError, "Google client ID(s) not configured"
	case errors.Is(err, auth.ErrMalformedAuthHeader):
		return http.StatusUnauthorized, "Missing or invalid Authorization header"
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrWrongTokenType):
		return http.StatusUnauthorized, "Invalid token"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func (h *AuthHandler) sendToken(w http.ResponseWriter, token *auth.Token) {
	h.sendJSON(w, api.TokenResponse{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		ExpiresIn:   int64(token.ExpiresIn.Seconds()),
	}, http.StatusOK)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

// sendJSON отправляет JSON ответ
func (h *AuthHandler) sendJSON(w http.ResponseWriter, data any, statusCode int) {
	writeJSON(h.logger, w, data, statusCode)
}

// sendError отправляет JSON ответ с ошибкой
func (h *AuthHandler) sendError(w http.ResponseWriter, message string, statusCode int) {
	WriteError(h.logger, w, message, statusCode)
}

func writeJSON(logger *slog.Logger, w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", slog.Any("error", err))
	}
}

// WriteError пишет api.ErrorResponse, используется и middleware
func WriteError(logger *slog.Logger, w http.ResponseWriter, message string, statusCode int) {
	resp := api.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Detail:  message,
	}
	writeJSON(logger, w, resp, statusCode)
}
