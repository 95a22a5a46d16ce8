package api

// SignupRequest представляет запрос на регистрацию по email и паролю
type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupResponse представляет ответ на успешную регистрацию
type SignupResponse struct {
	Msg string `json:"msg"` // сообщение об успешной регистрации
}

// LoginRequest представляет JSON запрос на вход по паролю
// Форма application/x-www-form-urlencoded передает email в поле username
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// GoogleAuthRequest представляет запрос на вход через Google
type GoogleAuthRequest struct {
	Credential string `json:"credential"` // ID token от Google Identity Services
}

// TokenResponse представляет ответ с токеном доступа
type TokenResponse struct {
	AccessToken string `json:"access_token"`         // JWT access token
	TokenType   string `json:"token_type"`           // всегда "bearer"
	ExpiresIn   int64  `json:"expires_in,omitempty"` // время жизни access token в секундах
}

// MeResponse представляет текущего пользователя по access token
type MeResponse struct {
	Email string `json:"email"`
	Auth  string `json:"auth,omitempty"` // "local" или имя провайдера
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`             // описание ошибки
	Message string `json:"message,omitempty"` // дополнительное сообщение
	Detail  string `json:"detail,omitempty"`  // то же сообщение, поле читает фронтенд
}

// RootResponse представляет ответ GET /
type RootResponse struct {
	Service string `json:"service"`
	Env     string `json:"env"`
	OK      bool   `json:"ok"`
}

// HealthResponse представляет ответ GET /health
type HealthResponse struct {
	OK bool   `json:"ok"`
	TS string `json:"ts"` // RFC 3339, UTC
}
