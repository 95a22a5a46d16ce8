package validation

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/aification/authsvc/internal/crypto"
)

// MaxEmailLen максимальная длина email (RFC 5321)
const MaxEmailLen = 254

// ValidateEmail проверяет, что email это голый адрес вида local@domain
// Без display name и угловых скобок, домен должен содержать точку
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email cannot be empty")
	}

	if len(email) > MaxEmailLen {
		return fmt.Errorf("email must not exceed %d characters", MaxEmailLen)
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return fmt.Errorf("email is not a valid address")
	}

	_, domain, _ := strings.Cut(email, "@")
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return fmt.Errorf("email domain is not valid")
	}

	return nil
}

// ValidatePassword проверяет пароль для локальной учетной записи
// Не пустой и не длиннее 72 байт (ограничение bcrypt)
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("password cannot be empty")
	}

	if len(password) > crypto.MaxPasswordBytes {
		return fmt.Errorf("password must not exceed %d bytes", crypto.MaxPasswordBytes)
	}

	return nil
}
