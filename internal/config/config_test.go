package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
		want *Config
	}{
		{
			name: "defaults",
			vars: map[string]string{},
			want: &Config{
				Env:             "development",
				HTTPAddr:        ":8000",
				DatabaseDSN:     "file:authsvc.db",
				SecretKey:       "dev_secret_change_me",
				AccessTokenTTL:  time.Hour,
				RefreshTokenTTL: 7 * 24 * time.Hour,
				GoogleCertsURL:  "https://www.googleapis.com/oauth2/v3/certs",
			},
		},
		{
			name: "everything set",
			vars: map[string]string{
				"ENV":                         "production",
				"VITE_ENV":                    "staging",
				"HTTP_ADDR":                   "0.0.0.0:9000",
				"DATABASE_DSN":                "postgres://auth@db/auth",
				"SECRET_KEY":                  "s3cret",
				"ACCESS_TOKEN_EXPIRE_MINUTES": "15",
				"REFRESH_TOKEN_EXPIRE_DAYS":   "30",
				"GOOGLE_CLIENT_IDS":           " a.apps , ,b.apps ",
				"GOOGLE_CLIENT_ID":            "ignored.apps",
				"GOOGLE_CERTS_URL":            "http://127.0.0.1:9999/certs",
				"FRONTEND_ORIGINS":            "https://app.example.com, https://admin.example.com",
			},
			want: &Config{
				Env:             "production",
				HTTPAddr:        "0.0.0.0:9000",
				DatabaseDSN:     "postgres://auth@db/auth",
				SecretKey:       "s3cret",
				AccessTokenTTL:  15 * time.Minute,
				RefreshTokenTTL: 30 * 24 * time.Hour,
				GoogleAudiences: []string{"a.apps", "b.apps"},
				GoogleCertsURL:  "http://127.0.0.1:9999/certs",
				FrontendOrigins: []string{"https://app.example.com", "https://admin.example.com"},
			},
		},
		{
			name: "fallback variables",
			vars: map[string]string{
				"VITE_ENV":         "staging",
				"GOOGLE_CLIENT_ID": "single.apps",
			},
			want: &Config{
				Env:             "staging",
				HTTPAddr:        ":8000",
				DatabaseDSN:     "file:authsvc.db",
				SecretKey:       "dev_secret_change_me",
				AccessTokenTTL:  time.Hour,
				RefreshTokenTTL: 7 * 24 * time.Hour,
				GoogleAudiences: []string{"single.apps"},
				GoogleCertsURL:  "https://www.googleapis.com/oauth2/v3/certs",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LoadFrom(tt.vars)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("LoadFrom() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadFrom_Invalid(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
	}{
		{name: "not a number", vars: map[string]string{"ACCESS_TOKEN_EXPIRE_MINUTES": "soon"}},
		{name: "zero access ttl", vars: map[string]string{"ACCESS_TOKEN_EXPIRE_MINUTES": "0"}},
		{name: "negative refresh ttl", vars: map[string]string{"REFRESH_TOKEN_EXPIRE_DAYS": "-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom(tt.vars)
			assert.Error(t, err)
		})
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{HTTPAddr: ":8000", DatabaseDSN: "x", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SECRET_KEY")

	cfg.SecretKey = "k"
	assert.NoError(t, cfg.Validate())
}

func TestCORSOrigins(t *testing.T) {
	dev := &Config{Env: "Development", FrontendOrigins: []string{"https://app.example.com"}}
	assert.True(t, dev.IsDevelopment())
	assert.Equal(t, []string{"*"}, dev.CORSOrigins())

	prod := &Config{Env: "production", FrontendOrigins: []string{"https://app.example.com"}}
	got := prod.CORSOrigins()
	assert.Contains(t, got, "http://localhost:5173")
	assert.Contains(t, got, "http://127.0.0.1:3000")
	assert.Equal(t, "https://app.example.com", got[len(got)-1])
	assert.NotContains(t, got, "*")
	assert.Len(t, localOrigins, 6, "CORSOrigins must not alias the defaults")
}

func TestAudiencePreview(t *testing.T) {
	cfg := &Config{GoogleAudiences: []string{
		"1234567890-abcdefghijklmnop.apps.googleusercontent.com",
		"short",
	}}

	want := []string{"1234567890-abcdefghijklmnop.…", "short…"}
	if diff := cmp.Diff(want, cfg.AudiencePreview()); diff != "" {
		t.Errorf("AudiencePreview() mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, (&Config{SecretKey: DefaultSecretKey}).UsesDefaultSecret())
}
