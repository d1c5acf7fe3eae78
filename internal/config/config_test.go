package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper to set env vars and clean up after
func setEnv(t *testing.T, key, value string) {
	t.Helper()
	old := os.Getenv(key)
	os.Setenv(key, value)
	t.Cleanup(func() {
		if old == "" {
			os.Unsetenv(key)
		} else {
			os.Setenv(key, old)
		}
	})
}

func TestLoad_Defaults(t *testing.T) {
	setEnv(t, "PORT", "")
	setEnv(t, "BACKEND_URL", "")
	setEnv(t, "FETCH_LIMIT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultBackendURL, cfg.BackendURL)
	assert.Equal(t, DefaultFetchLimit, cfg.FetchLimit)
	assert.Equal(t, DefaultDebounce, cfg.SearchDebounce)
	assert.Equal(t, DefaultBackendTimeout, cfg.BackendTimeout)
}

func TestLoad_Overrides(t *testing.T) {
	setEnv(t, "PORT", "9090")
	setEnv(t, "BACKEND_URL", "http://fraud-api:5000")
	setEnv(t, "BACKEND_TIMEOUT", "5s")
	setEnv(t, "FETCH_LIMIT", "25")
	setEnv(t, "SEARCH_DEBOUNCE", "150ms")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "http://fraud-api:5000", cfg.BackendURL)
	assert.Equal(t, 5*time.Second, cfg.BackendTimeout)
	assert.Equal(t, 25, cfg.FetchLimit)
	assert.Equal(t, 150*time.Millisecond, cfg.SearchDebounce)
}

func TestLoad_InvalidBackendURL(t *testing.T) {
	setEnv(t, "BACKEND_URL", "not a url")

	_, err := Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "BACKEND_URL")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name: "valid",
			config: Config{
				BackendURL: "http://localhost:5000",
				FetchLimit: 50,
				BackendRPS: 10,
			},
			wantErr: false,
		},
		{
			name: "missing backend URL",
			config: Config{
				FetchLimit: 50,
				BackendRPS: 10,
			},
			wantErr: true,
		},
		{
			name: "relative backend URL",
			config: Config{
				BackendURL: "/api",
				FetchLimit: 50,
				BackendRPS: 10,
			},
			wantErr: true,
		},
		{
			name: "zero fetch limit",
			config: Config{
				BackendURL: "http://localhost:5000",
				FetchLimit: 0,
				BackendRPS: 10,
			},
			wantErr: true,
		},
		{
			name: "zero rps",
			config: Config{
				BackendURL: "http://localhost:5000",
				FetchLimit: 50,
				BackendRPS: 0,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_EnvHelpers(t *testing.T) {
	cfg := Config{Env: "development"}
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())

	cfg.Env = "production"
	assert.False(t, cfg.IsDevelopment())
	assert.True(t, cfg.IsProduction())
}
