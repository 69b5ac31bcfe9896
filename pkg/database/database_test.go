package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kundrost/feedback-fraud/pkg/config"
)

func TestDatabaseConfigDSN(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.DatabaseConfig
		expected string
	}{
		{
			name: "local config",
			cfg: config.DatabaseConfig{
				Host:     "localhost",
				Port:     "5432",
				User:     "postgres",
				Password: "secret",
				DBName:   "fraud",
				SSLMode:  "disable",
			},
			expected: "host=localhost port=5432 user=postgres password=secret dbname=fraud sslmode=disable",
		},
		{
			name: "production config",
			cfg: config.DatabaseConfig{
				Host:     "db.example.com",
				Port:     "5432",
				User:     "app_user",
				Password: "p@ssw0rd",
				DBName:   "production",
				SSLMode:  "require",
			},
			expected: "host=db.example.com port=5432 user=app_user password=p@ssw0rd dbname=production sslmode=require",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.cfg.DSN())
		})
	}
}

func TestNewPostgresPoolInvalidConfig(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host:    "localhost",
		Port:    "not-a-port",
		User:    "postgres",
		DBName:  "fraud",
		SSLMode: "disable",
	}

	pool, err := NewPostgresPool(&cfg)
	require.Error(t, err)
	assert.Nil(t, pool)
}

func TestCloseNilPool(t *testing.T) {
	// Must not panic
	Close(nil)
}
