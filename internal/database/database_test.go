package database

import (
	"context"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/catalogsync/internal/config"
)

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.DatabaseConfig
		wantTLS string
		wantDB  string
	}{
		{
			name: "preferred tls",
			cfg: &config.DatabaseConfig{
				Host: "localhost", Port: 3306, User: "root", Password: "secret", Database: "storefront", TLS: "preferred",
			},
			wantTLS: "preferred",
			wantDB:  "storefront",
		},
		{
			name: "tls disabled",
			cfg: &config.DatabaseConfig{
				Host: "db.internal", Port: 3307, User: "sync", Password: "p@ss:word", Database: "shop", TLS: "disable",
			},
			wantTLS: "false",
			wantDB:  "shop",
		},
		{
			name: "tls required",
			cfg: &config.DatabaseConfig{
				Host: "localhost", Port: 3306, User: "root", TLS: "required",
			},
			wantTLS: "true",
			wantDB:  "",
		},
		{
			name: "empty tls defaults to preferred",
			cfg: &config.DatabaseConfig{
				Host: "localhost", Port: 3306, User: "root", Database: "shop",
			},
			wantTLS: "preferred",
			wantDB:  "shop",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dsn := BuildDSN(tt.cfg)

			parsed, err := mysql.ParseDSN(dsn)
			require.NoError(t, err)

			assert.Equal(t, tt.cfg.User, parsed.User)
			assert.Equal(t, tt.cfg.Password, parsed.Passwd)
			assert.Equal(t, "tcp", parsed.Net)
			assert.Equal(t, tt.wantDB, parsed.DBName)
			assert.True(t, parsed.ParseTime)
			assert.Equal(t, tt.wantTLS, parsed.TLSConfig)
			assert.Contains(t, dsn, "charset=utf8mb4")
		})
	}
}

func TestBuildDSNIPv6(t *testing.T) {
	dsn := BuildDSN(&config.DatabaseConfig{Host: "::1", Port: 3306, User: "root"})
	parsed, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "[::1]:3306", parsed.Addr)
}

func TestNewManager(t *testing.T) {
	cfg := &config.DatabaseConfig{Host: "localhost", Port: 3306}
	m := NewManager(cfg)

	assert.NotNil(t, m)
	assert.Nil(t, m.Target)
	assert.Equal(t, 3, m.maxRetries)
}

func TestManagerCloseWithoutConnect(t *testing.T) {
	m := NewManager(&config.DatabaseConfig{})
	assert.NoError(t, m.Close())
	assert.Error(t, m.Ping(context.Background()))
}

func TestConnectNilConfig(t *testing.T) {
	m := NewManager(nil)
	assert.Error(t, m.Connect(context.Background()))
}

func TestConnectUnreachable(t *testing.T) {
	m := NewManager(&config.DatabaseConfig{Host: "127.0.0.1", Port: 1, User: "nobody", TLS: "disable"})
	m.maxRetries = 2
	m.backoff = 10 * time.Millisecond

	err := m.Connect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed after 2 retries")
	assert.Nil(t, m.Target)
}

func TestConnectCancelledDuringBackoff(t *testing.T) {
	m := NewManager(&config.DatabaseConfig{Host: "127.0.0.1", Port: 1, User: "nobody", TLS: "disable"})
	m.backoff = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err := m.Connect(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
