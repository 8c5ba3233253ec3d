package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Load_Defaults(t *testing.T) {
	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, ":memory:", cfg.Store.URI)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 1<<20, cfg.HTTP.MaxResponseSize)
	assert.Equal(t, 600, cfg.HTTP.RateLimit)
	assert.Equal(t, 10, cfg.Users.BcryptCost)
}

func Test_Load_EnvOverrides(t *testing.T) {
	t.Setenv("RPQ_STORE_DRIVER", "pgx")
	t.Setenv("RPQ_STORE_URI", "postgres://localhost/rpq")
	t.Setenv("RPQ_SERVER_ADDR", ":9090")
	t.Setenv("RPQ_LOG_FORMAT", "json")
	t.Setenv("RPQ_HTTP_MAX_RESPONSE_SIZE", "2048")
	t.Setenv("RPQ_HTTP_RATE_LIMIT", "0")

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, DriverPgx, cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/rpq", cfg.Store.URI)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 2048, cfg.HTTP.MaxResponseSize)
	assert.Equal(t, 0, cfg.HTTP.RateLimit)
}

func Test_Load_MongoURIFallback(t *testing.T) {
	t.Setenv("RPQ_STORE_DRIVER", "mongo")
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017/accounts")

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, "mongodb://localhost:27017/accounts", cfg.Store.URI)
	assert.Equal(t, "accounts", cfg.Store.Database)
}

func Test_Load_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rpq.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \":7070\"\nlog:\n  level: debug\n"), 0o600))
	t.Setenv("RPQ_LOG_LEVEL", "warn")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func Test_Load_PgxRequiresURI(t *testing.T) {
	t.Setenv("RPQ_STORE_DRIVER", "pgx")

	_, err := Load("")
	assert.Error(t, err)
}

func Test_Load_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("RPQ_STORE_DRIVER", "oracle")

	_, err := Load("")
	assert.Error(t, err)
}

func Test_Load_MissingConfigFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func Test_DatabaseFromURI(t *testing.T) {
	assert.Equal(t, "rpq", databaseFromURI("mongodb://localhost:27017"))
	assert.Equal(t, "rpq", databaseFromURI("mongodb://localhost:27017/"))
	assert.Equal(t, "shop", databaseFromURI("mongodb+srv://u:p@cluster0.example.net/shop?retryWrites=true"))
}
