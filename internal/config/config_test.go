package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
)

func TestLoad_Defaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "finance_tracker", cfg.Database.Name)
	assert.Equal(t, 10*time.Second, cfg.Database.ConnectTimeout)
	assert.Equal(t, 3, cfg.Database.ConnectAttempts)
	assert.NotContains(t, cfg.Database.Path, "~")
	assert.Equal(t, "transactions", cfg.Collections.Transactions)
	assert.Equal(t, ":8080", cfg.Server.Addr)

	defaults := cfg.Categories.Defaults()
	assert.Equal(t, []string{"Shopping", "Transportation", "Entertainment", "Others"}, defaults[model.TransactionTypeExpense])
	assert.Equal(t, []string{"Salary", "Freelance", "Gift/Voucher"}, defaults[model.TransactionTypeIncome])
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("LEDGER_DATABASE_DRIVER", "Mongo")
	t.Setenv("MONGO_URI", "mongodb://db.internal:27017")
	t.Setenv("LEDGER_DATABASE_CONNECT_TIMEOUT", "2s")
	t.Setenv("LEDGER_CATEGORIES_EXPENSE", "Rent, Eating Out ,Travel")
	t.Setenv("LEDGER_USER_ID", "abc")

	v := viper.New()
	Bind(v)

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, DriverMongo, cfg.Database.Driver)
	assert.Equal(t, "mongodb://db.internal:27017", cfg.Database.URI)
	assert.Equal(t, 2*time.Second, cfg.Database.ConnectTimeout)
	assert.Equal(t, []string{"Rent", "Eating Out", "Travel"}, cfg.Categories.Expense)
	assert.Equal(t, "abc", cfg.UserID)
}

func TestLoad_PrefixedURIWins(t *testing.T) {
	t.Setenv("LEDGER_DATABASE_URI", "mongodb://primary:27017")
	t.Setenv("MONGO_URI", "mongodb://fallback:27017")

	v := viper.New()
	Bind(v)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "mongodb://primary:27017", cfg.Database.URI)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Database: DatabaseConfig{
				Driver:          DriverMongo,
				URI:             "mongodb://localhost",
				Name:            "ledger",
				ConnectTimeout:  time.Second,
				ConnectAttempts: 1,
			},
			Categories: CategoriesConfig{Expense: []string{"Food"}},
		}
	}

	tests := []struct {
		mutate  func(*Config)
		wantErr error
		name    string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "postgres" }, wantErr: common.ErrInvalidConfig},
		{name: "mongo without uri", mutate: func(c *Config) { c.Database.URI = "" }, wantErr: common.ErrMissingConfig},
		{name: "sqlite without path", mutate: func(c *Config) { c.Database.Driver = DriverSQLite }, wantErr: common.ErrMissingConfig},
		{name: "zero timeout", mutate: func(c *Config) { c.Database.ConnectTimeout = 0 }, wantErr: common.ErrInvalidConfig},
		{name: "zero attempts", mutate: func(c *Config) { c.Database.ConnectAttempts = 0 }, wantErr: common.ErrInvalidConfig},
		{name: "blank category", mutate: func(c *Config) { c.Categories.Income = []string{" "} }, wantErr: common.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("LEDGER_TEST_DOTENV_VALUE=from-file\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("LEDGER_TEST_DOTENV_VALUE") })

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), path))
	assert.Equal(t, "from-file", os.Getenv("LEDGER_TEST_DOTENV_VALUE"))
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("LEDGER_TEST_DIR", "/data")

	assert.Equal(t, "", ExpandPath(""))
	assert.Equal(t, home, ExpandPath("~"))
	assert.Equal(t, filepath.Join(home, "ledger.db"), ExpandPath("~/ledger.db"))
	assert.Equal(t, "/data/ledger.db", ExpandPath("$LEDGER_TEST_DIR/ledger.db"))
}
