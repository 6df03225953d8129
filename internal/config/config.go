package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
)

// Supported database drivers.
const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// DefaultDatabasePath is where the SQLite database lives unless configured otherwise.
const DefaultDatabasePath = "~/.local/share/ledger/ledger.db"

// Config is the resolved application configuration.
type Config struct {
	Categories  CategoriesConfig
	Database    DatabaseConfig
	Collections CollectionsConfig
	Logging     LoggingConfig
	Server      ServerConfig
	UserID      string
}

// DatabaseConfig selects and locates the backing store.
type DatabaseConfig struct {
	Driver          string
	URI             string
	Name            string
	Path            string
	ConnectTimeout  time.Duration
	ConnectAttempts int
}

// CollectionsConfig names the MongoDB collections.
type CollectionsConfig struct {
	Users        string
	Transactions string
	Categories   string
}

// CategoriesConfig lists the default category names seeded for every user.
type CategoriesConfig struct {
	Expense []string
	Income  []string
}

// Defaults returns the configured defaults keyed by transaction type.
func (c CategoriesConfig) Defaults() model.DefaultCategories {
	return model.DefaultCategories{
		model.TransactionTypeExpense: append([]string(nil), c.Expense...),
		model.TransactionTypeIncome:  append([]string(nil), c.Income...),
	}
}

// LoggingConfig configures slog.
type LoggingConfig struct {
	Level  string
	Format string
}

// ServerConfig configures the HTTP data API.
type ServerConfig struct {
	Addr string
}

// SetDefaults registers every default value on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.uri", "mongodb://localhost:27017")
	v.SetDefault("database.name", "finance_tracker")
	v.SetDefault("database.path", DefaultDatabasePath)
	v.SetDefault("database.connect_timeout", 10*time.Second)
	v.SetDefault("database.connect_attempts", 3)

	v.SetDefault("collections.users", "users")
	v.SetDefault("collections.transactions", "transactions")
	v.SetDefault("collections.categories", "categories")

	v.SetDefault("categories.expense", []string{"Shopping", "Transportation", "Entertainment", "Others"})
	v.SetDefault("categories.income", []string{"Salary", "Freelance", "Gift/Voucher"})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("server.addr", ":8080")
}

// Bind wires environment variables into v. Keys map to LEDGER_<SECTION>_<KEY>;
// MONGO_URI is also accepted for database.uri.
func Bind(v *viper.Viper) {
	SetDefaults(v)
	v.SetEnvPrefix("LEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("database.uri", "LEDGER_DATABASE_URI", "MONGO_URI")
}

// LoadDotEnv loads variables from the given files (".env" when none are given)
// without overriding variables already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// Load resolves the configuration from v and validates it.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			Driver:          strings.ToLower(strings.TrimSpace(v.GetString("database.driver"))),
			URI:             v.GetString("database.uri"),
			Name:            v.GetString("database.name"),
			Path:            ExpandPath(v.GetString("database.path")),
			ConnectTimeout:  v.GetDuration("database.connect_timeout"),
			ConnectAttempts: v.GetInt("database.connect_attempts"),
		},
		Collections: CollectionsConfig{
			Users:        v.GetString("collections.users"),
			Transactions: v.GetString("collections.transactions"),
			Categories:   v.GetString("collections.categories"),
		},
		Categories: CategoriesConfig{
			Expense: stringList(v, "categories.expense"),
			Income:  stringList(v, "categories.income"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
		Server: ServerConfig{
			Addr: v.GetString("server.addr"),
		},
		UserID: v.GetString("user.id"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the application cannot run with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("%w: database.path", common.ErrMissingConfig)
		}
	case DriverMongo:
		if c.Database.URI == "" {
			return fmt.Errorf("%w: database.uri", common.ErrMissingConfig)
		}
		if c.Database.Name == "" {
			return fmt.Errorf("%w: database.name", common.ErrMissingConfig)
		}
	default:
		return fmt.Errorf("%w: database.driver must be %q or %q, got %q",
			common.ErrInvalidConfig, DriverSQLite, DriverMongo, c.Database.Driver)
	}

	if c.Database.ConnectTimeout <= 0 {
		return fmt.Errorf("%w: database.connect_timeout must be positive", common.ErrInvalidConfig)
	}
	if c.Database.ConnectAttempts < 1 {
		return fmt.Errorf("%w: database.connect_attempts must be at least 1", common.ErrInvalidConfig)
	}

	for _, names := range [][]string{c.Categories.Expense, c.Categories.Income} {
		for _, name := range names {
			if strings.TrimSpace(name) == "" {
				return fmt.Errorf("%w: default category names cannot be empty", common.ErrInvalidConfig)
			}
		}
	}
	return nil
}

// stringList reads a list that may come from YAML or from a comma-separated
// environment variable.
func stringList(v *viper.Viper, key string) []string {
	var raw []string
	if s, ok := v.Get(key).(string); ok {
		raw = strings.Split(s, ",")
	} else {
		raw = v.GetStringSlice(key)
	}

	var names []string
	for _, name := range raw {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}
