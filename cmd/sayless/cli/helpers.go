package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/viper"

	"github.com/sayless/sayless/internal/config"
	"github.com/sayless/sayless/internal/store"
)

// loadConfig reads the config file, merges SAYLESS_* environment
// variables and any bound command flags over it through viper, and
// validates the result. The master token only ever comes from the
// environment.
func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		path = "sayless.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	// viper.IsSet is false for a bound flag left at its default, so the
	// file value survives unless the operator actually overrode it.
	if viper.IsSet("server.host") {
		cfg.Server.Host = viper.GetString("server.host")
	}
	if viper.IsSet("server.port") {
		cfg.Server.Port = viper.GetInt("server.port")
	}
	if viper.IsSet("database.driver") {
		cfg.Database.Driver = viper.GetString("database.driver")
	}
	if viper.IsSet("database.dsn") {
		cfg.Database.DSN = viper.GetString("database.dsn")
	}
	if viper.IsSet("max_strikes") {
		cfg.MaxStrikes = uint16(viper.GetUint32("max_strikes"))
	}
	if viper.IsSet("logging.level") {
		cfg.Logging.Level = viper.GetString("logging.level")
	}
	if cfg.Tokens != nil {
		cfg.Tokens.MasterToken = viper.GetString("master_token")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger at the configured level.
func newLogger(cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.Logging.SlogLevel(),
	}))
}

// openStore connects to the configured database and applies migrations.
func openStore(cfg *config.Config) (*store.Store, error) {
	st, err := store.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(cfg.RecordIPs(), cfg.TokensEnabled()); err != nil {
		st.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	return st, nil
}
