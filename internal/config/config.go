// Package config loads connection settings for the storage backends and the
// NATS ingest subscriber, the way storage.Config/DefaultConfig seed
// local-dev connection settings for the storage layer itself.
package config

import (
	"flag"

	"wmosonde/internal/storage"
)

// NATSConfig holds connection settings for the bulletin ingest subscriber.
type NATSConfig struct {
	URL     string
	Subject string
}

// Config is the full set of connection settings a wmosonde command needs:
// the dual/triple storage backends plus the NATS ingest feed and the path
// to the flat-file station table.
type Config struct {
	ClickHouse       storage.ClickHouseConfig
	Postgres         storage.PostgresConfig
	SQLitePath       string
	NATS             NATSConfig
	StationTablePath string
}

// DefaultConfig returns local-development defaults, mirroring
// storage.DefaultConfig for the two SQL backends and adding the
// WMO-specific NATS/station-file settings.
func DefaultConfig() Config {
	base := storage.DefaultConfig()
	return Config{
		ClickHouse: base.ClickHouse,
		Postgres:   base.Postgres,
		SQLitePath: "wmosonde.db",
		NATS: NATSConfig{
			URL:     "nats://localhost:4222",
			Subject: "wmo.bulletins.raw",
		},
		StationTablePath: "snstns.tbl",
	}
}

// RegisterFlags binds every Config field to a flag on fs, seeded with the
// values already present in cfg (normally DefaultConfig()). Call fs.Parse
// after this to apply overrides; each subcommand builds its own
// flag.NewFlagSet and calls this to wire the shared connection flags in.
func (cfg *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&cfg.ClickHouse.Host, "ch-host", cfg.ClickHouse.Host, "ClickHouse host")
	fs.IntVar(&cfg.ClickHouse.Port, "ch-port", cfg.ClickHouse.Port, "ClickHouse port")
	fs.StringVar(&cfg.ClickHouse.Database, "ch-database", cfg.ClickHouse.Database, "ClickHouse database")
	fs.StringVar(&cfg.ClickHouse.User, "ch-user", cfg.ClickHouse.User, "ClickHouse user")
	fs.StringVar(&cfg.ClickHouse.Password, "ch-password", cfg.ClickHouse.Password, "ClickHouse password")

	fs.StringVar(&cfg.Postgres.Host, "pg-host", cfg.Postgres.Host, "PostgreSQL host")
	fs.IntVar(&cfg.Postgres.Port, "pg-port", cfg.Postgres.Port, "PostgreSQL port")
	fs.StringVar(&cfg.Postgres.Database, "pg-database", cfg.Postgres.Database, "PostgreSQL database")
	fs.StringVar(&cfg.Postgres.User, "pg-user", cfg.Postgres.User, "PostgreSQL user")
	fs.StringVar(&cfg.Postgres.Password, "pg-password", cfg.Postgres.Password, "PostgreSQL password")

	fs.StringVar(&cfg.SQLitePath, "sqlite-path", cfg.SQLitePath, "local SQLite database path")

	fs.StringVar(&cfg.NATS.URL, "nats-url", cfg.NATS.URL, "NATS server URL")
	fs.StringVar(&cfg.NATS.Subject, "nats-subject", cfg.NATS.Subject, "NATS subject carrying raw bulletin text")

	fs.StringVar(&cfg.StationTablePath, "station-table", cfg.StationTablePath, "path to the fixed-width WMO station table")
}
