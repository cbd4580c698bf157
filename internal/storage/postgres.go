package storage

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string // SSL mode (disable, require, verify-ca, verify-full). Default: disable.
}

// PostgresDB wraps a PostgreSQL connection pool for station reference data
// and the sounding index.
type PostgresDB struct {
	pool *pgxpool.Pool
}

// OpenPostgres opens a connection pool to PostgreSQL.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*PostgresDB, error) {
	escapedPassword := url.QueryEscape(cfg.Password)

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, escapedPassword, cfg.Host, cfg.Port, cfg.Database, sslMode)

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresDB{pool: pool}, nil
}

// Close closes the PostgreSQL connection pool.
func (d *PostgresDB) Close() {
	d.pool.Close()
}

// Pool returns the underlying connection pool for callers (export tools,
// ad hoc reporting queries) that need direct access beyond the methods
// defined here.
func (d *PostgresDB) Pool() *pgxpool.Pool {
	return d.pool
}

// CreateSchema creates the PostgreSQL tables.
func (d *PostgresDB) CreateSchema(ctx context.Context) error {
	schema := `
	-- Reference data: WMO station table, mirrored from the fixed-width
	-- station file so lookups can run against a warm index instead of a
	-- linear scan of every loaded row.
	CREATE TABLE IF NOT EXISTS stations (
		wmo_id          TEXT NOT NULL,
		site_id         TEXT NOT NULL DEFAULT '',
		name            TEXT,
		state           TEXT,
		country         TEXT,
		latitude        DOUBLE PRECISION,
		longitude       DOUBLE PRECISION,
		elevation       DOUBLE PRECISION,
		flag            TEXT,
		loaded_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (wmo_id, site_id)
	);

	CREATE INDEX IF NOT EXISTS idx_stations_country ON stations(country);

	-- Sounding index: one row per synoptic time / station / message type
	-- filed by the aggregator, so "what's arrived so far" and "is this
	-- sounding complete" can be answered without replaying a bulletin
	-- archive through the decoder.
	CREATE TABLE IF NOT EXISTS sounding_index (
		time_str            TEXT NOT NULL,
		station_id          TEXT NOT NULL,
		msg_type            TEXT NOT NULL,
		transmission_code   TEXT NOT NULL DEFAULT '',
		level_count         INTEGER NOT NULL DEFAULT 0,
		ingest_run_id       UUID,
		received_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (time_str, station_id, msg_type)
	);

	CREATE INDEX IF NOT EXISTS idx_sounding_index_station ON sounding_index(station_id);
	CREATE INDEX IF NOT EXISTS idx_sounding_index_run ON sounding_index(ingest_run_id);

	-- Ingest runs: one row per decode run (a bulletin file, a NATS
	-- delivery), correlated with both the ClickHouse ingest_runs table and
	-- sounding_index rows by a shared UUID.
	CREATE TABLE IF NOT EXISTS ingest_runs (
		id              UUID PRIMARY KEY,
		source          TEXT NOT NULL,
		message_count   INTEGER NOT NULL DEFAULT 0,
		level_count     INTEGER NOT NULL DEFAULT 0,
		started_at      TIMESTAMPTZ NOT NULL,
		completed_at    TIMESTAMPTZ,
		error           TEXT NOT NULL DEFAULT ''
	);
	`

	_, err := d.pool.Exec(ctx, schema)
	if err != nil {
		return fmt.Errorf("create postgres schema: %w", err)
	}
	return nil
}

// StationRow is a station reference row as stored in PostgreSQL.
type StationRow struct {
	WMOID     string
	SiteID    string
	Name      string
	State     string
	Country   string
	Latitude  float64
	Longitude float64
	Elevation float64
	Flag      string
}

// UpsertStations bulk-loads the station reference table, replacing any
// prior row sharing the same (wmo_id, site_id) key. Used to mirror a freshly
// parsed station.Table into PostgreSQL for the query-serving path.
func (d *PostgresDB) UpsertStations(ctx context.Context, rows []StationRow) error {
	if len(rows) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO stations (wmo_id, site_id, name, state, country, latitude, longitude, elevation, flag, loaded_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
			ON CONFLICT (wmo_id, site_id) DO UPDATE SET
				name = EXCLUDED.name,
				state = EXCLUDED.state,
				country = EXCLUDED.country,
				latitude = EXCLUDED.latitude,
				longitude = EXCLUDED.longitude,
				elevation = EXCLUDED.elevation,
				flag = EXCLUDED.flag,
				loaded_at = NOW()
		`, r.WMOID, r.SiteID, r.Name, r.State, r.Country, r.Latitude, r.Longitude, r.Elevation, r.Flag)
	}

	br := d.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range rows {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert station: %w", err)
		}
	}
	return nil
}

// GetStation looks up a single station by WMO id, returning an error when
// the id is ambiguous (more than one site id shares it) rather than the
// silent-zero fallback station.Table.Elevation uses on the decode path.
func (d *PostgresDB) GetStation(ctx context.Context, wmoID string) (StationRow, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT wmo_id, site_id, name, state, country, latitude, longitude, elevation, flag
		FROM stations WHERE wmo_id = $1
	`, wmoID)
	if err != nil {
		return StationRow{}, fmt.Errorf("query station: %w", err)
	}
	defer rows.Close()

	var matches []StationRow
	for rows.Next() {
		var r StationRow
		if err := rows.Scan(&r.WMOID, &r.SiteID, &r.Name, &r.State, &r.Country, &r.Latitude, &r.Longitude, &r.Elevation, &r.Flag); err != nil {
			return StationRow{}, fmt.Errorf("scan station: %w", err)
		}
		matches = append(matches, r)
	}
	if err := rows.Err(); err != nil {
		return StationRow{}, fmt.Errorf("iterate stations: %w", err)
	}

	switch len(matches) {
	case 0:
		return StationRow{}, fmt.Errorf("station not found: %q", wmoID)
	case 1:
		return matches[0], nil
	default:
		return StationRow{}, fmt.Errorf("ambiguous station id %q (%d rows)", wmoID, len(matches))
	}
}

// RecordSoundingEntry upserts one row of the sounding index, following the
// same "keep the higher transmission code" rule as aggregate.reconcile, so a
// read replica of "what's arrived" stays in sync with the decode path
// without replaying every bulletin.
func (d *PostgresDB) RecordSoundingEntry(ctx context.Context, timeStr, stationID, msgType, transmissionCode string, levelCount int, ingestRunID string) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO sounding_index (time_str, station_id, msg_type, transmission_code, level_count, ingest_run_id, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (time_str, station_id, msg_type) DO UPDATE SET
			transmission_code = EXCLUDED.transmission_code,
			level_count = EXCLUDED.level_count,
			ingest_run_id = EXCLUDED.ingest_run_id,
			received_at = NOW()
		WHERE sounding_index.transmission_code = '' OR EXCLUDED.transmission_code = ''
			OR EXCLUDED.transmission_code >= sounding_index.transmission_code
	`, timeStr, stationID, msgType, transmissionCode, levelCount, ingestRunID)
	if err != nil {
		return fmt.Errorf("record sounding entry: %w", err)
	}
	return nil
}

// SoundingTypes returns the message types filed for a time/station, mirroring
// aggregate.Aggregator.Sounding's membership check against a persisted index
// instead of the in-memory map.
func (d *PostgresDB) SoundingTypes(ctx context.Context, timeStr, stationID string) ([]string, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT msg_type FROM sounding_index WHERE time_str = $1 AND station_id = $2
	`, timeStr, stationID)
	if err != nil {
		return nil, fmt.Errorf("query sounding types: %w", err)
	}
	defer rows.Close()

	var types []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan sounding type: %w", err)
		}
		types = append(types, t)
	}
	return types, rows.Err()
}

// StartIngestRun records the start of a decode run.
func (d *PostgresDB) StartIngestRun(ctx context.Context, id, source string, startedAt time.Time) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO ingest_runs (id, source, started_at) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING
	`, id, source, startedAt)
	if err != nil {
		return fmt.Errorf("start ingest run: %w", err)
	}
	return nil
}

// CompleteIngestRun records the final message/level counts for a decode run.
func (d *PostgresDB) CompleteIngestRun(ctx context.Context, id string, completedAt time.Time, messageCount, levelCount int, runErr error) error {
	errText := ""
	if runErr != nil {
		errText = runErr.Error()
	}
	_, err := d.pool.Exec(ctx, `
		UPDATE ingest_runs SET completed_at = $2, message_count = $3, level_count = $4, error = $5
		WHERE id = $1
	`, id, completedAt, messageCount, levelCount, errText)
	if err != nil {
		return fmt.Errorf("complete ingest run: %w", err)
	}
	return nil
}
