// Package storage provides persistent storage for decoded WMO upper-air
// soundings. This file contains the SQLite-backed local store, used for
// offline decode runs (no ClickHouse/PostgreSQL reachable) and as a station
// table cache that survives process restarts.
package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// LevelRow is a decoded vertical level as stored in the local SQLite file.
type LevelRow struct {
	ID               int64
	IngestRunID      string
	TimeStr          string
	StationID        string
	MsgType          string
	TransmissionCode string
	Lvl              float64
	Hght             float64
	Tmpc             float64
	Dwpc             float64
	Wdir             float64
	Wspd             float64
	Trop             bool
	RawBody          string
	CreatedAt        time.Time
}

// SQLiteDB wraps a local SQLite database used when no ClickHouse/PostgreSQL
// cluster is reachable — a decode-and-export workflow, or a field laptop
// running against a downloaded bulletin archive.
type SQLiteDB struct {
	db *sql.DB
}

// OpenSQLite opens (creating if necessary) a local SQLite database file.
func OpenSQLite(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return &SQLiteDB{db: db}, nil
}

// Close closes the database connection.
func (d *SQLiteDB) Close() error {
	return d.db.Close()
}

// CreateSchema creates the local levels and stations tables.
func (d *SQLiteDB) CreateSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS levels (
			id                  INTEGER PRIMARY KEY AUTOINCREMENT,
			ingest_run_id       TEXT,
			time_str            TEXT,
			station_id          TEXT,
			msg_type            TEXT,
			transmission_code   TEXT,
			lvl                 REAL,
			hght                REAL,
			tmpc                REAL,
			dwpc                REAL,
			wdir                REAL,
			wspd                REAL,
			trop                INTEGER,
			raw_body            TEXT,
			created_at          TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_levels_station ON levels(station_id)`,
		`CREATE INDEX IF NOT EXISTS idx_levels_time ON levels(time_str)`,
		`CREATE TABLE IF NOT EXISTS stations (
			wmo_id      TEXT,
			site_id     TEXT,
			name        TEXT,
			state       TEXT,
			country     TEXT,
			latitude    REAL,
			longitude   REAL,
			elevation   REAL,
			flag        TEXT,
			PRIMARY KEY (wmo_id, site_id)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := d.db.Exec(stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// InsertLevel stores a single decoded level.
func (d *SQLiteDB) InsertLevel(p CHInsertParams) (int64, error) {
	res, err := d.db.Exec(`
		INSERT INTO levels (ingest_run_id, time_str, station_id, msg_type, transmission_code, lvl, hght, tmpc, dwpc, wdir, wspd, trop, raw_body, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.IngestRunID, p.TimeStr, p.StationID, p.MsgType, p.TransmissionCode, p.Lvl, p.Hght, p.Tmpc, p.Dwpc, p.Wdir, p.Wspd, p.tropUint(), p.RawBody, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("insert level: %w", err)
	}
	return res.LastInsertId()
}

// UpsertStation stores or replaces a single station reference row.
func (d *SQLiteDB) UpsertStation(r StationRow) error {
	_, err := d.db.Exec(`
		INSERT INTO stations (wmo_id, site_id, name, state, country, latitude, longitude, elevation, flag)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(wmo_id, site_id) DO UPDATE SET
			name=excluded.name, state=excluded.state, country=excluded.country,
			latitude=excluded.latitude, longitude=excluded.longitude,
			elevation=excluded.elevation, flag=excluded.flag
	`, r.WMOID, r.SiteID, r.Name, r.State, r.Country, r.Latitude, r.Longitude, r.Elevation, r.Flag)
	if err != nil {
		return fmt.Errorf("upsert station: %w", err)
	}
	return nil
}

// GetStation looks up a cached station row by WMO id.
func (d *SQLiteDB) GetStation(wmoID string) (*StationRow, error) {
	row := d.db.QueryRow(`
		SELECT wmo_id, site_id, name, state, country, latitude, longitude, elevation, flag
		FROM stations WHERE wmo_id = ? LIMIT 1
	`, wmoID)
	var r StationRow
	err := row.Scan(&r.WMOID, &r.SiteID, &r.Name, &r.State, &r.Country, &r.Latitude, &r.Longitude, &r.Elevation, &r.Flag)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get station: %w", err)
	}
	return &r, nil
}

// QueryParams contains filtering options for querying locally stored levels.
type QueryParams struct {
	StationID string
	MsgType   string
	TimeStr   string
	Limit     int
	Offset    int
}

// Query retrieves locally stored levels matching the given parameters.
func (d *SQLiteDB) Query(p QueryParams) ([]LevelRow, error) {
	var conditions []string
	var args []interface{}

	if p.StationID != "" {
		conditions = append(conditions, "station_id = ?")
		args = append(args, p.StationID)
	}
	if p.MsgType != "" {
		conditions = append(conditions, "msg_type = ?")
		args = append(args, p.MsgType)
	}
	if p.TimeStr != "" {
		conditions = append(conditions, "time_str = ?")
		args = append(args, p.TimeStr)
	}

	query := `SELECT id, ingest_run_id, time_str, station_id, msg_type, transmission_code, lvl, hght, tmpc, dwpc, wdir, wspd, trop, raw_body, created_at FROM levels`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id"

	limit := 100
	if p.Limit > 0 {
		limit = p.Limit
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, p.Offset)

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query levels: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var levels []LevelRow
	for rows.Next() {
		var l LevelRow
		var trop int
		var createdAt string
		var ingestRunID sql.NullString
		if err := rows.Scan(&l.ID, &ingestRunID, &l.TimeStr, &l.StationID, &l.MsgType, &l.TransmissionCode,
			&l.Lvl, &l.Hght, &l.Tmpc, &l.Dwpc, &l.Wdir, &l.Wspd, &trop, &l.RawBody, &createdAt); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		l.IngestRunID = ingestRunID.String
		l.Trop = trop == 1
		l.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		levels = append(levels, l)
	}
	return levels, rows.Err()
}

// CountByType returns level counts grouped by message type.
func (d *SQLiteDB) CountByType() (map[string]int, error) {
	counts := make(map[string]int)
	rows, err := d.db.Query("SELECT msg_type, COUNT(*) FROM levels GROUP BY msg_type")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var typ string
		var count int
		if err := rows.Scan(&typ, &count); err != nil {
			return nil, err
		}
		counts[typ] = count
	}
	return counts, rows.Err()
}

// Count returns the total number of locally stored levels, optionally
// filtered by message type.
func (d *SQLiteDB) Count(msgType string) (int, error) {
	var count int
	var err error
	if msgType != "" {
		err = d.db.QueryRow("SELECT COUNT(*) FROM levels WHERE msg_type = ?", msgType).Scan(&count)
	} else {
		err = d.db.QueryRow("SELECT COUNT(*) FROM levels").Scan(&count)
	}
	return count, err
}
