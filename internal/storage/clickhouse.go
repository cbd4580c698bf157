// Package storage provides persistent storage for decoded WMO upper-air
// soundings.
package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// ClickHouseConfig holds ClickHouse connection settings.
type ClickHouseConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// ClickHouseDB wraps a ClickHouse connection for decoded-level storage.
type ClickHouseDB struct {
	conn driver.Conn
}

// Conn returns the underlying ClickHouse connection for direct queries.
func (d *ClickHouseDB) Conn() driver.Conn {
	return d.conn
}

// OpenClickHouse opens a connection to ClickHouse.
func OpenClickHouse(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseDB, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:     10 * time.Second,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	return &ClickHouseDB{conn: conn}, nil
}

// Close closes the ClickHouse connection.
func (d *ClickHouseDB) Close() error {
	return d.conn.Close()
}

// CreateSchema creates the ClickHouse tables.
func (d *ClickHouseDB) CreateSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS levels (
			id                  UInt64,
			ingest_run_id       UUID,
			time_str            LowCardinality(String),
			station_id          LowCardinality(String),
			msg_type            LowCardinality(String),
			transmission_code   LowCardinality(String),
			lvl                 Float64,
			hght                Float64,
			tmpc                Float64,
			dwpc                Float64,
			wdir                Float64,
			wspd                Float64,
			trop                UInt8,
			raw_body            String,
			created_at          DateTime64(3) DEFAULT now64(3)
		)
		ENGINE = MergeTree()
		PARTITION BY toYYYYMM(created_at)
		ORDER BY (station_id, msg_type, time_str, id)
		SETTINGS index_granularity = 8192`,

		`CREATE TABLE IF NOT EXISTS ingest_runs (
			id              UUID,
			source          LowCardinality(String),
			message_count   UInt32,
			level_count     UInt32,
			started_at      DateTime64(3),
			completed_at    Nullable(DateTime64(3)),
			error           String
		)
		ENGINE = MergeTree()
		PARTITION BY toYYYYMM(started_at)
		ORDER BY (source, started_at, id)`,
	}

	for _, q := range queries {
		if err := d.conn.Exec(ctx, q); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}

	_ = d.conn.Exec(ctx, `ALTER TABLE levels ADD INDEX IF NOT EXISTS idx_raw_body_bloom raw_body TYPE tokenbf_v1(32768, 3, 0) GRANULARITY 1`)

	return nil
}

// CHLevel represents a decoded vertical level as stored in ClickHouse.
type CHLevel struct {
	ID               uint64
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

// CHInsertParams contains parameters for inserting one decoded level row.
type CHInsertParams struct {
	ID               uint64
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
}

func (p CHInsertParams) tropUint() uint8 {
	if p.Trop {
		return 1
	}
	return 0
}

// Insert stores a single decoded level in ClickHouse.
func (d *ClickHouseDB) Insert(ctx context.Context, p CHInsertParams) error {
	err := d.conn.Exec(ctx, `
		INSERT INTO levels (id, ingest_run_id, time_str, station_id, msg_type, transmission_code, lvl, hght, tmpc, dwpc, wdir, wspd, trop, raw_body)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.IngestRunID, p.TimeStr, p.StationID, p.MsgType, p.TransmissionCode, p.Lvl, p.Hght, p.Tmpc, p.Dwpc, p.Wdir, p.Wspd, p.tropUint(), p.RawBody)
	if err != nil {
		return fmt.Errorf("insert level: %w", err)
	}
	return nil
}

// InsertBatch stores multiple decoded levels in ClickHouse efficiently. This
// is the hot path for a bulletin ingest run: every level decoded from every
// message in the bulletin lands in one batch.
func (d *ClickHouseDB) InsertBatch(ctx context.Context, levels []CHInsertParams) error {
	if len(levels) == 0 {
		return nil
	}

	batch, err := d.conn.PrepareBatch(ctx, `
		INSERT INTO levels (id, ingest_run_id, time_str, station_id, msg_type, transmission_code, lvl, hght, tmpc, dwpc, wdir, wspd, trop, raw_body)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range levels {
		err = batch.Append(p.ID, p.IngestRunID, p.TimeStr, p.StationID, p.MsgType, p.TransmissionCode, p.Lvl, p.Hght, p.Tmpc, p.Dwpc, p.Wdir, p.Wspd, p.tropUint(), p.RawBody)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// CHQueryParams contains filtering options for querying decoded levels.
type CHQueryParams struct {
	ID         uint64
	StationID  string
	MsgType    string
	TimeStr    string
	RawLike    string // LIKE match on raw_body.
	Limit      int
	Offset     int
	OrderBy    string
	OrderDesc  bool
}

// Query retrieves decoded levels matching the given parameters.
func (d *ClickHouseDB) Query(ctx context.Context, p CHQueryParams) ([]CHLevel, error) {
	var conditions []string
	var args []interface{}

	if p.ID != 0 {
		conditions = append(conditions, "id = ?")
		args = append(args, p.ID)
	}
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
	if p.RawLike != "" {
		conditions = append(conditions, "raw_body LIKE ?")
		args = append(args, "%"+p.RawLike+"%")
	}

	query := `SELECT id, ingest_run_id, time_str, station_id, msg_type, transmission_code, lvl, hght, tmpc, dwpc, wdir, wspd, trop, raw_body, created_at FROM levels`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	orderField := "id"
	if p.OrderBy != "" {
		switch p.OrderBy {
		case "time_str", "station_id", "msg_type", "lvl":
			orderField = p.OrderBy
		}
	}
	direction := "ASC"
	if p.OrderDesc {
		direction = "DESC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s", orderField, direction)

	limit := 100
	if p.Limit > 0 {
		limit = p.Limit
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, p.Offset)

	rows, err := d.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query levels: %w", err)
	}
	defer rows.Close()

	var levels []CHLevel
	for rows.Next() {
		var l CHLevel
		var trop uint8
		err := rows.Scan(&l.ID, &l.IngestRunID, &l.TimeStr, &l.StationID, &l.MsgType, &l.TransmissionCode,
			&l.Lvl, &l.Hght, &l.Tmpc, &l.Dwpc, &l.Wdir, &l.Wspd, &trop, &l.RawBody, &l.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		l.Trop = trop == 1
		levels = append(levels, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return levels, nil
}

// CHStats contains aggregate statistics about stored levels.
type CHStats struct {
	TotalLevels  uint64
	ByMsgType    map[string]uint64
	ByStationID  map[string]uint64
	TropopauseCt uint64
}

// GetStats returns statistics about stored levels.
func (d *ClickHouseDB) GetStats(ctx context.Context) (*CHStats, error) {
	stats := &CHStats{
		ByMsgType:   make(map[string]uint64),
		ByStationID: make(map[string]uint64),
	}

	row := d.conn.QueryRow(ctx, "SELECT count() FROM levels")
	if err := row.Scan(&stats.TotalLevels); err != nil {
		return nil, err
	}

	rows, err := d.conn.Query(ctx, "SELECT msg_type, count() FROM levels GROUP BY msg_type ORDER BY count() DESC")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var typ string
		var count uint64
		if err := rows.Scan(&typ, &count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan msg type stats: %w", err)
		}
		stats.ByMsgType[typ] = count
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate msg type stats: %w", err)
	}
	rows.Close()

	rows, err = d.conn.Query(ctx, "SELECT station_id, count() FROM levels GROUP BY station_id ORDER BY count() DESC LIMIT 20")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var station string
		var count uint64
		if err := rows.Scan(&station, &count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan station stats: %w", err)
		}
		stats.ByStationID[station] = count
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate station stats: %w", err)
	}
	rows.Close()

	row = d.conn.QueryRow(ctx, "SELECT count() FROM levels WHERE trop = 1")
	if err := row.Scan(&stats.TropopauseCt); err != nil {
		return nil, err
	}

	return stats, nil
}

// Distinct returns distinct values for a given column.
func (d *ClickHouseDB) Distinct(ctx context.Context, column string) ([]string, error) {
	validColumns := map[string]bool{
		"station_id":        true,
		"msg_type":          true,
		"time_str":          true,
		"transmission_code": true,
	}
	if !validColumns[column] {
		return nil, fmt.Errorf("invalid column: %s", column)
	}

	query := fmt.Sprintf("SELECT DISTINCT %s FROM levels WHERE %s != '' ORDER BY %s", column, column, column)
	rows, err := d.conn.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan distinct value: %w", err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate distinct values: %w", err)
	}
	return values, nil
}

// InsertIngestRun records the start of a decode run, tagged with a
// caller-supplied UUID correlation id so levels inserted during the run can
// be traced back to the bulletin (or NATS message) that produced them.
func (d *ClickHouseDB) InsertIngestRun(ctx context.Context, id, source string, startedAt time.Time) error {
	err := d.conn.Exec(ctx, `
		INSERT INTO ingest_runs (id, source, message_count, level_count, started_at, error)
		VALUES (?, ?, 0, 0, ?, '')
	`, id, source, startedAt)
	if err != nil {
		return fmt.Errorf("insert ingest run: %w", err)
	}
	return nil
}

// CompleteIngestRun records the final message/level counts and completion
// time for a decode run, appending a new row rather than updating in place
// (ClickHouse's MergeTree has no efficient row update). The start row and the
// completion row share the same id and started_at; the completion row is the
// one with completed_at set.
func (d *ClickHouseDB) CompleteIngestRun(ctx context.Context, id, source string, startedAt, completedAt time.Time, messageCount, levelCount uint32, runErr error) error {
	errText := ""
	if runErr != nil {
		errText = runErr.Error()
	}
	err := d.conn.Exec(ctx, `
		INSERT INTO ingest_runs (id, source, message_count, level_count, started_at, completed_at, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, source, messageCount, levelCount, startedAt, completedAt, errText)
	if err != nil {
		return fmt.Errorf("complete ingest run: %w", err)
	}
	return nil
}
