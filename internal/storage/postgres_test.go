package storage

import (
	"context"
	"os"
	"testing"
)

// setupTestPostgres creates a test database connection, returning nil if no
// PostgreSQL connection is available so the tests can skip cleanly.
func setupTestPostgres(t *testing.T) *PostgresDB {
	t.Helper()

	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		host = "localhost"
	}
	user := os.Getenv("POSTGRES_USER")
	if user == "" {
		user = "wmosonde"
	}
	password := os.Getenv("POSTGRES_PASSWORD")
	if password == "" {
		password = "wmosonde"
	}
	database := os.Getenv("POSTGRES_DB")
	if database == "" {
		database = "wmosonde_state"
	}

	ctx := context.Background()
	pg, err := OpenPostgres(ctx, PostgresConfig{
		Host:     host,
		Port:     5432,
		User:     user,
		Password: password,
		Database: database,
	})
	if err != nil {
		return nil
	}

	if err := pg.CreateSchema(ctx); err != nil {
		pg.Close()
		return nil
	}

	return pg
}

func TestUpsertStations_RoundTrip(t *testing.T) {
	pg := setupTestPostgres(t)
	if pg == nil {
		t.Skip("No PostgreSQL connection available")
	}
	defer pg.Close()

	ctx := context.Background()
	cleanup := func() {
		_, _ = pg.pool.Exec(ctx, "DELETE FROM stations WHERE wmo_id = '72469'")
	}
	cleanup()
	defer cleanup()

	err := pg.UpsertStations(ctx, []StationRow{
		{WMOID: "72469", SiteID: "03945", Name: "DENVER/STAPLETON", State: "CO", Country: "US", Latitude: 39.77, Longitude: -104.88, Elevation: 1611, Flag: ""},
	})
	if err != nil {
		t.Fatalf("upsert stations: %v", err)
	}

	got, err := pg.GetStation(ctx, "72469")
	if err != nil {
		t.Fatalf("get station: %v", err)
	}
	if got.Name != "DENVER/STAPLETON" {
		t.Errorf("name = %q, want DENVER/STAPLETON", got.Name)
	}
	if got.Elevation != 1611 {
		t.Errorf("elevation = %v, want 1611", got.Elevation)
	}

	// Re-upserting with a changed field should update in place, not duplicate.
	err = pg.UpsertStations(ctx, []StationRow{
		{WMOID: "72469", SiteID: "03945", Name: "DENVER/STAPLETON", State: "CO", Country: "US", Latitude: 39.77, Longitude: -104.88, Elevation: 1650, Flag: ""},
	})
	if err != nil {
		t.Fatalf("re-upsert stations: %v", err)
	}
	got, err = pg.GetStation(ctx, "72469")
	if err != nil {
		t.Fatalf("get station after update: %v", err)
	}
	if got.Elevation != 1650 {
		t.Errorf("elevation after update = %v, want 1650", got.Elevation)
	}
}

func TestGetStation_NotFound(t *testing.T) {
	pg := setupTestPostgres(t)
	if pg == nil {
		t.Skip("No PostgreSQL connection available")
	}
	defer pg.Close()

	ctx := context.Background()
	_, err := pg.GetStation(ctx, "99999")
	if err == nil {
		t.Error("expected an error for a missing station, got nil")
	}
}

func TestGetStation_Ambiguous(t *testing.T) {
	pg := setupTestPostgres(t)
	if pg == nil {
		t.Skip("No PostgreSQL connection available")
	}
	defer pg.Close()

	ctx := context.Background()
	cleanup := func() {
		_, _ = pg.pool.Exec(ctx, "DELETE FROM stations WHERE wmo_id = 'AMBIG1'")
	}
	cleanup()
	defer cleanup()

	err := pg.UpsertStations(ctx, []StationRow{
		{WMOID: "AMBIG1", SiteID: "A", Name: "FIRST SITE"},
		{WMOID: "AMBIG1", SiteID: "B", Name: "SECOND SITE"},
	})
	if err != nil {
		t.Fatalf("upsert stations: %v", err)
	}

	_, err = pg.GetStation(ctx, "AMBIG1")
	if err == nil {
		t.Error("expected an error for an ambiguous station id, got nil")
	}
}

func TestRecordSoundingEntry_KeepsHigherTransmissionCode(t *testing.T) {
	pg := setupTestPostgres(t)
	if pg == nil {
		t.Skip("No PostgreSQL connection available")
	}
	defer pg.Close()

	ctx := context.Background()
	cleanup := func() {
		_, _ = pg.pool.Exec(ctx, "DELETE FROM sounding_index WHERE time_str = '011200' AND station_id = '72469'")
	}
	cleanup()
	defer cleanup()

	if err := pg.RecordSoundingEntry(ctx, "011200", "72469", "TTAA", "CCB", 10, "run-1"); err != nil {
		t.Fatalf("record first entry: %v", err)
	}
	// A lower retransmission code should not overwrite an already-recorded
	// higher one, mirroring aggregate.reconcile's "keep higher code" rule.
	if err := pg.RecordSoundingEntry(ctx, "011200", "72469", "TTAA", "CCA", 8, "run-2"); err != nil {
		t.Fatalf("record second entry: %v", err)
	}

	var kept string
	err := pg.pool.QueryRow(ctx, "SELECT transmission_code FROM sounding_index WHERE time_str = '011200' AND station_id = '72469' AND msg_type = 'TTAA'").Scan(&kept)
	if err != nil {
		t.Fatalf("read transmission code: %v", err)
	}
	if kept != "CCB" {
		t.Errorf("transmission code = %q, want CCB (lower code must not overwrite)", kept)
	}

	types, err := pg.SoundingTypes(ctx, "011200", "72469")
	if err != nil {
		t.Fatalf("sounding types: %v", err)
	}
	if len(types) != 1 || types[0] != "TTAA" {
		t.Errorf("sounding types = %v, want [TTAA]", types)
	}
}
