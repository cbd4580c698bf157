package storage

import (
	"path/filepath"
	"testing"
)

func openTestSQLite(t *testing.T) *SQLiteDB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wmosonde.db")
	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.CreateSchema(); err != nil {
		t.Fatalf("CreateSchema: %v", err)
	}
	return db
}

func TestSQLiteInsertAndQueryLevel(t *testing.T) {
	db := openTestSQLite(t)

	id, err := db.InsertLevel(CHInsertParams{
		IngestRunID: "run-1", TimeStr: "011200", StationID: "72469", MsgType: "TTAA",
		TransmissionCode: "AA", Lvl: 850, Hght: 1500, Tmpc: 12.4, Dwpc: 8.1,
		Wdir: 230, Wspd: 45, Trop: false, RawBody: "85034 12345 67890",
	})
	if err != nil {
		t.Fatalf("InsertLevel: %v", err)
	}
	if id <= 0 {
		t.Fatalf("InsertLevel returned id %d, want > 0", id)
	}

	rows, err := db.Query(QueryParams{StationID: "72469"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("Query returned %d rows, want 1", len(rows))
	}
	if rows[0].MsgType != "TTAA" || rows[0].Lvl != 850 {
		t.Errorf("got %+v", rows[0])
	}

	count, err := db.Count("TTAA")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Errorf("Count(TTAA) = %d, want 1", count)
	}

	byType, err := db.CountByType()
	if err != nil {
		t.Fatalf("CountByType: %v", err)
	}
	if byType["TTAA"] != 1 {
		t.Errorf("CountByType()[TTAA] = %d, want 1", byType["TTAA"])
	}
}

func TestSQLiteUpsertStation(t *testing.T) {
	db := openTestSQLite(t)

	row := StationRow{WMOID: "72469", SiteID: "03945", Name: "DENVER/STAPLETON", Elevation: 1611}
	if err := db.UpsertStation(row); err != nil {
		t.Fatalf("UpsertStation: %v", err)
	}

	got, err := db.GetStation("72469")
	if err != nil {
		t.Fatalf("GetStation: %v", err)
	}
	if got == nil || got.Name != "DENVER/STAPLETON" {
		t.Fatalf("GetStation = %+v", got)
	}

	row.Elevation = 1650
	if err := db.UpsertStation(row); err != nil {
		t.Fatalf("UpsertStation (update): %v", err)
	}
	got, err = db.GetStation("72469")
	if err != nil {
		t.Fatalf("GetStation after update: %v", err)
	}
	if got.Elevation != 1650 {
		t.Errorf("Elevation after update = %v, want 1650", got.Elevation)
	}
}

func TestSQLiteGetStationNotFound(t *testing.T) {
	db := openTestSQLite(t)
	got, err := db.GetStation("00000")
	if err != nil {
		t.Fatalf("GetStation: %v", err)
	}
	if got != nil {
		t.Errorf("GetStation for a missing id = %+v, want nil", got)
	}
}
