// Package station loads and queries the WMO station metadata table: a
// read-only mapping from WMO station id to elevation (and the rest of the
// station record), shared across decoders the way a read-only connection
// pool is shared across a storage layer's query paths.
package station

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
)

// Station is a single row of the station metadata table.
type Station struct {
	SiteID  string
	WMOID   string
	Name    string
	State   string
	Country string
	Lat     float64
	Lon     float64
	Elevation float64
	Flag    string
}

// Table is an immutable, read-only WMO-id-keyed station lookup.
type Table struct {
	byWMOID map[string][]Station
}

// column widths for the fixed-width station file. The upstream file this
// is modeled on (snstns.tbl) has no header row; these offsets were chosen
// to match its nine columns: Site ID, WMO ID, Site Name, State, Country,
// Latitude, Longitude, Elevation, Flag.
const (
	colSiteID  = 7
	colWMOID   = 6
	colName    = 31
	colState   = 4
	colCountry = 5
	colLat     = 9
	colLon     = 10
	colElev    = 9
	colFlag    = 4
)

var colWidths = [9]int{colSiteID, colWMOID, colName, colState, colCountry, colLat, colLon, colElev, colFlag}

// LoadTable parses a fixed-width columnar station file. Lines beginning
// with "!" are comments and are skipped, matching the original reader's
// pd.read_fwf(stations_file, comment="!", dtype=str) call.
func LoadTable(r io.Reader) (*Table, error) {
	t := &Table{byWMOID: make(map[string][]Station)}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.HasPrefix(strings.TrimLeft(line, " \t"), "!") {
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields, err := splitFixedWidth(line, colWidths[:])
		if err != nil {
			log.Printf("wmosonde: station table line %d: %v, skipping", lineNo, err)
			continue
		}

		lat, _ := strconv.ParseFloat(strings.TrimSpace(fields[5]), 64)
		lon, _ := strconv.ParseFloat(strings.TrimSpace(fields[6]), 64)
		elev, _ := strconv.ParseFloat(strings.TrimSpace(fields[7]), 64)

		st := Station{
			SiteID:    strings.TrimSpace(fields[0]),
			WMOID:     strings.TrimSpace(fields[1]),
			Name:      strings.TrimSpace(fields[2]),
			State:     strings.TrimSpace(fields[3]),
			Country:   strings.TrimSpace(fields[4]),
			Lat:       lat,
			Lon:       lon,
			Elevation: elev,
			Flag:      strings.TrimSpace(fields[8]),
		}
		if st.WMOID == "" {
			continue
		}
		t.byWMOID[st.WMOID] = append(t.byWMOID[st.WMOID], st)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read station table: %w", err)
	}

	return t, nil
}

// splitFixedWidth slices a line into column.s of the given widths,
// right-padding the line with spaces if it's short (ragged trailing columns
// are common in hand-maintained fixed-width tables).
func splitFixedWidth(line string, widths []int) ([]string, error) {
	total := 0
	for _, w := range widths {
		total += w
	}
	if len(line) < total {
		line = line + strings.Repeat(" ", total-len(line))
	}

	fields := make([]string, len(widths))
	pos := 0
	for i, w := range widths {
		fields[i] = line[pos : pos+w]
		pos += w
	}
	return fields, nil
}

// Lookup returns the station record for a WMO id, and whether exactly one
// unambiguous match was found.
func (t *Table) Lookup(wmoID string) (Station, bool) {
	if t == nil {
		return Station{}, false
	}
	rows := t.byWMOID[wmoID]
	if len(rows) != 1 {
		return Station{}, false
	}
	return rows[0], true
}

// All returns every station row in the table, for callers that mirror the
// whole table into a query-serving cache (storage.PostgresDB.UpsertStations,
// storage.SQLiteDB.UpsertStation) rather than looking up one id at a time.
func (t *Table) All() []Station {
	if t == nil {
		return nil
	}
	var out []Station
	for _, rows := range t.byWMOID {
		out = append(out, rows...)
	}
	return out
}

// Elevation returns the elevation in meters for a WMO station id. On a
// miss, or when the id is ambiguous (more than one row shares it), it
// logs a warning and returns 0 rather than failing the decode. Ambiguous
// ids are intentionally treated the same as a miss rather than picking
// the first row, since a duplicate id usually means the table itself is
// wrong and silently guessing would mask that.
func (t *Table) Elevation(wmoID string) float64 {
	if t == nil {
		log.Printf("wmosonde: no station table loaded, elevation lookup for %q returns 0", wmoID)
		return 0
	}
	rows := t.byWMOID[wmoID]
	switch len(rows) {
	case 0:
		log.Printf("wmosonde: station not found: %q", wmoID)
		return 0
	case 1:
		return rows[0].Elevation
	default:
		log.Printf("wmosonde: ambiguous station id %q (%d rows), elevation lookup returns 0", wmoID, len(rows))
		return 0
	}
}
