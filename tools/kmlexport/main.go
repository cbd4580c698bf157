// Command kmlexport exports the WMO station reference table to KML so a
// sounding network can be browsed in Google Earth. KML (Keyhole Markup
// Language) files can be viewed in Google Earth, Google Maps, and other
// mapping applications.
package main

import (
	"context"
	"encoding/xml"
	"flag"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/paulmach/orb"

	"wmosonde/internal/storage"
)

// KML structures for XML marshalling, following the KML 2.2 specification:
// https://developers.google.com/kml/documentation/kmlreference

// KML is the root element of a KML document.
type KML struct {
	XMLName   xml.Name `xml:"kml"`
	Namespace string   `xml:"xmlns,attr"`
	Document  Document `xml:"Document"`
}

// Document contains the document metadata and features.
type Document struct {
	Name        string      `xml:"name"`
	Description string      `xml:"description,omitempty"`
	Styles      []Style     `xml:"Style,omitempty"`
	Placemarks  []Placemark `xml:"Placemark"`
}

// Style defines the visual appearance of features.
type Style struct {
	ID        string    `xml:"id,attr"`
	IconStyle IconStyle `xml:"IconStyle"`
}

// IconStyle defines how icons are displayed.
type IconStyle struct {
	Scale float64 `xml:"scale,omitempty"`
	Icon  Icon    `xml:"Icon"`
}

// Icon specifies the icon image.
type Icon struct {
	Href string `xml:"href"`
}

// Placemark represents a geographic feature with geometry and metadata.
type Placemark struct {
	Name         string        `xml:"name"`
	Description  string        `xml:"description,omitempty"`
	StyleURL     string        `xml:"styleUrl,omitempty"`
	Point        Point         `xml:"Point"`
	ExtendedData *ExtendedData `xml:"ExtendedData,omitempty"`
}

// Point represents a geographic location.
type Point struct {
	Coordinates string `xml:"coordinates"` // Format: lon,lat,altitude
}

// ExtendedData holds custom data associated with a placemark.
type ExtendedData struct {
	Data []Data `xml:"Data"`
}

// Data represents a single piece of extended data.
type Data struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value"`
}

func main() {
	pgHost := flag.String("pg-host", "localhost", "PostgreSQL host")
	pgPort := flag.Int("pg-port", 5432, "PostgreSQL port")
	pgUser := flag.String("pg-user", "wmosonde", "PostgreSQL user")
	pgPassword := flag.String("pg-password", "", "PostgreSQL password")
	pgDB := flag.String("pg-db", "wmosonde_state", "PostgreSQL database")

	country := flag.String("country", "", "Only export stations from this country code")
	output := flag.String("output", "", "Output KML file (default: stdout)")
	verbose := flag.Bool("v", false, "Verbose output")

	flag.Parse()

	ctx := context.Background()

	pg, err := storage.OpenPostgres(ctx, storage.PostgresConfig{
		Host:     *pgHost,
		Port:     *pgPort,
		Database: *pgDB,
		User:     *pgUser,
		Password: *pgPassword,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening PostgreSQL: %v\n", err)
		os.Exit(1)
	}
	defer pg.Close()

	stations, err := listStations(ctx, pg, *country)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error querying stations: %v\n", err)
		os.Exit(1)
	}

	if len(stations) == 0 {
		fmt.Fprintf(os.Stderr, "No stations found matching criteria\n")
		os.Exit(0)
	}

	if *verbose {
		fmt.Fprintf(os.Stderr, "Exporting %d stations to KML\n", len(stations))
	}

	kml := generateKML(stations)

	xmlData, err := xml.MarshalIndent(kml, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating KML: %v\n", err)
		os.Exit(1)
	}
	xmlOutput := xml.Header + string(xmlData)

	if *output != "" {
		if err := os.WriteFile(*output, []byte(xmlOutput), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
			os.Exit(1)
		}
		if *verbose {
			fmt.Fprintf(os.Stderr, "Wrote %s\n", *output)
		}
	} else {
		fmt.Println(xmlOutput)
	}
}

// listStations queries the station reference table directly (rather than
// through storage.PostgresDB.GetStation, which is scoped to a single WMO
// id and errors on ambiguity) since an export wants every row regardless
// of how many site ids share a WMO id.
func listStations(ctx context.Context, pg *storage.PostgresDB, country string) ([]storage.StationRow, error) {
	pool := pg.Pool()
	query := `SELECT wmo_id, site_id, name, state, country, latitude, longitude, elevation, flag FROM stations`
	var rows pgx.Rows
	var err error
	if country != "" {
		rows, err = pool.Query(ctx, query+" WHERE country = $1 ORDER BY wmo_id", country)
	} else {
		rows, err = pool.Query(ctx, query+" ORDER BY wmo_id")
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []storage.StationRow
	for rows.Next() {
		var r storage.StationRow
		if err := rows.Scan(&r.WMOID, &r.SiteID, &r.Name, &r.State, &r.Country, &r.Latitude, &r.Longitude, &r.Elevation, &r.Flag); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// generateKML creates a KML document from the station rows, using
// orb.Point for the geometry the way the rest of the pack's geospatial
// tooling represents lon/lat pairs.
func generateKML(stations []storage.StationRow) KML {
	placemarks := make([]Placemark, len(stations))
	for i, st := range stations {
		pt := orb.Point{st.Longitude, st.Latitude}
		coords := fmt.Sprintf("%.6f,%.6f,%.0f", pt.Lon(), pt.Lat(), st.Elevation)

		description := fmt.Sprintf("WMO ID: %s\nSite ID: %s\nState: %s\nElevation: %.0fm", st.WMOID, st.SiteID, st.State, st.Elevation)

		placemarks[i] = Placemark{
			Name:        st.Name,
			Description: description,
			StyleURL:    "#stationStyle",
			Point:       Point{Coordinates: coords},
			ExtendedData: &ExtendedData{
				Data: []Data{
					{Name: "wmo_id", Value: st.WMOID},
					{Name: "country", Value: st.Country},
					{Name: "elevation_m", Value: fmt.Sprintf("%.0f", st.Elevation)},
				},
			},
		}
	}

	return KML{
		Namespace: "http://www.opengis.net/kml/2.2",
		Document: Document{
			Name:        "WMO Upper-Air Stations",
			Description: "Upper-air sounding stations decoded from the WMO station reference table.",
			Styles: []Style{
				{
					ID: "stationStyle",
					IconStyle: IconStyle{
						Scale: 0.8,
						Icon: Icon{
							Href: "http://maps.google.com/mapfiles/kml/shapes/weather_balloon.png",
						},
					},
				},
			},
			Placemarks: placemarks,
		},
	}
}
