// Command analyzer reports summary statistics and body-shape clusters over a
// corpus of decoded levels stored in ClickHouse. It is meant for spotting
// gaps in station coverage or decode quality across a large archive of
// bulletins rather than for inspecting any single sounding.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/dustin/go-humanize"

	"wmosonde/internal/storage"
	"wmosonde/internal/token"
)

func main() {
	chHost := flag.String("ch-host", "localhost", "ClickHouse host")
	chPort := flag.Int("ch-port", 9000, "ClickHouse port")
	chUser := flag.String("ch-user", "default", "ClickHouse user")
	chPassword := flag.String("ch-password", "", "ClickHouse password")
	chDB := flag.String("ch-database", "wmosonde", "ClickHouse database")

	station := flag.String("station", "", "Restrict the report to one station id")
	top := flag.Int("top", 15, "Number of stations/clusters to show")
	suggest := flag.Bool("suggest", false, "Cluster raw bulletin bodies by shape instead of printing summary stats")
	coverage := flag.Bool("coverage", false, "List distinct station ids represented in the archive instead of printing summary stats")
	minCluster := flag.Int("min-cluster", 3, "Minimum number of level rows for a cluster to be reported")

	flag.Usage = func() { usage(os.Stderr) }
	flag.Parse()

	ctx := context.Background()

	ch, err := storage.OpenClickHouse(ctx, storage.ClickHouseConfig{
		Host:     *chHost,
		Port:     *chPort,
		Database: *chDB,
		User:     *chUser,
		Password: *chPassword,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening ClickHouse: %v\n", err)
		os.Exit(1)
	}
	defer ch.Close()

	if *suggest {
		if err := runSuggest(ctx, ch, *station, *top, *minCluster); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *coverage {
		if err := runCoverage(ctx, ch); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := runSummary(ctx, ch, *station, *top); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage(w *os.File) {
	fmt.Fprintln(w, "Usage: analyzer [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Reports summary statistics over decoded levels stored in ClickHouse.")
	fmt.Fprintln(w, "Pass -suggest to cluster raw bulletin bodies by shape instead.")
	fmt.Fprintln(w, "Pass -coverage to list distinct station ids represented in the archive instead.")
	fmt.Fprintln(w)
	flag.PrintDefaults()
}

func runSummary(ctx context.Context, ch *storage.ClickHouseDB, stationFilter string, top int) error {
	stats, err := ch.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}

	fmt.Printf("Total decoded levels: %s\n", humanize.Comma(int64(stats.TotalLevels)))
	fmt.Printf("Levels at the tropopause: %s\n", humanize.Comma(int64(stats.TropopauseCt)))
	fmt.Println()

	fmt.Println("By message type:")
	printTopCounts(stats.ByMsgType, top)
	fmt.Println()

	fmt.Println("By station (top):")
	printTopCounts(stats.ByStationID, top)
	fmt.Println()

	q := storage.CHQueryParams{StationID: stationFilter, Limit: 5000}
	levels, err := ch.Query(ctx, q)
	if err != nil {
		return fmt.Errorf("query levels: %w", err)
	}

	var missingTmpc, missingDwpc, missingWdir, missingWspd int
	for _, l := range levels {
		if l.Tmpc == token.Missing {
			missingTmpc++
		}
		if l.Dwpc == token.Missing {
			missingDwpc++
		}
		if l.Wdir == token.Missing {
			missingWdir++
		}
		if l.Wspd == token.Missing {
			missingWspd++
		}
	}

	fmt.Printf("Field coverage over %s sampled levels (lowest row ids first):\n", humanize.Comma(int64(len(levels))))
	printCoverage("temperature", len(levels), missingTmpc)
	printCoverage("dew point", len(levels), missingDwpc)
	printCoverage("wind direction", len(levels), missingWdir)
	printCoverage("wind speed", len(levels), missingWspd)

	return nil
}

// runCoverage lists every distinct station id represented in the archive,
// for spotting stations that have stopped reporting or never reported at
// all against the full fixed-width table.
func runCoverage(ctx context.Context, ch *storage.ClickHouseDB) error {
	stations, err := ch.Distinct(ctx, "station_id")
	if err != nil {
		return fmt.Errorf("distinct station_id: %w", err)
	}
	msgTypes, err := ch.Distinct(ctx, "msg_type")
	if err != nil {
		return fmt.Errorf("distinct msg_type: %w", err)
	}

	fmt.Printf("%s distinct stations represented, across message types: %v\n", humanize.Comma(int64(len(stations))), msgTypes)
	for _, s := range stations {
		fmt.Printf("  %s\n", s)
	}
	return nil
}

func printTopCounts(counts map[string]uint64, top int) {
	type kv struct {
		key   string
		count uint64
	}
	var sorted []kv
	for k, v := range counts {
		sorted = append(sorted, kv{k, v})
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].count > sorted[j].count })
	if len(sorted) > top {
		sorted = sorted[:top]
	}
	for _, e := range sorted {
		fmt.Printf("  %-12s %s\n", e.key, humanize.Comma(int64(e.count)))
	}
}

func printCoverage(label string, total, missing int) {
	if total == 0 {
		fmt.Printf("  %-16s no levels sampled\n", label)
		return
	}
	present := total - missing
	pct := float64(present) / float64(total) * 100
	fmt.Printf("  %-16s %s/%s present (%.1f%%)\n", label, humanize.Comma(int64(present)), humanize.Comma(int64(total)), pct)
}
