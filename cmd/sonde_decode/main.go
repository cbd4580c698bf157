// Command sonde_decode decodes WMO TEMP/PILOT bulletin text into vertical
// profiles and, optionally, persists the decoded levels to one or more
// configured storage backends.
//
// Commands:
//
//	decode   - decode a bulletin file (or stdin) and print a summary, or
//	           persist its levels to ClickHouse/PostgreSQL/SQLite
//	listen   - subscribe to a NATS subject carrying raw bulletin text and
//	           decode each delivery as it arrives
//	publish  - publish a bulletin file to a NATS subject, for exercising
//	           the listen path without a real GTS feed in front of it
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"wmosonde"
	"wmosonde/internal/aggregate"
	"wmosonde/internal/config"
	"wmosonde/internal/ingest"
	"wmosonde/internal/station"
	"wmosonde/internal/storage"
)

func usage(w io.Writer) {
	fmt.Fprintln(w, "sonde_decode - commands:")
	fmt.Fprintln(w, "  decode   - decode a bulletin file (or stdin) and report/persist its levels")
	fmt.Fprintln(w, "  listen   - subscribe to a NATS subject and decode each bulletin received")
	fmt.Fprintln(w, "  publish  - publish a bulletin file to a NATS subject")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  sonde_decode decode [-input bulletin.txt] [-store ch,pg,sqlite] [flags]")
	fmt.Fprintln(w, "  sonde_decode listen [flags]")
	fmt.Fprintln(w, "  sonde_decode publish -input bulletin.txt [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'sonde_decode <command> -h' for flags specific to that command.")
}

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	switch os.Args[1] {
	case "-h", "--help", "help":
		usage(os.Stdout)
		return
	case "decode":
		runDecode(os.Args[2:])
	case "listen":
		runListen(os.Args[2:])
	case "publish":
		runPublish(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage(os.Stderr)
		os.Exit(2)
	}
}

func runDecode(args []string) {
	fs := flag.NewFlagSet("decode", flag.ExitOnError)
	cfg := config.DefaultConfig()
	cfg.RegisterFlags(fs)

	input := fs.String("input", "", "bulletin text file (default: stdin)")
	store := fs.String("store", "", "comma-separated backends to persist levels to: ch, pg, sqlite")
	fs.Usage = func() { usage(os.Stderr) }
	_ = fs.Parse(args)

	text, err := readInput(*input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sonde_decode: %v\n", err)
		os.Exit(1)
	}

	stations := loadStations(cfg.StationTablePath)

	runID := uuid.NewString()
	started := time.Now().UTC()

	agg, levelCount, perType := decodeText(text, stations)

	fmt.Printf("run %s: decoded %d synoptic time(s), %d level(s) total\n", runID, len(agg.Times()), levelCount)
	for typ, n := range perType {
		fmt.Printf("  %-4s %d level(s)\n", typ, n)
	}

	backends := parseBackends(*store)
	if len(backends) == 0 {
		return
	}

	ctx := context.Background()
	persistDecoded(ctx, cfg, backends, runID, started, agg, levelCount)
}

func runListen(args []string) {
	fs := flag.NewFlagSet("listen", flag.ExitOnError)
	cfg := config.DefaultConfig()
	cfg.RegisterFlags(fs)
	store := fs.String("store", "", "comma-separated backends to persist levels to: ch, pg, sqlite")
	fs.Usage = func() { usage(os.Stderr) }
	_ = fs.Parse(args)

	stations := loadStations(cfg.StationTablePath)
	backends := parseBackends(*store)

	sub, err := ingest.NewSubscriber(cfg.NATS.URL, cfg.NATS.Subject, stations)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sonde_decode: %v\n", err)
		os.Exit(1)
	}
	defer sub.Close()

	ctx := context.Background()
	fmt.Printf("listening on %s (subject %s), ctrl-c to stop\n", cfg.NATS.URL, cfg.NATS.Subject)

	err = sub.Run(ctx, func(res ingest.Result) {
		fmt.Printf("run %s: %d message(s), %d level(s)\n", res.RunID, res.MessageCount, res.LevelCount)
		if len(backends) > 0 {
			persistDecoded(ctx, cfg, backends, res.RunID, time.Now().UTC(), res.Aggregator, res.LevelCount)
		}
	})
	if err != nil && err != context.Canceled {
		fmt.Fprintf(os.Stderr, "sonde_decode: %v\n", err)
		os.Exit(1)
	}
}

func runPublish(args []string) {
	fs := flag.NewFlagSet("publish", flag.ExitOnError)
	cfg := config.DefaultConfig()
	cfg.RegisterFlags(fs)
	input := fs.String("input", "", "bulletin text file (default: stdin)")
	fs.Usage = func() { usage(os.Stderr) }
	_ = fs.Parse(args)

	text, err := readInput(*input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sonde_decode: %v\n", err)
		os.Exit(1)
	}

	if err := ingest.Publish(cfg.NATS.URL, cfg.NATS.Subject, text); err != nil {
		fmt.Fprintf(os.Stderr, "sonde_decode: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("published %d byte(s) to %s\n", len(text), cfg.NATS.Subject)
}

func readInput(path string) (string, error) {
	var r io.Reader = os.Stdin
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return "", fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return string(data), nil
}

func loadStations(path string) *station.Table {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		warnStationTableUnavailable(path, err)
		return nil
	}
	defer f.Close()

	t, err := station.LoadTable(f)
	if err != nil {
		warnStationTableUnavailable(path, err)
		return nil
	}
	return t
}

func warnStationTableUnavailable(path string, err error) {
	fmt.Fprintf(os.Stderr, "sonde_decode: station table %q unavailable (%v), elevation lookups will return 0\n", path, err)
}

func parseBackends(spec string) []string {
	if spec == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(spec); i++ {
		if i == len(spec) || spec[i] == ',' {
			if i > start {
				out = append(out, spec[start:i])
			}
			start = i + 1
		}
	}
	return out
}

func persistDecoded(ctx context.Context, cfg config.Config, backends []string, runID string, started time.Time, agg *aggregate.Aggregator, levelCount int) {
	for _, backend := range backends {
		switch backend {
		case "ch":
			persistClickHouse(ctx, cfg, runID, started, agg, levelCount)
		case "pg":
			persistPostgres(ctx, cfg, runID, started, agg, levelCount)
		case "sqlite":
			persistSQLite(cfg, runID, agg)
		default:
			fmt.Fprintf(os.Stderr, "sonde_decode: unknown store backend %q (want ch, pg, sqlite)\n", backend)
		}
	}
}

func persistClickHouse(ctx context.Context, cfg config.Config, runID string, started time.Time, agg *aggregate.Aggregator, levelCount int) {
	ch, err := storage.OpenClickHouse(ctx, cfg.ClickHouse)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sonde_decode: clickhouse: %v\n", err)
		return
	}
	defer ch.Close()

	if err := ch.InsertIngestRun(ctx, runID, "sonde_decode", started); err != nil {
		fmt.Fprintf(os.Stderr, "sonde_decode: clickhouse: %v\n", err)
	}

	var rows []storage.CHInsertParams
	var id uint64
	messageCount := 0
	for _, timeStr := range agg.Times() {
		for _, stationID := range agg.Stations(timeStr) {
			for msgType, entry := range agg.Entries(timeStr, stationID) {
				messageCount++
				for _, lvl := range entry.Levels {
					id++
					rows = append(rows, storage.CHInsertParams{
						ID:               id,
						IngestRunID:      runID,
						TimeStr:          timeStr,
						StationID:        stationID,
						MsgType:          string(msgType),
						TransmissionCode: entry.Message.TransmissionCode,
						Lvl:              lvl.Lvl,
						Hght:             lvl.Hght,
						Tmpc:             lvl.Tmpc,
						Dwpc:             lvl.Dwpc,
						Wdir:             lvl.Wdir,
						Wspd:             lvl.Wspd,
						Trop:             lvl.Trop,
						RawBody:          rawBody(entry.Message.BodyTokens),
					})
				}
			}
		}
	}

	if err := ch.InsertBatch(ctx, rows); err != nil {
		fmt.Fprintf(os.Stderr, "sonde_decode: clickhouse: %v\n", err)
	}

	completed := time.Now().UTC()
	if err := ch.CompleteIngestRun(ctx, runID, "sonde_decode", started, completed, uint32(messageCount), uint32(levelCount), nil); err != nil {
		fmt.Fprintf(os.Stderr, "sonde_decode: clickhouse: %v\n", err)
	}
}

func persistPostgres(ctx context.Context, cfg config.Config, runID string, started time.Time, agg *aggregate.Aggregator, levelCount int) {
	pg, err := storage.OpenPostgres(ctx, cfg.Postgres)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sonde_decode: postgres: %v\n", err)
		return
	}
	defer pg.Close()

	if err := pg.StartIngestRun(ctx, runID, "sonde_decode", started); err != nil {
		fmt.Fprintf(os.Stderr, "sonde_decode: postgres: %v\n", err)
	}

	messageCount := 0
	var runErr error
	for _, timeStr := range agg.Times() {
		for _, stationID := range agg.Stations(timeStr) {
			for msgType, entry := range agg.Entries(timeStr, stationID) {
				messageCount++
				err := pg.RecordSoundingEntry(ctx, timeStr, stationID, string(msgType), entry.Message.TransmissionCode, len(entry.Levels), runID)
				if err != nil {
					fmt.Fprintf(os.Stderr, "sonde_decode: postgres: %v\n", err)
					runErr = err
				}
			}
		}
	}

	completed := time.Now().UTC()
	if err := pg.CompleteIngestRun(ctx, runID, completed, messageCount, levelCount, runErr); err != nil {
		fmt.Fprintf(os.Stderr, "sonde_decode: postgres: %v\n", err)
	}
}

func persistSQLite(cfg config.Config, runID string, agg *aggregate.Aggregator) {
	db, err := storage.OpenSQLite(cfg.SQLitePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sonde_decode: sqlite: %v\n", err)
		return
	}
	defer db.Close()

	if err := db.CreateSchema(); err != nil {
		fmt.Fprintf(os.Stderr, "sonde_decode: sqlite: %v\n", err)
		return
	}

	for _, timeStr := range agg.Times() {
		for _, stationID := range agg.Stations(timeStr) {
			for msgType, entry := range agg.Entries(timeStr, stationID) {
				for _, lvl := range entry.Levels {
					_, err := db.InsertLevel(storage.CHInsertParams{
						IngestRunID:      runID,
						TimeStr:          timeStr,
						StationID:        stationID,
						MsgType:          string(msgType),
						TransmissionCode: entry.Message.TransmissionCode,
						Lvl:              lvl.Lvl,
						Hght:             lvl.Hght,
						Tmpc:             lvl.Tmpc,
						Dwpc:             lvl.Dwpc,
						Wdir:             lvl.Wdir,
						Wspd:             lvl.Wspd,
						Trop:             lvl.Trop,
						RawBody:          rawBody(entry.Message.BodyTokens),
					})
					if err != nil {
						fmt.Fprintf(os.Stderr, "sonde_decode: sqlite: %v\n", err)
					}
				}
			}
		}
	}
}

// decodeText runs the full decode/aggregate pipeline and tallies level
// counts per message type for the summary printed to the console.
func decodeText(text string, stations *station.Table) (*aggregate.Aggregator, int, map[string]int) {
	agg := wmosonde.DecodeBulletin(text, stations)

	levelCount := 0
	perType := make(map[string]int)
	for _, timeStr := range agg.Times() {
		for _, stationID := range agg.Stations(timeStr) {
			for msgType, entry := range agg.Entries(timeStr, stationID) {
				levelCount += len(entry.Levels)
				perType[string(msgType)] += len(entry.Levels)
			}
		}
	}
	return agg, levelCount, perType
}

func rawBody(tokens []string) string {
	out := ""
	for i, t := range tokens {
		if i > 0 {
			out += " "
		}
		out += t
	}
	return out
}
