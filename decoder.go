// Package wmosonde decodes WMO FM 35 (TEMP) and FM 32 (PILOT) upper-air
// bulletins into vertical profiles of pressure, height, temperature,
// dewpoint, and wind, aggregated by synoptic time and station.
package wmosonde

import (
	"wmosonde/internal/aggregate"
	"wmosonde/internal/bulletin"
	"wmosonde/internal/decode"
	"wmosonde/internal/level"
	"wmosonde/internal/station"
)

// DecodeMessage decodes a single raw message into its vertical levels,
// resolving station elevation lookups (needed for TTAA surface records)
// against stations. stations may be nil; elevation then falls back to 0.
func DecodeMessage(msg bulletin.RawMessage, stations *station.Table) []level.Level {
	return decode.Decode(msg, stations)
}

// DecodeBulletin parses raw bulletin text into messages, decodes each one,
// and files the results into a fresh Aggregator keyed by synoptic time and
// station.
func DecodeBulletin(text string, stations *station.Table) *aggregate.Aggregator {
	agg := aggregate.NewAggregator()
	for _, msg := range bulletin.ParseBulletin(text) {
		levels := DecodeMessage(msg, stations)
		agg.Insert(msg, levels)
	}
	return agg
}
