// Package aggregate groups decoded WMO messages by synoptic time and
// station, reconciling retransmissions the way the original batch reader's
// _add_time_to_record/_parse collision handling did.
package aggregate

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"wmosonde/internal/bulletin"
	"wmosonde/internal/level"
)

// Entry is one decoded message filed under a synoptic time and station.
type Entry struct {
	Message bulletin.RawMessage
	Levels  []level.Level
}

// Sounding is every message type decoded for one station at one synoptic
// time, keyed by message type — TTAA plus whichever of TTBB/PPBB/etc. also
// arrived.
type Sounding struct {
	TimeStr   string
	StationID string
	Messages  map[bulletin.MessageType]Entry
}

// ErrNoTTAA is returned by Sounding when no TTAA mandatory-level message
// has been filed for the requested time/station: a full profile needs one,
// mirroring the original reader's create_sounding, which printed a warning
// and returned None in the same situation. Here the caller decides what
// "no profile" means instead of the decoder silently dropping it.
var ErrNoTTAA = errors.New("aggregate: no TTAA message for this time/station")

// Aggregator files decoded messages by synoptic time, then station id,
// then message type, resolving retransmissions and time-group drift as
// messages arrive.
type Aggregator struct {
	records map[string]map[string]map[bulletin.MessageType]Entry
	order   []string // insertion order of top-level time keys
}

// NewAggregator returns an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{records: make(map[string]map[string]map[bulletin.MessageType]Entry)}
}

// Insert files a decoded message under its (possibly folded) synoptic time
// and station, reconciling against any prior entry for the same
// time/station/type. It returns the time key the message was actually
// filed under, which can differ from msg.TimeStr when folding applies.
func (a *Aggregator) Insert(msg bulletin.RawMessage, levels []level.Level) string {
	timeStr := a.foldSynopticHour(msg.TimeStr)

	if a.records[timeStr] == nil {
		a.records[timeStr] = make(map[string]map[bulletin.MessageType]Entry)
	}
	stationRecords := a.records[timeStr]
	if stationRecords[msg.StationID] == nil {
		stationRecords[msg.StationID] = make(map[bulletin.MessageType]Entry)
	}

	next := Entry{Message: msg, Levels: levels}
	if old, ok := stationRecords[msg.StationID][msg.Type]; ok {
		next = reconcile(old, next)
	}
	stationRecords[msg.StationID][msg.Type] = next
	return timeStr
}

// reconcile picks which of two entries for the same time/station/type to
// keep, following the original reader's comparison of transmission codes
// exactly, warts included:
//   - both messages carry no transmission code (no rebroadcast header):
//     keep whichever has the longer raw body.
//   - exactly one carries a code and the other doesn't: the original code
//     compared one against None, which raised inside a bare except and
//     silently kept the newly parsed message — preserved here rather than
//     given real None-handling.
//   - both carry a code: keep the entry whose code sorts lexicographically
//     higher (string comparison, not numeric).
func reconcile(old, next Entry) Entry {
	c1, c2 := old.Message.TransmissionCode, next.Message.TransmissionCode
	switch {
	case c1 == "" && c2 == "":
		if len(old.Message.BodyTokens) > len(next.Message.BodyTokens) {
			return old
		}
		return next
	case c1 == "" || c2 == "":
		return next
	case c1 > c2:
		return old
	default:
		return next
	}
}

// foldSynopticHour implements _add_time_to_record: when a retransmission's
// header reports a time_str a few minutes off the synoptic hour (the same
// day/hour prefix, minutes within 10 of a prior ":00" entry), it is folded
// into that prior entry's time key instead of starting a new one.
func (a *Aggregator) foldSynopticHour(timeStr string) string {
	if len(timeStr) >= 6 {
		prefix := timeStr[:4]
		for _, existing := range a.order {
			if len(existing) < 6 || !strings.HasPrefix(existing, prefix) {
				continue
			}
			var synop, other string
			if existing[len(existing)-2:] == "00" {
				synop, other = existing, timeStr
			} else {
				synop, other = timeStr, existing
			}
			sMin, err1 := strconv.Atoi(synop[len(synop)-2:])
			oMin, err2 := strconv.Atoi(other[len(other)-2:])
			if err1 != nil || err2 != nil {
				continue
			}
			remainder := sMin - oMin
			if remainder < 0 {
				remainder = -remainder
			}
			if remainder <= 10 {
				timeStr = synop
			}
		}
	}

	if _, ok := a.records[timeStr]; !ok {
		a.order = append(a.order, timeStr)
	}
	return timeStr
}

// Times lists every synoptic time key currently filed, in the order they
// were first seen.
func (a *Aggregator) Times() []string {
	return append([]string(nil), a.order...)
}

// Stations lists the station ids filed under a synoptic time.
func (a *Aggregator) Stations(timeStr string) []string {
	stations := a.records[timeStr]
	out := make([]string, 0, len(stations))
	for id := range stations {
		out = append(out, id)
	}
	return out
}

// HasTTAA reports whether a TTAA message has been filed for the given
// time/station.
func (a *Aggregator) HasTTAA(timeStr, stationID string) bool {
	_, ok := a.records[timeStr][stationID][bulletin.TTAA]
	return ok
}

// Sounding returns every message filed for a time/station, requiring a
// TTAA among them. Unlike the original's create_sounding, which printed a
// warning and returned nil, the caller gets ErrNoTTAA and decides what to
// do about an incomplete profile.
func (a *Aggregator) Sounding(timeStr, stationID string) (Sounding, error) {
	stations, ok := a.records[timeStr]
	if !ok {
		return Sounding{}, fmt.Errorf("%w: time %q has no records", ErrNoTTAA, timeStr)
	}
	messages, ok := stations[stationID]
	if !ok {
		return Sounding{}, fmt.Errorf("%w: station %q has no records at time %q", ErrNoTTAA, stationID, timeStr)
	}
	if _, ok := messages[bulletin.TTAA]; !ok {
		return Sounding{}, fmt.Errorf("%w: time=%s station=%s messages=%v", ErrNoTTAA, timeStr, stationID, messageTypeKeys(messages))
	}
	return Sounding{TimeStr: timeStr, StationID: stationID, Messages: messages}, nil
}

// Entries returns every message filed for a time/station, with no TTAA
// requirement — unlike Sounding, which assembles a complete profile. Storage
// and export paths use this so a PILOT-only delivery (PPBB/PPDD with no
// matching TTAA) still gets persisted instead of silently dropped.
func (a *Aggregator) Entries(timeStr, stationID string) map[bulletin.MessageType]Entry {
	return a.records[timeStr][stationID]
}

func messageTypeKeys(m map[bulletin.MessageType]Entry) []bulletin.MessageType {
	out := make([]bulletin.MessageType, 0, len(m))
	for t := range m {
		out = append(out, t)
	}
	return out
}
