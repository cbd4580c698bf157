package decode

import (
	"strconv"
	"strings"

	"wmosonde/internal/bulletin"
	"wmosonde/internal/level"
	"wmosonde/internal/station"
	"wmosonde/internal/token"
)

// mandTemplate is the per-level-code shape looked up from the TTAA/TTCC
// dispatch tables below: the pressure/height pair the "PPhhh" group decodes
// to, the offsets from the level group of its temperature/dewpoint (p1; not
// read when p1 is not positive) and wind (p2) follow-up groups, and whether
// this is the tropopause level.
type mandTemplate struct {
	lvl, hght float64
	p1, p2    int
	trop      bool
}

var mandDefault = mandTemplate{lvl: token.Missing, hght: token.Missing, p1: 1, p2: 2}

// ttaaTemplate is switch_ttaa from the original reader: TTAA's "PP" code
// selects the pressure level, and "hhh" (h1) is either a raw height or,
// for a handful of levels, a compressed/offset height that needs unfolding.
// h1 is passed through even when the field was reported missing (-9999),
// so a couple of branches below compute a numeric-looking but meaningless
// result from it; hght is unconditionally reset to Missing by the caller
// in that case, but lvl is not — see decodeMandLevel.
func ttaaTemplate(l1 int, h1 float64) mandTemplate {
	switch l1 {
	case 0:
		return mandTemplate{lvl: 1000, hght: h1, p1: 1, p2: 2}
	case 99:
		// hhh here is surface pressure, not height; height comes from the
		// station table (filled in by the caller).
		lvl := h1
		if h1 < 300 {
			lvl = h1 + 1000
		}
		return mandTemplate{lvl: lvl, hght: token.Missing, p1: 1, p2: 2}
	case 92:
		return mandTemplate{lvl: 925, hght: h1, p1: 1, p2: 2}
	case 85:
		return mandTemplate{lvl: 850, hght: h1 + 1000, p1: 1, p2: 2}
	case 70:
		hght := h1 + 3000
		if h1 >= 500 {
			hght = h1 + 2000
		}
		return mandTemplate{lvl: 700, hght: hght, p1: 1, p2: 2}
	case 50:
		return mandTemplate{lvl: 500, hght: h1 * 10, p1: 1, p2: 2}
	case 40:
		return mandTemplate{lvl: 400, hght: h1 * 10, p1: 1, p2: 2}
	case 30:
		hght := h1*10 + 10000
		if h1 >= 300 {
			hght = h1 * 10
		}
		return mandTemplate{lvl: 300, hght: hght, p1: 1, p2: 2}
	case 25:
		hght := h1*10 + 10000
		if h1 >= 600 {
			hght = h1 * 10
		}
		return mandTemplate{lvl: 250, hght: hght, p1: 1, p2: 2}
	case 20:
		return mandTemplate{lvl: 200, hght: h1*10 + 10000, p1: 1, p2: 2}
	case 15:
		return mandTemplate{lvl: 150, hght: h1*10 + 10000, p1: 1, p2: 2}
	case 10:
		return mandTemplate{lvl: 100, hght: h1*10 + 10000, p1: 1, p2: 2}
	case 88:
		return mandTemplate{lvl: h1, hght: token.Missing, p1: 1, p2: 2, trop: true}
	case 77, 66:
		return mandTemplate{lvl: h1, hght: token.Missing, p1: -1, p2: 1}
	default:
		return mandDefault
	}
}

// ttccTemplate is switch_ttcc: the stratospheric extension of the
// mandatory-level table (70hPa down to 1hPa), reported with hhh scaled by
// ten rather than TTAA's unscaled/compressed encodings.
func ttccTemplate(l1 int, h1 float64) mandTemplate {
	switch l1 {
	case 88:
		return mandTemplate{lvl: h1 / 10.0, hght: token.Missing, p1: 1, p2: 2, trop: true}
	case 77, 66:
		return mandTemplate{lvl: h1 / 10.0, hght: token.Missing, p1: -1, p2: 1}
	case 70:
		return mandTemplate{lvl: 70, hght: h1*10 + 10000, p1: 1, p2: 2}
	case 50:
		hght := h1*10 + 20000
		if h1 > 800 {
			hght = h1*10 + 10000
		}
		return mandTemplate{lvl: 50, hght: hght, p1: 1, p2: 2}
	case 30:
		return mandTemplate{lvl: 30, hght: h1*10 + 20000, p1: 1, p2: 2}
	case 20:
		return mandTemplate{lvl: 20, hght: h1*10 + 20000, p1: 1, p2: 2}
	case 10:
		return mandTemplate{lvl: 10, hght: h1*10 + 30000, p1: 1, p2: 2}
	case 7:
		return mandTemplate{lvl: 7, hght: h1*10 + 30000, p1: 1, p2: 2}
	case 5:
		return mandTemplate{lvl: 5, hght: h1*10 + 30000, p1: 1, p2: 2}
	case 3:
		return mandTemplate{lvl: 3, hght: h1*10 + 30000, p1: 1, p2: 2}
	case 2:
		return mandTemplate{lvl: 2, hght: h1*10 + 40000, p1: 1, p2: 2}
	case 1:
		return mandTemplate{lvl: 1, hght: h1*10 + 40000, p1: 1, p2: 2}
	default:
		return mandDefault
	}
}

// DecodeMandatory decodes a TTAA or TTCC mandatory-level message into its
// vertical level list.
func DecodeMandatory(msg bulletin.RawMessage, stations *station.Table) []level.Level {
	body := msg.BodyTokens
	if len(body) < 2 {
		return nil
	}
	isTTAA := msg.Type == bulletin.TTAA

	_, _, lvlTop, _, ok := token.DecodeDateTop(body[0], isTTAA)
	if !ok || lvlTop == token.Missing {
		return nil
	}
	wmoID := body[1]

	var out []level.Level
	idx := 2
	for idx < len(body) {
		rpt := body[idx]
		if isStopGroup(rpt) {
			break
		}
		if isPassGroup(rpt) {
			idx++
			continue
		}

		res, newIdx := decodeMandLevel(body, idx, msg.Type, lvlTop, stations, wmoID)
		if !res.IsEmpty() {
			out = append(out, res)
		}
		idx = newIdx + 1
	}
	return out
}

// decodeMandLevel is _lvl_mand: it decodes one "PPhhh" level group plus its
// temperature/dewpoint and wind follow-up groups, and returns idx plus the
// number of follow-up groups it counted as consumed (the caller advances one
// past that). A message truncated before a follow-up returns that
// follow-up's out-of-range index instead.
func decodeMandLevel(body []string, idx int, msgType bulletin.MessageType, lvlTop float64, stations *station.Table, wmoID string) (level.Level, int) {
	code := body[idx]
	if len(code) < 5 {
		return level.Level{Lvl: token.Missing, Hght: token.Missing, Tmpc: token.Missing, Dwpc: token.Missing, Wdir: token.Missing, Wspd: token.Missing}, idx
	}
	ppStr := code[0:2]
	hhhStr := code[2:5]

	l1Ok := !token.ContainsMissingMarker(ppStr)
	var l1 int
	if l1Ok {
		v, err := strconv.Atoi(ppStr)
		if err != nil {
			l1Ok = false
		} else {
			l1 = v
		}
	}

	misg := true
	h1 := token.Missing
	if !token.ContainsMissingMarker(hhhStr) {
		if v, err := strconv.Atoi(hhhStr); err == nil {
			h1 = float64(v)
			misg = false
		}
	}

	var tmpl mandTemplate
	switch {
	case !l1Ok:
		tmpl = mandDefault
	case msgType == bulletin.TTAA:
		tmpl = ttaaTemplate(l1, h1)
	default:
		tmpl = ttccTemplate(l1, h1)
	}

	if l1Ok && msgType == bulletin.TTAA && l1 == 99 {
		tmpl.hght = stations.Elevation(wmoID)
	}
	if misg {
		tmpl.hght = token.Missing
	}

	res := level.Level{
		Lvl: tmpl.lvl, Hght: tmpl.hght,
		Tmpc: token.Missing, Dwpc: token.Missing,
		Wdir: token.Missing, Wspd: token.Missing,
		Trop: tmpl.trop,
	}

	if res.Lvl == token.Missing && res.Hght == token.Missing {
		return res, idx
	}

	inc := 0
	var tdToken string
	haveTD := false

	if tmpl.p1 > 0 {
		loc := idx + tmpl.p1
		if loc >= len(body) {
			return res, loc
		}
		tdToken = body[loc]
		haveTD = true
		res.Tmpc, res.Dwpc = token.DecodeTempDewpoint(tdToken)
		inc++
	}

	switch {
	case res.Lvl >= lvlTop || tmpl.p2 == 1 || tmpl.trop:
		loc := idx + tmpl.p2
		if loc >= len(body) {
			return res, loc
		}
		res.Wdir, res.Wspd = token.DecodeWind(body[loc])
		inc++
	case res.Lvl < lvlTop && res.Hght != token.Missing && haveTD:
		// Preserved from the original reader: this branch re-decodes the
		// stale temperature/dewpoint follow-up token as a wind group
		// instead of reading a fresh group at idx+p2. Not corrected here.
		res.Wdir, res.Wspd = token.DecodeWind(tdToken)
		inc++
	}

	if l1Ok && (l1 == 77 || l1 == 66) {
		if idx+2 < len(body) && strings.HasPrefix(body[idx+2], "4") {
			inc++
		}
	}

	return res, idx + inc
}
