package decode

import (
	"strconv"

	"wmosonde/internal/bulletin"
	"wmosonde/internal/level"
	"wmosonde/internal/token"
)

// DecodeSigTemp decodes a TTBB or TTDD significant-temperature message: a
// run of "ppIdx"+"level" groups, each immediately followed by a
// temperature/dewpoint group, switching to wind-instead-of-temperature mode
// after a "21212" marker.
func DecodeSigTemp(msg bulletin.RawMessage) []level.Level {
	body := msg.BodyTokens
	if len(body) < 2 {
		return nil
	}

	var out []level.Level
	idx := 2
	additionalWinds := false

	for idx < len(body) {
		rpt := body[idx]
		if isStopGroup(rpt) {
			break
		}
		if rpt == "21212" {
			additionalWinds = true
			idx++
			continue
		}
		if idx+1 >= len(body) {
			break
		}

		res := decodeSigTempPair(body, idx, msg.Type, additionalWinds)
		if !res.IsEmpty() {
			out = append(out, res)
		}
		idx += 2
	}
	return out
}

func decodeSigTempPair(body []string, idx int, msgType bulletin.MessageType, additionalWinds bool) level.Level {
	res := level.Level{
		Lvl: token.Missing, Hght: token.Missing,
		Tmpc: token.Missing, Dwpc: token.Missing,
		Wdir: token.Missing, Wspd: token.Missing,
	}

	data := body[idx]
	if len(data) < 2 {
		return res
	}
	sigIdx := data[0:2]
	levelPart := data[2:]
	if data == "NIL" || token.ContainsMissingMarker(levelPart) {
		return res
	}

	levelVal, err := strconv.Atoi(levelPart)
	if err != nil {
		return res
	}

	var lvl float64
	if msgType == bulletin.TTBB {
		lvl = float64(levelVal)
	} else {
		lvl = float64(levelVal) / 10.0
	}
	switch {
	case sigIdx == "00":
		if lvl < 300 {
			lvl += 1000
		}
	case msgType == bulletin.TTBB && lvl < 100:
		lvl += 1000
	}

	partner := body[idx+1]
	res.Lvl = lvl
	if additionalWinds {
		res.Wdir, res.Wspd = token.DecodeWind(partner)
	} else {
		res.Tmpc, res.Dwpc = token.DecodeTempDewpoint(partner)
	}
	return res
}
