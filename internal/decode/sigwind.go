package decode

import (
	"strconv"

	"wmosonde/internal/bulletin"
	"wmosonde/internal/level"
	"wmosonde/internal/token"
)

// sigWindLocalSentinel is the fill value the original reader's _lvl_sigw
// leaves in lvl/hght/tmpc/dwpc before its caller overwrites whichever of
// lvl or hght actually applies to the group. tmpc/dwpc are never
// applicable to a significant-wind level and are never overwritten, so
// every record this decoder emits carries this value in those two fields
// instead of the general Missing sentinel. Preserved rather than unified.
const sigWindLocalSentinel = -999.0

func lvlSigW(body []string, idx int) level.Level {
	wdir, wspd := token.DecodeWind(body[idx])
	return level.Level{
		Lvl:  sigWindLocalSentinel,
		Hght: sigWindLocalSentinel,
		Tmpc: sigWindLocalSentinel,
		Dwpc: sigWindLocalSentinel,
		Wdir: wdir,
		Wspd: wspd,
	}
}

// DecodeSigWind decodes a PPBB or PPDD significant-wind message. Before a
// "21212" marker, each group is an altitude header packing up to three
// height/wind-group pairs ("9hhhh" style, or "10"/"11"-prefixed above
// 100,000 ft); after the marker, each group is a pressure level followed by
// one wind group.
func DecodeSigWind(msg bulletin.RawMessage) []level.Level {
	body := msg.BodyTokens
	if len(body) < 2 {
		return nil
	}

	var out []level.Level
	idx := 2
	var lastAltitudeGroup string
	windsOnPressureLevels := false

	for idx < len(body) {
		rpt := body[idx]
		if rpt == "" {
			break
		}
		if isStopGroup(rpt) {
			break
		}
		if rpt == "21212" {
			windsOnPressureLevels = true
			idx++
			continue
		}

		aboveHundredKft := false
		if rpt[0] != '9' && !windsOnPressureLevels {
			lastAltCode := ""
			if len(lastAltitudeGroup) >= 2 {
				lastAltCode = lastAltitudeGroup[0:2]
			}
			prefix := ""
			if len(rpt) >= 2 {
				prefix = rpt[0:2]
			}
			if (prefix == "10" || prefix == "11") && (lastAltCode == "99" || lastAltCode == "10") {
				aboveHundredKft = true
			} else {
				break
			}
		}

		inc := 1

		if !windsOnPressureLevels {
			if len(rpt) < 5 {
				break
			}
			var hghtMod float64
			if !aboveHundredKft {
				d, err := strconv.Atoi(rpt[1:2])
				if err != nil {
					break
				}
				hghtMod = float64(d) * 10000
			} else {
				v, err := strconv.Atoi(rpt[0:2])
				if err != nil {
					break
				}
				hghtMod = float64(v) * 10000
			}

			slot := func(pos int) (float64, bool) {
				if token.IsMissingMarker(rpt[pos]) {
					return 0, false
				}
				d, err := strconv.Atoi(rpt[pos : pos+1])
				if err != nil {
					return 0, false
				}
				return float64(d)*1000 + hghtMod, true
			}

			h1, ok1 := slot(2)
			h2, ok2 := slot(3)
			h3, ok3 := slot(4)

			if ok1 && idx+1 < len(body) {
				res := lvlSigW(body, idx+1)
				res.Hght = h1 / 3.281
				out = append(out, res)
				inc++
			}
			if ok2 && idx+2 < len(body) {
				res := lvlSigW(body, idx+2)
				res.Hght = h2 / 3.281
				out = append(out, res)
				inc++
			}
			if ok3 && idx+3 < len(body) {
				res := lvlSigW(body, idx+3)
				res.Hght = h3 / 3.281
				out = append(out, res)
				inc++
			}
		} else {
			if len(rpt) < 3 {
				break
			}
			levelVal, err := strconv.Atoi(rpt[2:])
			if err != nil {
				break
			}
			var lvl float64
			if msg.Type == bulletin.PPBB {
				lvl = float64(levelVal)
			} else {
				lvl = float64(levelVal) / 10.0
			}
			idx++
			if idx >= len(body) {
				break
			}
			res := lvlSigW(body, idx)
			res.Lvl = lvl
			out = append(out, res)
		}

		idx += inc
		lastAltitudeGroup = rpt
	}

	return out
}
