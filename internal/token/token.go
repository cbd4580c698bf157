// Package token decodes the fixed-format 5-character groups that make up
// the body of a WMO TAC bulletin: temperature/dewpoint groups, wind
// groups, and the leading date/top-wind-level group. These are the pure
// functions the message decoders are built from.
package token

import "strconv"

// Missing is the sentinel for an unknown numeric field.
const Missing = -9999.0

// IsMissingMarker reports whether b is one of the two characters WMO TAC
// groups use to mark a missing digit ('/' or '\'). Every missing-value
// check in this package and its callers goes through this one predicate
// instead of duplicating the comparison.
func IsMissingMarker(b byte) bool {
	return b == '/' || b == '\\'
}

func containsMissingMarker(s string) bool {
	for i := 0; i < len(s); i++ {
		if IsMissingMarker(s[i]) {
			return true
		}
	}
	return false
}

// ContainsMissingMarker is the exported form of containsMissingMarker, for
// callers outside this package that need the same substring check (message
// decoders inspecting a field before handing it to one of the Decode*
// functions below).
func ContainsMissingMarker(s string) bool {
	return containsMissingMarker(s)
}

// DecodeTempDewpoint decodes a 5-character "TTTDd" group into temperature
// and dewpoint in degrees Celsius. TTT (chars 0-2) is tenths of a degree
// with the sign folded into parity (odd = negative). Dd (chars 3-4) is a
// dewpoint depression, scaled by tenths up to 55, then by whole degrees
// with a -50 offset above that.
func DecodeTempDewpoint(group string) (tmpc, dwpc float64) {
	if len(group) < 5 {
		return Missing, Missing
	}

	tempPart := group[0:3]
	depPart := group[3:5]

	if containsMissingMarker(tempPart) {
		tmpc = Missing
	} else {
		raw, err := strconv.Atoi(tempPart)
		if err != nil {
			tmpc = Missing
		} else {
			tmpc = float64(raw) / 10.0
			if raw%2 != 0 {
				tmpc = -tmpc
			}
		}
	}

	if containsMissingMarker(depPart) {
		return tmpc, Missing
	}
	rawDep, err := strconv.Atoi(depPart)
	if err != nil {
		return tmpc, Missing
	}
	depression := float64(rawDep)
	if depression <= 55.0 {
		depression *= 0.1
	} else {
		depression -= 50.0
	}

	if tmpc == Missing {
		return tmpc, Missing
	}
	dwpc = tmpc - depression
	return tmpc, dwpc
}

// DecodeWind decodes a 5-character "dddff" wind group into direction
// (degrees true) and speed. The units digit of the direction folds in
// hundreds of knots of speed: wspd = ff + (ddd mod 5) * 100.
func DecodeWind(group string) (wdir, wspd float64) {
	if len(group) < 5 || containsMissingMarker(group) {
		return Missing, Missing
	}

	dirRaw, err := strconv.Atoi(group[0:3])
	if err != nil {
		return Missing, Missing
	}
	speedRaw, err := strconv.Atoi(group[3:5])
	if err != nil {
		return Missing, Missing
	}

	wdir = float64(dirRaw)
	wspd = float64(speedRaw) + float64(dirRaw%5)*100.0
	return wdir, wspd
}

// DecodeDateTop decodes the leading 5-character "YYGGa" group. YY is the
// day of month, offset by 50 when wind speeds in the message are reported
// in knots rather than m/s. GG is the UTC hour. 'a' is the last pressure
// level (hPa) carrying wind data; isTTAA selects whether that digit is
// scaled by 100 (TTAA) or by 10 (every other message type). ok
// is false when the group is too short to parse at all; ok being true
// with lvlTop == Missing still signals "no top level" per the '/' case.
func DecodeDateTop(group string, isTTAA bool) (day, hour int, lvlTop float64, windKnots bool, ok bool) {
	if len(group) < 5 {
		return 0, 0, Missing, false, false
	}

	dayRaw, err := strconv.Atoi(group[0:2])
	if err != nil {
		return 0, 0, Missing, false, false
	}
	if dayRaw > 50 {
		day = dayRaw - 50
		windKnots = true
	} else {
		day = dayRaw
		windKnots = false
	}

	hour, err = strconv.Atoi(group[2:4])
	if err != nil {
		return 0, 0, Missing, false, false
	}

	last := group[4]
	if IsMissingMarker(last) {
		return day, hour, Missing, windKnots, true
	}
	digit, err := strconv.Atoi(string(last))
	if err != nil {
		return day, hour, Missing, windKnots, true
	}
	if isTTAA {
		lvlTop = float64(digit) * 100
	} else {
		lvlTop = float64(digit) * 10
	}
	return day, hour, lvlTop, windKnots, true
}
