package bulletin

import "strings"

// ignoreTokens are segments/lines/words that carry no information and are
// dropped wherever they appear during splitting, mirroring the Python
// reader's `self.ignore = ["", "\n\n\n", "\n\n", [""], [], "\n"]` list
// (the list/empty-list entries are artifacts of that implementation and
// have no Go equivalent).
var ignoreTokens = map[string]bool{
	"":       true,
	"\n":     true,
	"\n\n":   true,
	"\n\n\n": true,
}

var nilTokens = map[string]bool{
	"/////":    true,
	"MISDA":    true,
	"SUSPENDED": true,
	"NIL":      true,
	"NILL":     true,
	"NNNN":     true,
	"XMTD":     true,
	"@":        true,
}

func splitFilter(s, sep string) []string {
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if ignoreTokens[p] {
			continue
		}
		out = append(out, p)
	}
	return out
}

// SplitTransmissions normalizes the raw text (stripping CR and SOH) and
// splits it on ETX into individual transmissions, dropping empty/ignorable
// segments.
func SplitTransmissions(text string) []string {
	text = strings.ReplaceAll(text, "\r", "")
	text = strings.ReplaceAll(text, "\x01", "")
	return splitFilter(text, "\x03")
}

// firstIndexContaining returns the index of the first element of lines
// that contains any known message-type token as a substring, or 0 if none
// does (matching the original's "fall back to start of list" behavior).
func firstIndexContaining(lines []string) int {
	for i, line := range lines {
		for _, t := range KnownTypes {
			if strings.Contains(line, string(t)) {
				return i
			}
		}
	}
	return 0
}

func removeFirstMatch(tokens []string, target string) []string {
	for i, tok := range tokens {
		if strings.EqualFold(tok, target) {
			out := make([]string, 0, len(tokens)-1)
			out = append(out, tokens[:i]...)
			out = append(out, tokens[i+1:]...)
			return out
		}
	}
	return tokens
}

// formatMessages processes the "="-delimited segments of one transmission
// into a header token list and a body-token list per message, following
// original_source/WMOParser.py's _format_messages exactly: the first
// segment carries the abbreviated header on its second line (or second
// space-token, if the segment collapses to one line), and every segment's
// body is located by scanning for the first line/token containing a known
// message-type substring.
func formatMessages(segments []string) (header []string, messages [][]string) {
	for idx, segment := range segments {
		lines := splitFilter(segment, "\n")
		if len(lines) == 1 {
			lines = splitFilter(lines[0], " ")
		}

		if idx == 0 {
			if len(lines) < 2 {
				continue
			}
			header = splitFilter(lines[1], " ")
			lines = lines[2:]
		}

		start := firstIndexContaining(lines)
		lines = lines[start:]

		var flat []string
		for _, line := range lines {
			flat = append(flat, splitFilter(line, " ")...)
		}

		start2 := firstIndexContaining(flat)
		out := flat[start2:]

		if len(out) == 0 {
			continue
		}
		out = removeFirstMatch(out, "NIL")
		out = removeFirstMatch(out, "NILL")
		out = removeFirstMatch(out, "XMTD")

		messages = append(messages, out)
	}
	return header, messages
}

// IsNIL reports whether a tokenized message is an empty/NIL transmission:
// two tokens or fewer, or either of the first two tokens (case-insensitively)
// naming a known NIL marker.
func IsNIL(tokens []string) bool {
	if len(tokens) <= 2 {
		return true
	}
	if nilTokens[strings.ToUpper(tokens[0])] {
		return true
	}
	if nilTokens[strings.ToUpper(tokens[1])] {
		return true
	}
	return false
}

// ParseBulletin splits raw bulletin text into RawMessages, dropping NIL
// and unrecognized-type messages silently rather than surfacing a parse
// error: a bulletin carries many independent station reports, and one
// malformed or empty report shouldn't take the rest down with it.
func ParseBulletin(text string) []RawMessage {
	var out []RawMessage

	for _, transmission := range SplitTransmissions(text) {
		segments := splitFilter(transmission, "=")
		header, messages := formatMessages(segments)

		for _, msg := range messages {
			if IsNIL(msg) {
				continue
			}

			msgType, ok := isKnownType(msg[0])
			if !ok {
				continue
			}

			body := msg[1:]
			var stationID string
			if len(body) > 1 {
				stationID = body[1]
			}

			var timeStr, transCode string
			if len(header) > 2 {
				timeStr = header[2]
			}
			if len(header) == 4 {
				transCode = header[3]
			}

			out = append(out, RawMessage{
				Type:             msgType,
				HeaderTokens:     header,
				BodyTokens:       body,
				TimeStr:          timeStr,
				StationID:        stationID,
				TransmissionCode: transCode,
			})
		}
	}

	return out
}
