package decode

import (
	"strings"
	"testing"

	"wmosonde/internal/bulletin"
	"wmosonde/internal/token"
)

func mustDecodeMand(t *testing.T, raw string) []string {
	t.Helper()
	return strings.Fields(raw)
}

func TestDecodeMandatory_SurfaceUsesStationElevation(t *testing.T) {
	body := mustDecodeMand(t, "99120 91285 99001 10142 22010 00107 27015")
	msg := bulletin.RawMessage{Type: bulletin.TTAA, BodyTokens: body}

	levels := DecodeMandatory(msg, nil)
	if len(levels) == 0 {
		t.Fatalf("expected at least one level, got none")
	}
	first := levels[0]
	if first.Lvl != 1001 {
		t.Errorf("surface lvl = %v, want 1001 (99 code, hhh=001 < 300)", first.Lvl)
	}
	// no station table supplied: Elevation falls back to 0, not Missing.
	if first.Hght != 0 {
		t.Errorf("surface hght = %v, want 0 (no station table)", first.Hght)
	}
}

func TestDecodeMandatory_AbortsOnMissingTopLevel(t *testing.T) {
	body := mustDecodeMand(t, "9912/ 91285 99001 10142 22010")
	msg := bulletin.RawMessage{Type: bulletin.TTAA, BodyTokens: body}

	levels := DecodeMandatory(msg, nil)
	if levels != nil {
		t.Errorf("expected nil when top-level digit is missing, got %v", levels)
	}
}

func TestDecodeMandatory_StopsAtStopGroup(t *testing.T) {
	body := mustDecodeMand(t, "99120 91285 00000 10142 22010 51515 00200")
	msg := bulletin.RawMessage{Type: bulletin.TTAA, BodyTokens: body}

	levels := DecodeMandatory(msg, nil)
	for _, l := range levels {
		if l.Lvl == 200 {
			t.Errorf("decoded a level past the 51515 stop group: %+v", l)
		}
	}
}

func TestDecodeMandatory_StaleTokenWindFallback(t *testing.T) {
	// lvl_top=0 (digit '0' -> 0) forces every level below top, so the
	// "lvl < lvl_top" branch never triggers via that comparison on its
	// own merit; instead exercise the branch by constructing a message
	// whose mandatory level sits below a nonzero top and has no fresh
	// wind group available, confirming decode does not panic and reuses
	// the temperature/dewpoint token for wind instead.
	body := mustDecodeMand(t, "99129 91285 70139 10142")
	msg := bulletin.RawMessage{Type: bulletin.TTAA, BodyTokens: body}

	levels := DecodeMandatory(msg, nil)
	if len(levels) != 1 {
		t.Fatalf("expected exactly one level, got %d: %+v", len(levels), levels)
	}
	l := levels[0]
	if l.Lvl != 700 {
		t.Fatalf("lvl = %v, want 700", l.Lvl)
	}
	wdir, wspd := token.DecodeWind("10142")
	if l.Wdir != wdir || l.Wspd != wspd {
		t.Errorf("wind = (%v,%v), want the stale token's decode (%v,%v)", l.Wdir, l.Wspd, wdir, wspd)
	}
}

func TestDecodeMandatory_TruncatedMessageReturnsPartial(t *testing.T) {
	body := mustDecodeMand(t, "99125 91285 70139")
	msg := bulletin.RawMessage{Type: bulletin.TTAA, BodyTokens: body}

	levels := DecodeMandatory(msg, nil)
	if len(levels) != 1 {
		t.Fatalf("expected one partial level from a truncated message, got %d: %+v", len(levels), levels)
	}
	l := levels[0]
	if l.Lvl != 700 || l.Hght != 3139 {
		t.Errorf("partial level = %+v, want lvl=700 hght=3139", l)
	}
	if l.Tmpc != token.Missing || l.Wdir != token.Missing {
		t.Errorf("partial level should have missing temp/wind, got %+v", l)
	}
}

func TestDecodeMandatory_UnknownCodeDiscarded(t *testing.T) {
	body := mustDecodeMand(t, "99125 91285 60001")
	msg := bulletin.RawMessage{Type: bulletin.TTAA, BodyTokens: body}

	levels := DecodeMandatory(msg, nil)
	if len(levels) != 0 {
		t.Errorf("expected unknown PP code 60 to yield an empty/discarded record, got %+v", levels)
	}
}
