package decode

import (
	"strings"
	"testing"

	"wmosonde/internal/bulletin"
	"wmosonde/internal/token"
)

func fields(s string) []string { return strings.Fields(s) }

func TestDecodeSigTemp_BasicPair(t *testing.T) {
	body := fields("00120 91285 00299 10142 11850 22030")
	msg := bulletin.RawMessage{Type: bulletin.TTBB, BodyTokens: body}

	levels := DecodeSigTemp(msg)
	if len(levels) != 2 {
		t.Fatalf("expected 2 significant-temperature levels, got %d: %+v", len(levels), levels)
	}
	if levels[0].Lvl != 1299 {
		t.Errorf("first lvl = %v, want 1299 (sigIdx 00, 299 < 300 folds +1000)", levels[0].Lvl)
	}
	if levels[0].Wdir != token.Missing {
		t.Errorf("first record should carry temp/dewpoint not wind, got wdir=%v", levels[0].Wdir)
	}
}

func TestDecodeSigTemp_AdditionalWindsMode(t *testing.T) {
	body := fields("00120 91285 21212 11850 22030")
	msg := bulletin.RawMessage{Type: bulletin.TTBB, BodyTokens: body}

	levels := DecodeSigTemp(msg)
	if len(levels) != 1 {
		t.Fatalf("expected 1 level after 21212 marker, got %d: %+v", len(levels), levels)
	}
	if levels[0].Tmpc != token.Missing {
		t.Errorf("post-21212 record should carry wind not temp, got tmpc=%v", levels[0].Tmpc)
	}
	wdir, wspd := token.DecodeWind("22030")
	if levels[0].Wdir != wdir || levels[0].Wspd != wspd {
		t.Errorf("wind = (%v,%v), want (%v,%v)", levels[0].Wdir, levels[0].Wspd, wdir, wspd)
	}
}

func TestDecodeSigTemp_NilGroupDiscarded(t *testing.T) {
	body := fields("00120 91285 11NIL 10142")
	msg := bulletin.RawMessage{Type: bulletin.TTBB, BodyTokens: body}

	levels := DecodeSigTemp(msg)
	if len(levels) != 0 {
		t.Errorf("expected a NIL-payload group to be discarded, got %+v", levels)
	}
}

func TestDecodeSigTemp_TTDDScalesLevelByTen(t *testing.T) {
	body := fields("00120 91285 01234 10142")
	msg := bulletin.RawMessage{Type: bulletin.TTDD, BodyTokens: body}

	levels := DecodeSigTemp(msg)
	if len(levels) != 1 {
		t.Fatalf("expected 1 level, got %d", len(levels))
	}
	if levels[0].Lvl != 23.4 {
		t.Errorf("TTDD lvl = %v, want 23.4 (levelPart 234 scaled by tenths)", levels[0].Lvl)
	}
}
