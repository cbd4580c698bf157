package decode

import (
	"testing"

	"wmosonde/internal/bulletin"
	"wmosonde/internal/token"
)

func TestDecodeSigWind_AltitudeGroupThreeWinds(t *testing.T) {
	// "91248": leading "9", digit[1]='1' -> hghtMod=10000, slots 2/4/8
	// each present (no '/'), giving three height/wind pairs.
	body := fields("00120 91285 91248 11111 22222 33333")
	msg := bulletin.RawMessage{Type: bulletin.PPBB, BodyTokens: body}

	levels := DecodeSigWind(msg)
	if len(levels) != 3 {
		t.Fatalf("expected 3 wind levels from one altitude group, got %d: %+v", len(levels), levels)
	}
	wantFeet := []float64{12000, 14000, 18000}
	for i, feet := range wantFeet {
		want := feet / 3.281
		if levels[i].Hght != want {
			t.Errorf("level %d hght = %v, want %v", i, levels[i].Hght, want)
		}
		if levels[i].Tmpc != sigWindLocalSentinel {
			t.Errorf("level %d tmpc = %v, want the -999 local sentinel", i, levels[i].Tmpc)
		}
	}
}

func TestDecodeSigWind_MissingHeightDigitSkipsPair(t *testing.T) {
	body := fields("00120 91285 912/8 11111 00000 33333")
	msg := bulletin.RawMessage{Type: bulletin.PPBB, BodyTokens: body}

	levels := DecodeSigWind(msg)
	if len(levels) != 2 {
		t.Fatalf("expected 2 wind levels (middle slot missing), got %d: %+v", len(levels), levels)
	}
}

func TestDecodeSigWind_PressureLevelMode(t *testing.T) {
	body := fields("00120 91285 21212 20500 11111")
	msg := bulletin.RawMessage{Type: bulletin.PPBB, BodyTokens: body}

	levels := DecodeSigWind(msg)
	if len(levels) != 1 {
		t.Fatalf("expected 1 pressure-level wind, got %d: %+v", len(levels), levels)
	}
	if levels[0].Lvl != 500 {
		t.Errorf("lvl = %v, want 500", levels[0].Lvl)
	}
	wdir, wspd := token.DecodeWind("11111")
	if levels[0].Wdir != wdir || levels[0].Wspd != wspd {
		t.Errorf("wind = (%v,%v), want (%v,%v)", levels[0].Wdir, levels[0].Wspd, wdir, wspd)
	}
}

func TestDecodeSigWind_PPDDScalesLevelByTen(t *testing.T) {
	body := fields("00120 91285 21212 20500 11111")
	msg := bulletin.RawMessage{Type: bulletin.PPDD, BodyTokens: body}

	levels := DecodeSigWind(msg)
	if len(levels) != 1 {
		t.Fatalf("expected 1 pressure-level wind, got %d", len(levels))
	}
	if levels[0].Lvl != 50 {
		t.Errorf("PPDD lvl = %v, want 50 (500 scaled by tenths)", levels[0].Lvl)
	}
}
