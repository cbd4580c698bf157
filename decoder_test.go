package wmosonde

import (
	"strings"
	"testing"

	"wmosonde/internal/bulletin"
)

const sampleBulletin = "\x01\r\r\n000\r\r\nUAUS01 KWBC 011200\r\r\n" +
	"TTAA 99120 72403 99013 10142 22010 00200 10000 22008 85127 10800 23015=\r\r\n" +
	"\x03"

func TestDecodeBulletin_EndToEnd(t *testing.T) {
	agg := DecodeBulletin(sampleBulletin, nil)

	times := agg.Times()
	if len(times) != 1 {
		t.Fatalf("expected 1 synoptic time bucket, got %d: %v", len(times), times)
	}

	stations := agg.Stations(times[0])
	if len(stations) != 1 || stations[0] != "72403" {
		t.Fatalf("expected station 72403, got %v", stations)
	}

	if !agg.HasTTAA(times[0], "72403") {
		t.Fatalf("expected a TTAA record for 72403 at %s", times[0])
	}

	snd, err := agg.Sounding(times[0], "72403")
	if err != nil {
		t.Fatalf("Sounding: %v", err)
	}
	ttaa, ok := snd.Messages[bulletin.TTAA]
	if !ok {
		t.Fatalf("missing TTAA entry in sounding")
	}
	if len(ttaa.Levels) == 0 {
		t.Errorf("expected at least one decoded level, got none")
	}
}

func TestDecodeBulletin_NilTransmissionYieldsNoRecords(t *testing.T) {
	text := "\x01\r\r\n000\r\r\nUAUS01 KWBC 011200\r\r\nTTAA NIL=\r\r\n\x03"
	agg := DecodeBulletin(text, nil)
	if len(agg.Times()) != 0 {
		t.Errorf("expected no records from a NIL transmission, got %v", agg.Times())
	}
}

func TestDecodeBulletin_IgnoresUnknownMessageType(t *testing.T) {
	text := "\x01\r\r\n000\r\r\nUAUS01 KWBC 011200\r\r\nZZZZ 99120 72403 99013=\r\r\n\x03"
	agg := DecodeBulletin(text, nil)
	if len(agg.Times()) != 0 {
		t.Errorf("expected unknown message type ZZZZ to be skipped, got %v", agg.Times())
	}
}

func TestSampleBulletinParsesToKnownType(t *testing.T) {
	msgs := bulletin.ParseBulletin(sampleBulletin)
	if len(msgs) != 1 {
		t.Fatalf("expected 1 parsed message, got %d", len(msgs))
	}
	if msgs[0].Type != bulletin.TTAA {
		t.Errorf("type = %v, want TTAA", msgs[0].Type)
	}
	if msgs[0].StationID != "72403" {
		t.Errorf("station id = %q, want 72403", msgs[0].StationID)
	}
	if !strings.HasPrefix(msgs[0].TimeStr, "0112") {
		t.Errorf("time str = %q, want prefix 0112", msgs[0].TimeStr)
	}
}
