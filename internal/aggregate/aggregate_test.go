package aggregate

import (
	"errors"
	"testing"

	"wmosonde/internal/bulletin"
	"wmosonde/internal/level"
)

func TestInsert_FoldsRetransmissionIntoSynopticHour(t *testing.T) {
	a := NewAggregator()
	first := bulletin.RawMessage{Type: bulletin.TTAA, StationID: "91285", TimeStr: "011200"}
	a.Insert(first, nil)

	second := bulletin.RawMessage{Type: bulletin.TTBB, StationID: "91285", TimeStr: "011205"}
	key := a.Insert(second, nil)

	if key != "011200" {
		t.Errorf("folded time key = %q, want %q", key, "011200")
	}
	if len(a.Times()) != 1 {
		t.Errorf("expected a single synoptic time bucket, got %v", a.Times())
	}
}

func TestInsert_DoesNotFoldBeyondTenMinutes(t *testing.T) {
	a := NewAggregator()
	a.Insert(bulletin.RawMessage{Type: bulletin.TTAA, StationID: "91285", TimeStr: "011200"}, nil)
	key := a.Insert(bulletin.RawMessage{Type: bulletin.TTBB, StationID: "91285", TimeStr: "011215"}, nil)

	if key != "011215" {
		t.Errorf("time key = %q, want a distinct bucket 011215", key)
	}
	if len(a.Times()) != 2 {
		t.Errorf("expected two synoptic time buckets, got %v", a.Times())
	}
}

func TestInsert_RetransmissionKeepsHigherCode(t *testing.T) {
	a := NewAggregator()
	low := bulletin.RawMessage{Type: bulletin.TTAA, StationID: "91285", TimeStr: "011200", TransmissionCode: "CCA"}
	high := bulletin.RawMessage{Type: bulletin.TTAA, StationID: "91285", TimeStr: "011200", TransmissionCode: "CCB"}

	a.Insert(low, []level.Level{{Lvl: 1}})
	a.Insert(high, []level.Level{{Lvl: 2}})

	snd, err := a.Sounding("011200", "91285")
	if err != nil {
		t.Fatalf("Sounding: %v", err)
	}
	if snd.Messages[bulletin.TTAA].Message.TransmissionCode != "CCB" {
		t.Errorf("kept transmission code %q, want CCB (higher sorts last)", snd.Messages[bulletin.TTAA].Message.TransmissionCode)
	}

	// Now insert the lower code again: it must NOT replace CCB.
	a.Insert(low, []level.Level{{Lvl: 3}})
	snd, _ = a.Sounding("011200", "91285")
	if snd.Messages[bulletin.TTAA].Message.TransmissionCode != "CCB" {
		t.Errorf("lower code overwrote higher code, got %q", snd.Messages[bulletin.TTAA].Message.TransmissionCode)
	}
}

func TestInsert_NoCodePrefersLongerBody(t *testing.T) {
	a := NewAggregator()
	short := bulletin.RawMessage{Type: bulletin.TTAA, StationID: "91285", TimeStr: "011200", BodyTokens: []string{"a", "b"}}
	long := bulletin.RawMessage{Type: bulletin.TTAA, StationID: "91285", TimeStr: "011200", BodyTokens: []string{"a", "b", "c", "d"}}

	a.Insert(short, nil)
	a.Insert(long, nil)
	snd, _ := a.Sounding("011200", "91285")
	if len(snd.Messages[bulletin.TTAA].Message.BodyTokens) != 4 {
		t.Errorf("expected the longer body to win, got %d tokens", len(snd.Messages[bulletin.TTAA].Message.BodyTokens))
	}

	// Inserting the short one again must not displace the longer one.
	a.Insert(short, nil)
	snd, _ = a.Sounding("011200", "91285")
	if len(snd.Messages[bulletin.TTAA].Message.BodyTokens) != 4 {
		t.Errorf("shorter body displaced the longer one, got %d tokens", len(snd.Messages[bulletin.TTAA].Message.BodyTokens))
	}
}

func TestSounding_ErrorsWithoutTTAA(t *testing.T) {
	a := NewAggregator()
	a.Insert(bulletin.RawMessage{Type: bulletin.TTBB, StationID: "91285", TimeStr: "011200"}, nil)

	_, err := a.Sounding("011200", "91285")
	if !errors.Is(err, ErrNoTTAA) {
		t.Errorf("expected ErrNoTTAA, got %v", err)
	}
}

func TestSounding_SucceedsWithTTAA(t *testing.T) {
	a := NewAggregator()
	a.Insert(bulletin.RawMessage{Type: bulletin.TTAA, StationID: "91285", TimeStr: "011200"}, nil)
	a.Insert(bulletin.RawMessage{Type: bulletin.TTBB, StationID: "91285", TimeStr: "011200"}, nil)

	snd, err := a.Sounding("011200", "91285")
	if err != nil {
		t.Fatalf("Sounding: %v", err)
	}
	if len(snd.Messages) != 2 {
		t.Errorf("expected 2 message types filed, got %d", len(snd.Messages))
	}
}
