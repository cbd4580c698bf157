package level

import "testing"

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		name string
		l    Level
		want bool
	}{
		{"both missing", Level{Lvl: Missing, Hght: Missing}, true},
		{"lvl present", Level{Lvl: 850, Hght: Missing}, false},
		{"hght present", Level{Lvl: Missing, Hght: 1500}, false},
		{"both present", Level{Lvl: 850, Hght: 1500}, false},
	}
	for _, c := range cases {
		if got := c.l.IsEmpty(); got != c.want {
			t.Errorf("%s: IsEmpty() = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestToWire(t *testing.T) {
	l := Level{Lvl: 850, Hght: 1500, Tmpc: 12.4, Dwpc: 8.1, Wdir: 230, Wspd: 45, Trop: true}
	w := l.ToWire()
	if w.Lvl != l.Lvl || w.Hght != l.Hght || w.Tmpc != l.Tmpc || w.Dwpc != l.Dwpc ||
		w.Wdir != l.Wdir || w.Wspd != l.Wspd || w.Trop != l.Trop {
		t.Errorf("ToWire() = %+v, want fields matching %+v", w, l)
	}
}

func TestMissingMirrorsToken(t *testing.T) {
	if Missing != -9999.0 {
		t.Errorf("Missing = %v, want -9999.0", Missing)
	}
}
