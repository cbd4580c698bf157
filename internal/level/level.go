// Package level defines the decoded vertical-level record produced by
// every message decoder and the external wire sentinel it is projected to.
package level

import "wmosonde/internal/token"

// Missing mirrors token.Missing for callers that only need the level
// package.
const Missing = token.Missing

// Level is one decoded pressure/height/temperature/dewpoint/wind level.
type Level struct {
	Lvl  float64
	Hght float64
	Tmpc float64
	Dwpc float64
	Wdir float64
	Wspd float64
	Trop bool
}

// IsEmpty reports whether both Lvl and Hght are missing, the single rule
// every decoder uses to discard a record: one with no pressure and no
// height carries no usable information.
func (l Level) IsEmpty() bool {
	return l.Lvl == Missing && l.Hght == Missing
}

// Wire is the external projection of Level: the same fields, tagged for
// JSON, with Missing already equal to the wire sentinel -9999. Kept
// separate from Level so a future wire format change doesn't have to
// touch decoder internals.
type Wire struct {
	Lvl  float64 `json:"lvl"`
	Hght float64 `json:"hght"`
	Tmpc float64 `json:"tmpc"`
	Dwpc float64 `json:"dwpc"`
	Wdir float64 `json:"wdir"`
	Wspd float64 `json:"wspd"`
	Trop bool    `json:"trop"`
}

// ToWire projects a Level to its wire representation.
func (l Level) ToWire() Wire {
	return Wire{
		Lvl:  l.Lvl,
		Hght: l.Hght,
		Tmpc: l.Tmpc,
		Dwpc: l.Dwpc,
		Wdir: l.Wdir,
		Wspd: l.Wspd,
		Trop: l.Trop,
	}
}
