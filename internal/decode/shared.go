// Package decode turns one bulletin.RawMessage into decoded levels. Each
// WMO message type (mandatory-level, significant-temperature,
// significant-wind) gets its own decoder function; Decode dispatches to the
// right one through a small type-keyed registry.
package decode

// stopGroups end a message's level list outright: everything after one is
// a trailer (station remarks, regional group), not another level.
var stopGroups = map[string]bool{
	"51515": true,
	"41414": true,
	"31313": true,
}

// passGroups are placeholder groups that carry no level data of their own
// and are simply skipped.
var passGroups = map[string]bool{
	"88999": true,
	"77999": true,
}

func isStopGroup(s string) bool { return stopGroups[s] }
func isPassGroup(s string) bool { return passGroups[s] }
