// Shape-clustering logic for grouping decoded bulletin bodies by the layout
// of their WMO five-character groups, so a reviewer can spot a station or
// message type that is consistently producing an unexpected group shape
// (too many missing-marker groups, an unexpected run of letters) without
// reading every raw body by hand.
package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"wmosonde/internal/storage"
	"wmosonde/internal/token"
)

// bodyInfo holds a row id and its raw body text for clustering.
type bodyInfo struct {
	id   uint64
	body string
}

// clusterInfo groups the bodies that share a template shape.
type clusterInfo struct {
	template string
	bodies   []bodyInfo
}

// ShapeCluster is a reported cluster of bodies sharing a group-shape template.
type ShapeCluster struct {
	ClusterID    int
	MessageCount int
	Template     string
	Examples     []string
	ExampleIDs   []uint64
}

// runSuggest clusters raw bodies for stationFilter (or every station, if
// empty) by group shape and prints the largest clusters.
func runSuggest(ctx context.Context, ch *storage.ClickHouseDB, stationFilter string, top, minClusterSize int) error {
	levels, err := ch.Query(ctx, storage.CHQueryParams{StationID: stationFilter, Limit: 5000})
	if err != nil {
		return fmt.Errorf("query levels: %w", err)
	}
	if len(levels) == 0 {
		fmt.Println("No levels found matching criteria")
		return nil
	}

	clusters := make(map[string][]bodyInfo)
	for _, l := range levels {
		tmpl := shapeTemplate(l.RawBody)
		clusters[tmpl] = append(clusters[tmpl], bodyInfo{id: l.ID, body: l.RawBody})
	}

	var sorted []clusterInfo
	for tmpl, bodies := range clusters {
		if len(bodies) >= minClusterSize {
			sorted = append(sorted, clusterInfo{tmpl, bodies})
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return len(sorted[i].bodies) > len(sorted[j].bodies) })
	if len(sorted) > top {
		sorted = sorted[:top]
	}

	printShapeClusters(sorted)
	return nil
}

// shapeTemplate classifies a raw body into a sequence of group shapes, one
// token per whitespace-delimited group: a run of digits, a group containing
// a missing-value marker ('/' or '\'), a run of letters, digits and letters
// together, or a mixed group for anything else (e.g. a group with an
// embedded sign).
func shapeTemplate(body string) string {
	fields := strings.Fields(body)
	shapes := make([]string, len(fields))
	for i, f := range fields {
		shapes[i] = classifyGroup(f)
	}
	return strings.Join(shapes, " ")
}

func classifyGroup(group string) string {
	if token.ContainsMissingMarker(group) {
		return "<MISS>"
	}

	var digits, letters, other int
	for i := 0; i < len(group); i++ {
		switch {
		case group[i] >= '0' && group[i] <= '9':
			digits++
		case group[i] >= 'A' && group[i] <= 'Z':
			letters++
		default:
			other++
		}
	}

	switch {
	case other > 0:
		return "<MIXED>"
	case digits > 0 && letters == 0:
		return fmt.Sprintf("<DIGIT%d>", len(group))
	case letters > 0 && digits == 0:
		return fmt.Sprintf("<ALPHA%d>", len(group))
	case digits > 0 && letters > 0:
		return "<ALNUM>"
	default:
		return "<EMPTY>"
	}
}

func printShapeClusters(clusters []clusterInfo) {
	fmt.Println("===================================================================")
	fmt.Println("                      BODY SHAPE CLUSTERS")
	fmt.Println("===================================================================")
	fmt.Println()

	for i, c := range clusters {
		fmt.Printf("-------------------------------------------------------------------\n")
		fmt.Printf("CLUSTER %d: %d bodies\n", i+1, len(c.bodies))
		fmt.Printf("-------------------------------------------------------------------\n")
		fmt.Println()

		fmt.Println("Shape:")
		fmt.Printf("  %s\n", c.template)
		fmt.Println()

		fmt.Println("Examples:")
		for j, b := range c.bodies {
			if j >= 3 {
				break
			}
			fmt.Printf("  [ID %d] %s\n", b.id, truncate(b.body, 120))
		}
		fmt.Println()
	}
}

func truncate(s string, maxLen int) string {
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}
