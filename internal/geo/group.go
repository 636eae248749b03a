// Package geo groups servers by location for map marker consolidation and
// computes the viewport needed to show them. It is pure computation over the
// caller's slice; nothing here performs I/O.
package geo

import (
	"fmt"

	"github.com/fleetdeck/fleetdeck/internal/models"
)

// Group is a cluster of servers sharing the same coordinate rounded to four
// decimal places (~11 m at the equator). Lat/Lng are the first member's raw
// coordinates, not an average, so a marker never drifts as members join.
type Group struct {
	Lat     float64         `json:"lat"`
	Lng     float64         `json:"lng"`
	Servers []models.Server `json:"servers"`
}

// GroupByLocation buckets servers by rounded coordinate. Servers missing
// either coordinate are skipped. Output order is the order in which each
// bucket was first seen, so repeated calls over the same input agree.
func GroupByLocation(servers []models.Server) []Group {
	index := make(map[string]int)
	var groups []Group
	for i := range servers {
		s := &servers[i]
		if s.Latitude == nil || s.Longitude == nil {
			continue
		}
		key := fmt.Sprintf("%.4f,%.4f", *s.Latitude, *s.Longitude)
		if gi, ok := index[key]; ok {
			groups[gi].Servers = append(groups[gi].Servers, *s)
			continue
		}
		index[key] = len(groups)
		groups = append(groups, Group{Lat: *s.Latitude, Lng: *s.Longitude, Servers: []models.Server{*s}})
	}
	return groups
}
