package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetdeck/fleetdeck/internal/models"
)

func located(name string, lat, lng float64) models.Server {
	return models.Server{Name: name, Latitude: &lat, Longitude: &lng}
}

func TestGroupByLocation_Empty(t *testing.T) {
	assert.Empty(t, GroupByLocation(nil))
	assert.Empty(t, GroupByLocation([]models.Server{}))
}

func TestGroupByLocation_SameRoundedCoordinateMerges(t *testing.T) {
	servers := []models.Server{
		located("a", 10.00001, 20.00002),
		located("b", 10.00004, 20.00001), // rounds to the same (10.0000, 20.0000)
		located("c", 10.001, 20.0),       // rounds to 10.0010: different group
	}

	groups := GroupByLocation(servers)

	require.Len(t, groups, 2)
	assert.Len(t, groups[0].Servers, 2)
	assert.Len(t, groups[1].Servers, 1)
	assert.Equal(t, "c", groups[1].Servers[0].Name)
}

// The group keeps the first member's raw coordinates; later members never
// shift the marker.
func TestGroupByLocation_RepresentativeIsFirstMember(t *testing.T) {
	servers := []models.Server{
		located("a", 10.00001, 20.00002),
		located("b", 10.00004, 20.00001),
	}

	groups := GroupByLocation(servers)

	require.Len(t, groups, 1)
	assert.Equal(t, 10.00001, groups[0].Lat)
	assert.Equal(t, 20.00002, groups[0].Lng)
}

// Servers without coordinates are silently skipped. This is deliberate,
// inherited dashboard behavior: no sentinel group collects them.
func TestGroupByLocation_MissingCoordinatesSkipped(t *testing.T) {
	lat := 10.0
	servers := []models.Server{
		{Name: "no-coords"},
		{Name: "lat-only", Latitude: &lat},
		located("full", 10.0, 20.0),
	}

	groups := GroupByLocation(servers)

	require.Len(t, groups, 1)
	assert.Equal(t, "full", groups[0].Servers[0].Name)
}

// Every server with both coordinates lands in exactly one group.
func TestGroupByLocation_PartitionsInput(t *testing.T) {
	servers := []models.Server{
		located("a", 10.0, 20.0),
		located("b", 10.0, 20.0),
		located("c", -33.8688, 151.2093),
		located("d", 52.3676, 4.9041),
		{Name: "unlocated"},
	}

	groups := GroupByLocation(servers)

	members := 0
	for _, g := range groups {
		members += len(g.Servers)
	}
	assert.Equal(t, 4, members)
}

func TestGroupByLocation_DeterministicOrder(t *testing.T) {
	servers := []models.Server{
		located("a", 1.0, 1.0),
		located("b", 2.0, 2.0),
		located("c", 3.0, 3.0),
	}

	first := GroupByLocation(servers)
	second := GroupByLocation(servers)

	assert.Equal(t, first, second)
}
