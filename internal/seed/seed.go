// Package seed generates a demo server inventory for local development.
package seed

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/fleetdeck/fleetdeck/internal/models"
)

type site struct {
	country, region, city string
	lat, lng              float64
}

// sites are datacenter locations the generator draws from.
var sites = []site{
	{"US", "Virginia", "Ashburn", 39.0438, -77.4874},
	{"US", "Oregon", "The Dalles", 45.5946, -121.1787},
	{"DE", "Hesse", "Frankfurt", 50.1109, 8.6821},
	{"NL", "North Holland", "Amsterdam", 52.3676, 4.9041},
	{"SG", "Central", "Singapore", 1.3521, 103.8198},
	{"JP", "Tokyo", "Tokyo", 35.6762, 139.6503},
	{"BR", "São Paulo", "São Paulo", -23.5505, -46.6333},
	{"AU", "NSW", "Sydney", -33.8688, 151.2093},
	{"VN", "Hanoi", "Hanoi", 21.0285, 105.8542},
}

var platforms = []models.ServerPlatform{models.PlatformLinux, models.PlatformLinux, models.PlatformLinux, models.PlatformWindows, models.PlatformMacOS}
var archs = []models.ServerArch{models.ArchX8664, models.ArchX8664, models.ArchARM64, models.ArchI386}
var statuses = []models.ServerStatus{models.StatusActive, models.StatusActive, models.StatusActive, models.StatusInactive, models.StatusMaintenance}

var osByPlatform = map[models.ServerPlatform][][2]string{
	models.PlatformLinux:   {{"ubuntu", "22.04"}, {"debian", "12"}, {"rocky", "9.3"}, {"alpine", "3.19"}},
	models.PlatformWindows: {{"windows-server", "2022"}, {"windows-server", "2019"}},
	models.PlatformMacOS:   {{"macos", "14.4"}},
}

// Run inserts n generated servers with a "created" activity each.
// Creation times are spread over the past 60 days so the time-window stats
// have something to show.
func Run(db *gorm.DB, n int, log zerolog.Logger) error {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	now := time.Now()

	for i := 0; i < n; i++ {
		loc := sites[rng.Intn(len(sites))]
		platform := platforms[rng.Intn(len(platforms))]
		osPair := osByPlatform[platform][rng.Intn(len(osByPlatform[platform]))]

		// Jitter coordinates so same-site servers still cluster at 4 decimals.
		lat := loc.lat + rng.Float64()*0.00004
		lng := loc.lng + rng.Float64()*0.00004

		s := models.Server{
			Name:         fmt.Sprintf("%s-node-%02d", loc.city, i+1),
			IPAddress:    fmt.Sprintf("10.%d.%d.%d", rng.Intn(255), rng.Intn(255), 1+rng.Intn(254)),
			Country:      loc.country,
			Region:       loc.region,
			City:         loc.city,
			OS:           osPair[0],
			OSVersion:    osPair[1],
			Platform:     platform,
			Architecture: archs[rng.Intn(len(archs))],
			Status:       statuses[rng.Intn(len(statuses))],
			Latitude:     &lat,
			Longitude:    &lng,
			CPUUsage:     rng.Float64() * 100,
			MemoryUsage:  rng.Float64() * 100,
			DiskUsage:    rng.Float64() * 100,
			Uptime:       int64(rng.Intn(90 * 24 * 3600)),
			CreatedAt:    now.Add(-time.Duration(rng.Intn(60*24)) * time.Hour),
		}

		if err := db.Create(&s).Error; err != nil {
			return fmt.Errorf("seeding server %d: %w", i+1, err)
		}
		act := models.ServerActivity{
			ServerID: s.ID,
			Type:     models.ActivityCreated,
			Status:   models.ActivitySuccess,
			Message:  fmt.Sprintf("Server %q created", s.Name),
		}
		if err := db.Create(&act).Error; err != nil {
			return fmt.Errorf("seeding activity for server %d: %w", i+1, err)
		}
	}

	log.Info().Int("servers", n).Msg("demo inventory seeded")
	return nil
}
