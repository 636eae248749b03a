package seed

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/fleetdeck/fleetdeck/internal/models"
)

func TestRun(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Server{}, &models.ServerActivity{}))

	require.NoError(t, Run(db, 10, zerolog.Nop()))

	var servers []models.Server
	require.NoError(t, db.Find(&servers).Error)
	require.Len(t, servers, 10)

	for _, s := range servers {
		assert.NotEmpty(t, s.ID)
		assert.NotEmpty(t, s.Name)
		assert.NotEmpty(t, s.Country)
		require.NotNil(t, s.Latitude)
		require.NotNil(t, s.Longitude)
		assert.False(t, s.CreatedAt.IsZero())
	}

	var activities int64
	require.NoError(t, db.Model(&models.ServerActivity{}).Count(&activities).Error)
	assert.Equal(t, int64(10), activities)
}
