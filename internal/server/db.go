// Package server manages the FleetDeck database layer.
// It initializes GORM with SQLite and implements the inventory queries the
// API handlers call: paginated listing, CRUD, status transitions, the
// per-server activity log, and probe report ingestion.
package server

import (
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/fleetdeck/fleetdeck/internal/config"
	"github.com/fleetdeck/fleetdeck/internal/models"
)

var DB *gorm.DB

// log is the server package logger; set from InitDB.
var log zerolog.Logger

// ErrNotFound is returned when a server id does not exist.
var ErrNotFound = errors.New("server not found")

// InitDB opens the database and runs AutoMigrate.
func InitDB(cfg *config.Config, logger zerolog.Logger) error {
	log = logger

	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "sqlite", "":
		dialector = sqlite.Open(cfg.DBPath)
	default:
		return fmt.Errorf("unsupported db_driver %q (use 'sqlite')", cfg.DBDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	if err := db.AutoMigrate(&models.Server{}, &models.ServerActivity{}); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	DB = db
	log.Info().Str("driver", cfg.DBDriver).Str("path", cfg.DBPath).Msg("database opened")
	return nil
}

// ListServers returns one page of the inventory ordered by creation time
// descending, plus the total row count. page starts at 1.
func ListServers(page, pageSize int) (total int64, servers []models.Server, err error) {
	if err := DB.Model(&models.Server{}).Count(&total).Error; err != nil {
		return 0, nil, err
	}
	offset := (page - 1) * pageSize
	err = DB.Order("created_at desc").Offset(offset).Limit(pageSize).Find(&servers).Error
	if err != nil {
		return 0, nil, err
	}
	return total, servers, nil
}

// AllServers returns the full inventory ordered by creation time descending.
// The stats and map views aggregate over this snapshot.
func AllServers() ([]models.Server, error) {
	var servers []models.Server
	err := DB.Order("created_at desc").Find(&servers).Error
	return servers, err
}

// GetServer fetches a single server by id.
func GetServer(id string) (*models.Server, error) {
	var s models.Server
	if err := DB.First(&s, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// CreateServer inserts a new record and logs a "created" activity.
func CreateServer(s *models.Server) error {
	if err := DB.Create(s).Error; err != nil {
		return err
	}
	logActivity(s.ID, models.ActivityCreated, models.ActivitySuccess,
		fmt.Sprintf("Server %q created", s.Name))
	return nil
}

// UpdateServer applies the given column updates to an existing record and
// returns the fresh row. A failed update is logged with status "failed".
func UpdateServer(id string, updates map[string]any) (*models.Server, error) {
	s, err := GetServer(id)
	if err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return s, nil
	}
	if err := DB.Model(s).Updates(updates).Error; err != nil {
		logActivity(id, models.ActivityUpdate, models.ActivityFailed,
			fmt.Sprintf("Update of server %q failed", s.Name))
		return nil, err
	}
	logActivity(id, models.ActivityUpdate, models.ActivitySuccess,
		fmt.Sprintf("Server %q updated", s.Name))
	return GetServer(id)
}

// DeleteServer removes a record. The activity log entry survives the server
// so the log can explain the removal afterwards.
func DeleteServer(id string) error {
	s, err := GetServer(id)
	if err != nil {
		return err
	}
	if err := DB.Delete(&models.Server{}, "id = ?", id).Error; err != nil {
		logActivity(id, models.ActivityDelete, models.ActivityFailed,
			fmt.Sprintf("Deletion of server %q failed", s.Name))
		return err
	}
	logActivity(id, models.ActivityDelete, models.ActivitySuccess,
		fmt.Sprintf("Server %q deleted", s.Name))
	return nil
}

// ChangeStatus transitions a server to the given status. A transition into
// maintenance is logged as type "maintenance" with status "offline"; any
// other transition is a plain update. This mirrors how the dashboard has
// always recorded status changes.
func ChangeStatus(id string, status models.ServerStatus) (*models.Server, error) {
	s, err := GetServer(id)
	if err != nil {
		return nil, err
	}
	if err := DB.Model(s).Update("status", status).Error; err != nil {
		logActivity(id, models.ActivityUpdate, models.ActivityFailed,
			fmt.Sprintf("Status change of server %q failed", s.Name))
		return nil, err
	}

	actType, actStatus := models.ActivityUpdate, models.ActivitySuccess
	if status == models.StatusMaintenance {
		actType, actStatus = models.ActivityMaintenance, models.ActivityOffline
	}
	logActivity(id, actType, actStatus,
		fmt.Sprintf("Server %q set to %s", s.Name, status))

	return GetServer(id)
}

// ListActivities returns a server's activity log, newest first.
func ListActivities(serverID string) ([]models.ServerActivity, error) {
	var acts []models.ServerActivity
	err := DB.Where("server_id = ?", serverID).Order("created_at desc").Find(&acts).Error
	return acts, err
}

// ClearActivities deletes all log entries for a server.
func ClearActivities(serverID string) error {
	return DB.Delete(&models.ServerActivity{}, "server_id = ?", serverID).Error
}

// logActivity writes one activity row. Logging is best-effort: a failure to
// record an action never fails the action itself.
func logActivity(serverID string, t models.ActivityType, st models.ActivityStatus, msg string) {
	act := models.ServerActivity{ServerID: serverID, Type: t, Status: st, Message: msg}
	if err := DB.Create(&act).Error; err != nil {
		log.Warn().Err(err).Str("server_id", serverID).Msg("activity log write failed")
	}
}

// ProbeReport is the payload posted by the probe daemon on the data plane.
type ProbeReport struct {
	Name         string  `json:"name"`
	IPAddress    string  `json:"ip_address"`
	OS           string  `json:"os"`
	OSVersion    string  `json:"os_version"`
	Platform     string  `json:"platform"`
	Architecture string  `json:"architecture"`
	CPUUsage     float64 `json:"cpu_usage"`
	MemoryUsage  float64 `json:"memory_usage"`
	DiskUsage    float64 `json:"disk_usage"`
	NetworkUsage float64 `json:"network_usage"`
	Uptime       int64   `json:"uptime"`
}

// UpsertProbeReport updates the resource-usage fields of the server matching
// the reported IP, creating a minimal record for unknown IPs so a probe can
// join the fleet without a manual create.
func UpsertProbeReport(r ProbeReport) (*models.Server, error) {
	now := time.Now()

	var s models.Server
	result := DB.Where("ip_address = ?", r.IPAddress).First(&s)
	if result.Error != nil {
		if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, result.Error
		}
		s = models.Server{
			Name:         r.Name,
			IPAddress:    r.IPAddress,
			OS:           r.OS,
			OSVersion:    r.OSVersion,
			Platform:     models.ServerPlatform(r.Platform),
			Architecture: models.ServerArch(r.Architecture),
			Status:       models.StatusActive,
			CPUUsage:     r.CPUUsage,
			MemoryUsage:  r.MemoryUsage,
			DiskUsage:    r.DiskUsage,
			NetworkUsage: r.NetworkUsage,
			Uptime:       r.Uptime,
			LastCheck:    &now,
		}
		if err := DB.Create(&s).Error; err != nil {
			return nil, err
		}
		logActivity(s.ID, models.ActivityCreated, models.ActivitySuccess,
			fmt.Sprintf("Server %q auto-registered by probe", s.Name))
		log.Info().Str("ip", s.IPAddress).Str("id", s.ID).Msg("probe auto-registered server")
		return &s, nil
	}

	err := DB.Model(&s).Updates(map[string]any{
		"cpu_usage":     r.CPUUsage,
		"memory_usage":  r.MemoryUsage,
		"disk_usage":    r.DiskUsage,
		"network_usage": r.NetworkUsage,
		"uptime":        r.Uptime,
		"os":            r.OS,
		"os_version":    r.OSVersion,
		"last_check":    now,
	}).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}
