// Package models defines GORM data models for FleetDeck.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ServerStatus is the lifecycle state of an inventoried server.
type ServerStatus string

const (
	StatusActive      ServerStatus = "active"
	StatusInactive    ServerStatus = "inactive"
	StatusMaintenance ServerStatus = "maintenance"
)

// ServerPlatform is the coarse OS family of a server.
type ServerPlatform string

const (
	PlatformLinux   ServerPlatform = "linux"
	PlatformWindows ServerPlatform = "windows"
	PlatformMacOS   ServerPlatform = "macos"
)

// ServerArch is the CPU architecture of a server.
type ServerArch string

const (
	ArchX8664 ServerArch = "x86_64"
	ArchARM64 ServerArch = "arm64"
	ArchI386  ServerArch = "i386"
)

// Server represents one inventoried machine.
//
// Country, OS and similar categorical fields are open strings, not closed
// enums: the aggregation layer groups by whatever values are observed.
// Latitude/Longitude are pointers because a record without a known location
// is legal; such records are skipped by the map grouping.
type Server struct {
	ID string `gorm:"primaryKey;size:36" json:"id"`

	// Identity
	Name      string `gorm:"index;not null" json:"name"`
	IPAddress string `gorm:"index" json:"ip_address"`

	// Classification
	Country      string         `gorm:"index" json:"country"`
	OS           string         `json:"os"`
	OSVersion    string         `json:"os_version"`
	Platform     ServerPlatform `gorm:"index" json:"platform"`
	Architecture ServerArch     `json:"architecture"`
	Status       ServerStatus   `gorm:"index;default:'inactive'" json:"status"`

	// Location
	Region       string   `json:"region"`
	City         string   `json:"city"`
	ZipCode      string   `json:"zip_code"`
	ISP          string   `json:"isp"`
	ASN          string   `json:"asn"`
	Organization string   `json:"organization"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`

	// Resource usage (percent 0-100; populated by the probe)
	CPUUsage     float64 `json:"cpu_usage"`
	MemoryUsage  float64 `json:"memory_usage"`
	DiskUsage    float64 `json:"disk_usage"`
	NetworkUsage float64 `json:"network_usage"`

	// Lifecycle
	Uptime    int64      `json:"uptime"` // seconds
	LastCheck *time.Time `json:"last_check,omitempty"`
	CreatedAt time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// BeforeCreate assigns a UUID when none was supplied.
func (s *Server) BeforeCreate(_ *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// ActivityType classifies an entry in the per-server activity log.
type ActivityType string

const (
	ActivityStart       ActivityType = "start"
	ActivityStop        ActivityType = "stop"
	ActivityRestart     ActivityType = "restart"
	ActivityUpdate      ActivityType = "update"
	ActivityDelete      ActivityType = "delete"
	ActivityCreated     ActivityType = "created"
	ActivityMaintenance ActivityType = "maintenance"
)

// ActivityStatus is the recorded outcome of a logged action.
type ActivityStatus string

const (
	ActivitySuccess ActivityStatus = "success"
	ActivityFailed  ActivityStatus = "failed"
	ActivityOffline ActivityStatus = "offline"
	ActivityRemoved ActivityStatus = "removed"
)

// ServerActivity is one row in the CRUD activity log.
// Rows survive deletion of their server so the log can explain what happened.
type ServerActivity struct {
	ID        string         `gorm:"primaryKey;size:36" json:"id"`
	ServerID  string         `gorm:"index;not null" json:"server_id"`
	Type      ActivityType   `json:"type"`
	Status    ActivityStatus `json:"status"`
	Message   string         `json:"message"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
}

// BeforeCreate assigns a UUID when none was supplied.
func (a *ServerActivity) BeforeCreate(_ *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
