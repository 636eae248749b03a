// Package agent implements the FleetDeck probe daemon.
// It periodically collects resource usage and reports it to the server
// data-plane (port 8787). Every outbound HTTP request carries:
// Authorization: Bearer <token>
package agent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/fleetdeck/fleetdeck/internal/config"
)

// ReportPayload is posted on every reporting cycle. The server matches the
// record by IP address and auto-registers unknown probes.
type ReportPayload struct {
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

// Run starts the probe main loop: collect a snapshot, post it, sleep, repeat.
//
// cfg.ProbeJoinAddr is the data-plane address, e.g. "192.168.1.1:8787".
// cfg.ProbeOutboundToken is sent in every request as "Authorization: Bearer <token>".
func Run(cfg *config.Config, log zerolog.Logger) error {
	base := fmt.Sprintf("http://%s", cfg.ProbeJoinAddr)
	collector := NewCollector()
	token := cfg.ProbeOutboundToken

	// Warmup: seed the bandwidth baseline before the first real report.
	_, _ = collector.Collect()

	interval := time.Duration(cfg.ProbeInterval) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Str("server", base).Dur("interval", interval).Msg("probe reporting started")

	report := func() {
		snap, err := collector.Collect()
		if err != nil {
			log.Warn().Err(err).Msg("collect failed")
			return
		}

		payload := ReportPayload{
			Name:         snap.Hostname,
			IPAddress:    snap.LocalIP,
			OS:           snap.OS,
			OSVersion:    snap.OSVersion,
			Platform:     snap.Platform,
			Architecture: snap.Architecture,
			CPUUsage:     snap.CPUUsage,
			MemoryUsage:  snap.MemoryUsage,
			DiskUsage:    snap.DiskUsage,
			NetworkUsage: float64(snap.NetworkBps),
			Uptime:       snap.Uptime,
		}
		if cfg.ProbeServerName != "" {
			payload.Name = cfg.ProbeServerName
		}

		if err := postJSON(base+"/api/probe/report", token, payload); err != nil {
			log.Warn().Err(err).Msg("report failed")
			return
		}
		log.Debug().Str("snapshot", snap.String()).Msg("reported")
	}

	report()
	for range ticker.C {
		report()
	}
	return nil
}

// postJSON sends v as JSON via HTTP POST with the Bearer token in the Authorization header.
// This ensures every data-plane request is authenticated.
func postJSON(url, bearerToken string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+bearerToken)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("server rejected token (401) — check --token or probe_token in config")
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}
	return nil
}
