// Package agent implements the metric collection subsystem for the FleetDeck probe.
// It uses gopsutil for cross-platform system telemetry.
package agent

import (
	"fmt"
	"net"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	psnet "github.com/shirou/gopsutil/v4/net"
)

// Snapshot holds a single collection cycle's data.
type Snapshot struct {
	Hostname     string
	LocalIP      string
	OS           string
	OSVersion    string
	Platform     string
	Architecture string
	CPUUsage     float64
	MemoryUsage  float64
	DiskUsage    float64
	NetworkBps   int64 // bytes/s since last snapshot, rx+tx
	Uptime       int64 // seconds
	CollectedAt  time.Time
}

// Collector gathers system metrics periodically.
type Collector struct {
	mu          sync.Mutex
	prevRx      uint64
	prevTx      uint64
	prevTime    time.Time
	initialized bool
}

// NewCollector creates a ready-to-use Collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Collect gathers the current system snapshot.
func (c *Collector) Collect() (*Snapshot, error) {
	osName, osVersion := osInfo()
	snap := &Snapshot{
		OS:           osName,
		OSVersion:    osVersion,
		Platform:     platformName(),
		Architecture: archName(),
		CollectedAt:  time.Now(),
	}

	// Hostname
	if h, err := os.Hostname(); err == nil {
		snap.Hostname = h
	}

	// Local IP
	snap.LocalIP = localIP()

	// CPU
	if pcts, err := cpu.Percent(500*time.Millisecond, false); err == nil && len(pcts) > 0 {
		snap.CPUUsage = pcts[0]
	}

	// Memory
	if vm, err := mem.VirtualMemory(); err == nil {
		snap.MemoryUsage = vm.UsedPercent
	}

	// Disk (largest mount or /)
	snap.DiskUsage = maxDiskUsage()

	// Uptime
	if up, err := host.Uptime(); err == nil {
		snap.Uptime = int64(up)
	}

	// Network throughput (delta-based)
	snap.NetworkBps = c.netBandwidth()

	return snap, nil
}

// ─── helpers ──────────────────────────────────────────────────────────────────

// osInfo returns the OS name and version, falling back to runtime.GOOS.
func osInfo() (name, version string) {
	info, err := host.Info()
	if err == nil && info.Platform != "" {
		return info.Platform, info.PlatformVersion // e.g., "centos", "7.9.2009"
	}
	return runtime.GOOS, ""
}

// platformName maps runtime.GOOS onto the inventory's platform enum.
func platformName() string {
	switch runtime.GOOS {
	case "darwin":
		return "macos"
	case "windows":
		return "windows"
	default:
		return "linux"
	}
}

// archName maps runtime.GOARCH onto the inventory's architecture enum.
func archName() string {
	switch runtime.GOARCH {
	case "amd64":
		return "x86_64"
	case "arm64":
		return "arm64"
	case "386":
		return "i386"
	default:
		return runtime.GOARCH
	}
}

// localIP returns the first non-loopback IPv4 address.
func localIP() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return ""
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
			continue
		}
		addrs, _ := iface.Addrs()
		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if ip != nil && ip.To4() != nil && !ip.IsLoopback() {
				return ip.String()
			}
		}
	}
	return ""
}

// maxDiskUsage returns the used percentage of the partition with highest usage.
func maxDiskUsage() float64 {
	partitions, err := disk.Partitions(false)
	if err != nil {
		return 0
	}
	var max float64
	for _, p := range partitions {
		usage, err := disk.Usage(p.Mountpoint)
		if err != nil {
			continue
		}
		if usage.UsedPercent > max {
			max = usage.UsedPercent
		}
	}
	return max
}

// netBandwidth computes total bytes/s since the last call using IOCounters deltas.
func (c *Collector) netBandwidth() int64 {
	stats, err := psnet.IOCounters(false) // aggregate all interfaces
	if err != nil || len(stats) == 0 {
		return 0
	}
	now := time.Now()
	curRx := stats[0].BytesRecv
	curTx := stats[0].BytesSent

	c.mu.Lock()
	defer c.mu.Unlock()

	var bps int64
	if c.initialized {
		dt := now.Sub(c.prevTime).Seconds()
		if dt > 0 {
			bps = int64(float64((curRx-c.prevRx)+(curTx-c.prevTx)) / dt)
			if bps < 0 {
				bps = 0 // counter reset (reboot)
			}
		}
	}

	c.prevRx = curRx
	c.prevTx = curTx
	c.prevTime = now
	c.initialized = true
	return bps
}

// String implements a compact human-readable form for logging.
func (s *Snapshot) String() string {
	return fmt.Sprintf("%s (%s) cpu=%.1f%% mem=%.1f%% disk=%.1f%%",
		s.Hostname, s.LocalIP, s.CPUUsage, s.MemoryUsage, s.DiskUsage)
}
