package util

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

const probeTimeout = 3 * time.Second

// Platform is the operating system family reported to the login service.
type Platform string

const (
	PlatformWindows Platform = "windows"
	PlatformLinux   Platform = "linux"
	PlatformDarwin  Platform = "darwin"
	PlatformUnknown Platform = "unknown"
)

// PlatformFor maps a GOOS value to a Platform.
func PlatformFor(goos string) Platform {
	switch p := Platform(goos); p {
	case PlatformWindows, PlatformLinux, PlatformDarwin:
		return p
	default:
		return PlatformUnknown
	}
}

// GetPlatform returns the platform this binary was built for.
func GetPlatform() Platform {
	return PlatformFor(runtime.GOOS)
}

// LoginCode returns the three letter platform code the login service expects.
func (p Platform) LoginCode() string {
	switch p {
	case PlatformWindows:
		return "Win"
	case PlatformDarwin:
		return "Mac"
	default:
		return "Lnx"
	}
}

// SystemInfo describes the host. It feeds the login request (platform and
// hardware digest) and the metadata attached to MQTT messages.
type SystemInfo struct {
	Platform     Platform `json:"platform"`
	Hostname     string   `json:"hostname"`
	OS           string   `json:"os"`
	Architecture string   `json:"architecture"`
	CPUModel     string   `json:"cpu_model"`
	CPUCores     int      `json:"cpu_cores"`
	TotalMemory  uint64   `json:"total_memory_mb"`
	HostID       string   `json:"-"`
}

// GetSystemInfo probes the host with a short timeout. Fields gopsutil cannot
// read are left empty.
func GetSystemInfo() SystemInfo {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()
	return ProbeSystem(ctx)
}

// ProbeSystem gathers SystemInfo, giving up on slow probes when ctx ends.
func ProbeSystem(ctx context.Context) SystemInfo {
	info := SystemInfo{
		Platform:     GetPlatform(),
		Architecture: runtime.GOARCH,
		CPUCores:     runtime.NumCPU(),
	}
	info.Hostname, _ = os.Hostname()

	if hi, err := host.InfoWithContext(ctx); err == nil {
		info.OS = strings.TrimSpace(hi.Platform + " " + hi.PlatformVersion)
		info.HostID = hi.HostID
		if info.Hostname == "" {
			info.Hostname = hi.Hostname
		}
	}
	if cpus, err := cpu.InfoWithContext(ctx); err == nil && len(cpus) > 0 {
		info.CPUModel = cpus[0].ModelName
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		info.TotalMemory = vm.Total >> 20
	}
	return info
}

// HardwareDigest returns a stable anonymised machine id: the hex MD5 of the
// host id, or of the hostname when no host id is available.
func (s SystemInfo) HardwareDigest() string {
	seed := s.HostID
	if seed == "" {
		seed = s.Hostname
	}
	sum := md5.Sum([]byte(seed))
	return hex.EncodeToString(sum[:])
}
