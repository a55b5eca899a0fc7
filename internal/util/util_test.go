package util

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestCleanOldLogsKeepsNewest(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour)
	for i, name := range []string{"a.log", "b.log", "c.log", "keep.txt"} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, nil, 0644); err != nil {
			t.Fatal(err)
		}
		mod := base.Add(time.Duration(i) * time.Minute)
		if err := os.Chtimes(path, mod, mod); err != nil {
			t.Fatal(err)
		}
	}

	cleanOldLogs(dir, 2)

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	if got := strings.Join(names, ","); got != "b.log,c.log,keep.txt" {
		t.Errorf("remaining files = %s", got)
	}
}

func TestInitLoggerCreatesFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	if err := InitLogger(LogConfig{Level: "debug", Directory: dir, MaxBackups: 3}); err != nil {
		t.Fatalf("InitLogger failed: %v", err)
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "simlink_*.log"))
	if len(matches) != 1 {
		t.Errorf("expected one log file, got %v", matches)
	}
}

func TestHardwareDigest(t *testing.T) {
	a := SystemInfo{HostID: "abc"}.HardwareDigest()
	b := SystemInfo{Hostname: "abc"}.HardwareDigest()
	if a != b || len(a) != 32 {
		t.Errorf("digests %q %q", a, b)
	}
}

func TestPlatformLoginCode(t *testing.T) {
	tests := []struct {
		goos     string
		expected string
	}{
		{goos: "windows", expected: "Win"},
		{goos: "darwin", expected: "Mac"},
		{goos: "linux", expected: "Lnx"},
		{goos: "freebsd", expected: "Lnx"},
	}
	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			if got := PlatformFor(tt.goos).LoginCode(); got != tt.expected {
				t.Errorf("LoginCode = %q, want %q", got, tt.expected)
			}
		})
	}
	if PlatformFor("plan9") != PlatformUnknown {
		t.Error("plan9 should be unknown")
	}
}

func TestProbeSystem(t *testing.T) {
	info := ProbeSystem(context.Background())
	if info.Platform != GetPlatform() || info.CPUCores < 1 || info.Architecture == "" {
		t.Errorf("info = %+v", info)
	}
}
