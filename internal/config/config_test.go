package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadCreatesDefault(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, DefaultConfigFile)); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if cfg.GetCircuit().PollIntervalMs != 250 {
		t.Errorf("PollIntervalMs = %d, want 250", cfg.GetCircuit().PollIntervalMs)
	}
	if !cfg.IsFirstRun() {
		t.Error("fresh config should be a first run")
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	partial := `{"login": {"first_name": "Wulfie", "last_name": "Reanimator"}, "circuit": {"idle_timeout_sec": 5}}`
	if err := os.WriteFile(filepath.Join(dir, DefaultConfigFile), []byte(partial), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := cfg.GetLogin().FirstName; got != "Wulfie" {
		t.Errorf("FirstName = %q", got)
	}
	if got := cfg.GetCircuit().IdleTimeoutSec; got != 5 {
		t.Errorf("IdleTimeoutSec = %d, want 5", got)
	}
	if got := cfg.GetCircuit().IntentQueueSize; got != 32 {
		t.Errorf("IntentQueueSize = %d, want default 32", got)
	}
	if cfg.IsFirstRun() {
		t.Error("configured account reported as first run")
	}

	saved, err := os.ReadFile(filepath.Join(dir, DefaultConfigFile))
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(saved, &m); err != nil {
		t.Fatal(err)
	}
	if _, ok := m["transcript"]; !ok {
		t.Error("re-saved config missing default sections")
	}
}

func TestLoadRejectsInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, DefaultConfigFile), []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectField string
	}{
		{name: "Valid", mutate: func(c *Config) {}},
		{name: "Missing first name", mutate: func(c *Config) { c.Login.FirstName = "" }, expectField: "login.first_name"},
		{name: "Bad login URI", mutate: func(c *Config) { c.Login.URI = "::" }, expectField: "login.uri"},
		{name: "Zero poll interval", mutate: func(c *Config) { c.Circuit.PollIntervalMs = 0 }, expectField: "circuit.poll_interval_ms"},
		{name: "Zero queue", mutate: func(c *Config) { c.Circuit.IntentQueueSize = 0 }, expectField: "circuit.intent_queue_size"},
		{name: "Zero draw distance", mutate: func(c *Config) { c.Circuit.DrawDistance = 0 }, expectField: "circuit.draw_distance"},
		{name: "API without listen", mutate: func(c *Config) { c.API.Enabled = true; c.API.Listen = "" }, expectField: "api.listen"},
		{name: "MQTT without broker", mutate: func(c *Config) { c.MQTT.Enabled = true }, expectField: "mqtt.broker_url"},
		{name: "Transcript without path", mutate: func(c *Config) { c.Transcript.Path = "" }, expectField: "transcript.path"},
		{name: "Negative retention", mutate: func(c *Config) { c.Transcript.RetentionDays = -1 }, expectField: "transcript.retention_days"},
		{name: "Negative rate limit", mutate: func(c *Config) { c.API.Enabled = true; c.API.RateLimitRPS = -1 }, expectField: "api.rate_limit_rps"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Login.FirstName = "Test"
			cfg.Login.LastName = "Resident"
			tt.mutate(cfg)

			result := Validate(cfg)
			if tt.expectField == "" {
				if !result.IsValid() {
					t.Fatalf("expected valid config, got %v", result.Errors)
				}
				return
			}
			found := false
			for _, e := range result.Errors {
				if e.Field == tt.expectField {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error on %s, got %v", tt.expectField, result.Errors)
			}
		})
	}
}

func TestRunSetupWizard(t *testing.T) {
	cfg := DefaultConfig()
	cfg.path = filepath.Join(t.TempDir(), DefaultConfigFile)

	in := strings.NewReader("Wulfie\n\n\nyes\n\nno\n")
	var out bytes.Buffer
	if err := RunSetupWizard(cfg, in, &out); err != nil {
		t.Fatalf("RunSetupWizard failed: %v\n%s", err, out.String())
	}

	login := cfg.GetLogin()
	if login.FirstName != "Wulfie" || login.LastName != "Resident" {
		t.Errorf("login = %+v", login)
	}
	if api := cfg.GetAPI(); !api.Enabled || api.Listen != DefaultAPIListen {
		t.Errorf("api = %+v", api)
	}
	if _, err := os.Stat(cfg.Path()); err != nil {
		t.Errorf("config not saved: %v", err)
	}
}

func TestResolvePasswordFromEnv(t *testing.T) {
	t.Setenv(PasswordEnv, "hunter2")
	pw, err := ResolvePassword("Password")
	if err != nil || pw != "hunter2" {
		t.Errorf("ResolvePassword = %q, %v", pw, err)
	}
}
