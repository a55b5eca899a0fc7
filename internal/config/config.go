// Package config handles configuration loading, validation, and persistence
// for the simlink client.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	DefaultConfigDir  = "config"
	DefaultConfigFile = "config.json"
	DefaultLoginURI   = "https://login.agni.lindenlab.com/cgi-bin/login.cgi"
	DefaultAPIListen  = "127.0.0.1:5080"

	// PasswordEnv names the environment variable consulted before prompting.
	PasswordEnv = "SIMLINK_PASSWORD"
)

// Config is the root configuration structure for simlink.
type Config struct {
	mu   sync.RWMutex
	path string

	Login      LoginConfig      `json:"login"`
	Circuit    CircuitConfig    `json:"circuit"`
	Catalog    CatalogConfig    `json:"catalog"`
	API        APIConfig        `json:"api"`
	MQTT       MQTTConfig       `json:"mqtt"`
	Transcript TranscriptConfig `json:"transcript"`
	Logging    LoggingConfig    `json:"logging"`
}

// LoginConfig identifies the account and viewer presented to the login
// service. The password is never stored.
type LoginConfig struct {
	URI       string `json:"uri"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Start     string `json:"start"`
	Channel   string `json:"channel"`
	Version   string `json:"version"`
}

// CircuitConfig tunes the UDP session.
type CircuitConfig struct {
	IdleTimeoutSec     int     `json:"idle_timeout_sec"`
	PollIntervalMs     int     `json:"poll_interval_ms"`
	IntentQueueSize    int     `json:"intent_queue_size"`
	ReceiveBufferBytes int     `json:"receive_buffer_bytes"`
	DrawDistance       float32 `json:"draw_distance"`
}

// IdleTimeout returns the silence period after which an idle event fires.
func (c CircuitConfig) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutSec) * time.Second
}

// PollInterval returns the receive deadline used between intent drains.
func (c CircuitConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// CatalogConfig selects the message template. An empty path uses the
// template built into the binary.
type CatalogConfig struct {
	TemplatePath string `json:"template_path"`
}

// APIConfig holds local HTTP API settings.
type APIConfig struct {
	Enabled        bool     `json:"enabled"`
	Listen         string   `json:"listen"`
	AllowedOrigins []string `json:"allowed_origins"`
	RateLimitRPS   int      `json:"rate_limit_rps"`
}

// MQTTConfig holds MQTT bridge settings.
type MQTTConfig struct {
	Enabled     bool   `json:"enabled"`
	BrokerURL   string `json:"broker_url"`
	Port        int    `json:"port"`
	UseTLS      bool   `json:"use_tls"`
	CertFile    string `json:"cert_file"`
	KeyFile     string `json:"key_file"`
	CAFile      string `json:"ca_file"`
	ClientID    string `json:"client_id"`
	TopicPrefix string `json:"topic_prefix"`
}

// TranscriptConfig holds chat/IM history settings.
type TranscriptConfig struct {
	Enabled       bool   `json:"enabled"`
	Path          string `json:"path"`
	RetentionDays int    `json:"retention_days"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `json:"level"`
	Directory  string `json:"directory"`
	MaxBackups int    `json:"max_backups"`
	Console    bool   `json:"console"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Login: LoginConfig{
			URI:     DefaultLoginURI,
			Start:   "last",
			Channel: "simlink",
			Version: "0.1.0",
		},
		Circuit: CircuitConfig{
			IdleTimeoutSec:     30,
			PollIntervalMs:     250,
			IntentQueueSize:    32,
			ReceiveBufferBytes: 1 << 20,
			DrawDistance:       64,
		},
		API: APIConfig{
			Enabled:        false,
			Listen:         DefaultAPIListen,
			AllowedOrigins: []string{"http://localhost:3000"},
			RateLimitRPS:   20,
		},
		MQTT: MQTTConfig{
			Enabled:     false,
			Port:        1883,
			TopicPrefix: "simlink",
		},
		Transcript: TranscriptConfig{
			Enabled:       true,
			Path:          "data/transcript.db",
			RetentionDays: 30,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Directory:  "logs",
			MaxBackups: 5,
			Console:    true,
		},
	}
}

// Load reads config.json from configDir. A missing file is created from the
// defaults; an existing one is overlaid on the defaults and written back so
// fields added since it was saved become visible.
func Load(configDir string) (*Config, error) {
	configPath := filepath.Join(configDir, DefaultConfigFile)

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Info().Str("path", configPath).Msg("config file not found, creating default")
			cfg := DefaultConfig()
			cfg.path = configPath
			if saveErr := cfg.Save(); saveErr != nil {
				return nil, fmt.Errorf("failed to save default config: %w", saveErr)
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	cfg.path = configPath
	log.Info().Str("path", configPath).Msg("configuration loaded")

	if saveErr := cfg.Save(); saveErr != nil {
		log.Warn().Err(saveErr).Msg("failed to re-save config with updated defaults")
	}

	return cfg, nil
}

// Save writes the current configuration to disk.
func (c *Config) Save() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(c.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	log.Debug().Str("path", c.path).Msg("configuration saved")
	return nil
}

// GetLogin returns a copy of the login section.
func (c *Config) GetLogin() LoginConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Login
}

// SetLogin replaces the login section.
func (c *Config) SetLogin(l LoginConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Login = l
}

// GetCircuit returns a copy of the circuit section.
func (c *Config) GetCircuit() CircuitConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Circuit
}

func (c *Config) GetCatalog() CatalogConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Catalog
}

func (c *Config) GetAPI() APIConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	api := c.API
	api.AllowedOrigins = append([]string(nil), c.API.AllowedOrigins...)
	return api
}

func (c *Config) GetMQTT() MQTTConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.MQTT
}

func (c *Config) GetTranscript() TranscriptConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Transcript
}

func (c *Config) GetLogging() LoggingConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Logging
}

// Path returns the config file path.
func (c *Config) Path() string {
	return c.path
}

// IsFirstRun returns true if no account has been configured yet.
func (c *Config) IsFirstRun() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Login.FirstName == "" || c.Login.LastName == ""
}
