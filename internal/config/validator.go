package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation error [%s]: %s", e.Field, e.Message)
}

// ValidationResult holds the results of configuration validation.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// IsValid returns true if there are no validation errors.
func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// AddError adds a validation error.
func (r *ValidationResult) AddError(field, message string) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Message: message})
}

// AddWarning adds a validation warning.
func (r *ValidationResult) AddWarning(field, message string) {
	r.Warnings = append(r.Warnings, ValidationError{Field: field, Message: message})
}

// Validate checks every section of cfg.
func Validate(cfg *Config) *ValidationResult {
	result := &ValidationResult{}

	validateLogin(cfg.GetLogin(), result)
	validateCircuit(cfg.GetCircuit(), result)
	validateAPI(cfg.GetAPI(), result)
	validateMQTT(cfg.GetMQTT(), result)

	if t := cfg.GetTranscript(); t.Enabled {
		if strings.TrimSpace(t.Path) == "" {
			result.AddError("transcript.path", "transcript path is required when enabled")
		}
		if t.RetentionDays < 0 {
			result.AddError("transcript.retention_days", "retention cannot be negative")
		} else if t.RetentionDays == 0 {
			result.AddWarning("transcript.retention_days", "transcript is never pruned")
		}
	}
	if l := cfg.GetLogging(); l.MaxBackups < 0 {
		result.AddError("logging.max_backups", "max backups cannot be negative")
	}

	return result
}

func validateLogin(l LoginConfig, result *ValidationResult) {
	if strings.TrimSpace(l.FirstName) == "" {
		result.AddError("login.first_name", "first name is required")
	}
	if strings.TrimSpace(l.LastName) == "" {
		result.AddWarning("login.last_name", "last name is empty, \"Resident\" is usual for newer accounts")
	}
	u, err := url.Parse(l.URI)
	if err != nil || u.Host == "" {
		result.AddError("login.uri", fmt.Sprintf("invalid login URI: %q", l.URI))
	} else if u.Scheme != "https" {
		result.AddWarning("login.uri", "login URI is not https, the password digest travels in clear")
	}
}

func validateCircuit(c CircuitConfig, result *ValidationResult) {
	if c.PollIntervalMs <= 0 {
		result.AddError("circuit.poll_interval_ms", "poll interval must be positive")
	} else if c.PollIntervalMs > 2000 {
		result.AddWarning("circuit.poll_interval_ms", "poll interval above 2s delays console input")
	}
	if c.IntentQueueSize < 1 {
		result.AddError("circuit.intent_queue_size", "intent queue must hold at least 1 entry")
	}
	if c.DrawDistance <= 0 {
		result.AddError("circuit.draw_distance", "draw distance must be positive")
	}
	if c.IdleTimeoutSec < 0 {
		result.AddError("circuit.idle_timeout_sec", "idle timeout cannot be negative")
	} else if c.IdleTimeoutSec == 0 {
		result.AddWarning("circuit.idle_timeout_sec", "idle detection is disabled")
	}
	if c.ReceiveBufferBytes < 0 {
		result.AddError("circuit.receive_buffer_bytes", "receive buffer cannot be negative")
	}
}

func validateAPI(a APIConfig, result *ValidationResult) {
	if !a.Enabled {
		return
	}
	if strings.TrimSpace(a.Listen) == "" {
		result.AddError("api.listen", "listen address is required when the API is enabled")
		return
	}
	host, _, err := net.SplitHostPort(a.Listen)
	if err != nil {
		result.AddError("api.listen", fmt.Sprintf("invalid listen address: %v", err))
		return
	}
	if a.RateLimitRPS < 0 {
		result.AddError("api.rate_limit_rps", "rate limit cannot be negative")
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		result.AddWarning("api.listen", "API listens on all interfaces and has no authentication")
	}
}

func validateMQTT(m MQTTConfig, result *ValidationResult) {
	if !m.Enabled {
		return
	}
	if strings.TrimSpace(m.BrokerURL) == "" {
		result.AddError("mqtt.broker_url", "MQTT broker URL is required when enabled")
	}
	if m.Port < 1 || m.Port > 65535 {
		result.AddError("mqtt.port", "invalid MQTT port")
	}
	if strings.TrimSpace(m.TopicPrefix) == "" {
		result.AddWarning("mqtt.topic_prefix", "empty topic prefix publishes at the broker root")
	}
}
