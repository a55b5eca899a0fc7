package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

// RunSetupWizard asks for the account and optional integrations on first run
// and saves the result.
func RunSetupWizard(cfg *Config, in io.Reader, out io.Writer) error {
	reader := bufio.NewReader(in)

	fmt.Fprintln(out, "simlink first run setup")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "-- Account --")

	login := cfg.GetLogin()
	login.FirstName = promptString(reader, out, "First name", login.FirstName)
	login.LastName = promptString(reader, out, "Last name", defaultString(login.LastName, "Resident"))
	login.URI = promptString(reader, out, "Login URI", login.URI)

	fmt.Fprintln(out)
	fmt.Fprintln(out, "-- Integrations --")

	api := cfg.GetAPI()
	api.Enabled = promptBool(reader, out, "Enable local HTTP API", api.Enabled)
	if api.Enabled {
		api.Listen = promptString(reader, out, "API listen address", api.Listen)
	}

	mqtt := cfg.GetMQTT()
	mqtt.Enabled = promptBool(reader, out, "Publish chat and IM to MQTT", mqtt.Enabled)
	if mqtt.Enabled {
		mqtt.BrokerURL = promptString(reader, out, "MQTT broker host", mqtt.BrokerURL)
		mqtt.Port = promptInt(reader, out, "MQTT broker port", mqtt.Port)
	}

	cfg.mu.Lock()
	cfg.Login = login
	cfg.API = api
	cfg.MQTT = mqtt
	cfg.mu.Unlock()

	result := Validate(cfg)
	if !result.IsValid() {
		fmt.Fprintln(out, "\nConfiguration has errors:")
		for _, e := range result.Errors {
			fmt.Fprintf(out, "  - [%s] %s\n", e.Field, e.Message)
		}
		return fmt.Errorf("configuration validation failed")
	}
	for _, w := range result.Warnings {
		log.Warn().Str("field", w.Field).Msg(w.Message)
	}

	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Fprintf(out, "\nConfiguration saved to %s\n\n", cfg.Path())
	return nil
}

// ResolvePassword returns the account password from PasswordEnv, or prompts
// for it without echo when stdin is a terminal.
func ResolvePassword(prompt string) (string, error) {
	if pw := os.Getenv(PasswordEnv); pw != "" {
		return pw, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("no password: set %s or run from a terminal", PasswordEnv)
	}

	fmt.Fprintf(os.Stderr, "%s: ", prompt)
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if len(pw) == 0 {
		return "", fmt.Errorf("empty password")
	}
	return string(pw), nil
}

func defaultString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func promptString(reader *bufio.Reader, out io.Writer, prompt string, defaultVal string) string {
	if defaultVal != "" {
		fmt.Fprintf(out, "  %s [%s]: ", prompt, defaultVal)
	} else {
		fmt.Fprintf(out, "  %s: ", prompt)
	}

	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}

func promptInt(reader *bufio.Reader, out io.Writer, prompt string, defaultVal int) int {
	fmt.Fprintf(out, "  %s [%d]: ", prompt, defaultVal)

	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}

	val, err := strconv.Atoi(input)
	if err != nil {
		fmt.Fprintf(out, "    Invalid number, using default: %d\n", defaultVal)
		return defaultVal
	}
	return val
}

func promptBool(reader *bufio.Reader, out io.Writer, prompt string, defaultVal bool) bool {
	defaultStr := "no"
	if defaultVal {
		defaultStr = "yes"
	}

	fmt.Fprintf(out, "  %s [%s]: ", prompt, defaultStr)

	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(strings.ToLower(input))

	if input == "" {
		return defaultVal
	}

	return input == "yes" || input == "y" || input == "true" || input == "1"
}
