package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	portEnvVar  = "PORT"
	appNameVar  = "APP_NAME"
	envVar      = "ENV"
	logLevelVar = "LOG_LEVEL"
	siteURLVar  = "SITE_URL"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8000")
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Roleplay Desk")
}

func (EnvVars) GetEnv() string {
	return GetEnv(envVar, "DEV")
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelVar, "info")
}

// GetSiteURL returns the public URL of this application (e.g., "https://desk.example.com").
// It is sent to the identity provider as the target of email verification links.
func (EnvVars) GetSiteURL() string {
	return GetEnv(siteURLVar, "")
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetDuration parses a Go duration ("5s", "1m") and falls back to defaultValue when unset or invalid.
func GetDuration(envVar string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(envVar))
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

// GetInt parses an integer variable, falling back to defaultValue when unset or invalid.
func GetInt(envVar string, defaultValue int) int {
	n, err := strconv.Atoi(os.Getenv(envVar))
	if err != nil {
		return defaultValue
	}
	return n
}

// GetBool parses a boolean variable ("true", "1", ...), falling back to defaultValue.
func GetBool(envVar string, defaultValue bool) bool {
	b, err := strconv.ParseBool(os.Getenv(envVar))
	if err != nil {
		return defaultValue
	}
	return b
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
