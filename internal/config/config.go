package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
)

type Config interface {
	EnvConfig
	CorsConfig
	SupabaseConfig
	SessionConfig
	LLMConfig
	StorageConfig
	DatabaseConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetSiteURL() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Supabase
	Session
	LLM
	Storage
	Database
}

// DefaultEnvFile is the dotenv file read before the environment is inspected.
const DefaultEnvFile = ".env.local"

// Load reads KEY=value pairs from the given dotenv files into the process environment.
// Missing files are ignored; variables already present in the environment win.
func Load(files ...string) error {
	for _, f := range files {
		if f == "" {
			continue
		}
		if err := godotenv.Load(f); err != nil && !isNotExist(err) {
			return fmt.Errorf("config: load %s: %w", f, err)
		}
	}
	return nil
}

// New returns the environment backed configuration. Every required variable is checked
// up front so a misconfigured process fails at startup rather than per request.
func New() (Config, error) {
	c := mainConfig{}
	if err := Validate(c); err != nil {
		return nil, err
	}
	return c, nil
}

// MissingError lists every required variable that was not set.
type MissingError struct {
	Vars []string
}

func (e *MissingError) Error() string {
	return "config: missing required environment variables: " + strings.Join(e.Vars, ", ")
}

// Validate checks that all required values are present.
func Validate(c Config) error {
	required := []struct {
		name  string
		value string
	}{
		{supabaseURLVar, c.GetSupabaseURL()},
		{supabaseKeyVar, c.GetSupabaseKey()},
		{supabaseJWTSecretVar, c.GetJWTSecret()},
		{siteURLVar, c.GetSiteURL()},
		{openAIKeyVar, c.GetOpenAIKey()},
	}

	var missing []string
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.name)
		}
	}
	if len(missing) > 0 {
		return &MissingError{Vars: missing}
	}
	return nil
}
