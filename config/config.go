package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// Defaults used by NewConfig
const (
	DefaultHost         = "http://127.0.0.1:8080/api"
	DefaultFetchTimeout = 15 * time.Second
	DefaultLogLevel     = "info"
	DefaultLogOutput    = "stderr"
	DefaultOutDir       = "."
)

// Config stores the configuration of the guardians tool
type Config struct {
	// DataDir is where the config file and the archive live
	DataDir string
	// Host is the base URL of the guardian service
	Host string
	// Token is an optional bearer token sent with every request
	Token string
	// ElectionID is the election selected by default
	ElectionID string
	// OutDir is the directory where exported manifests are written
	OutDir string
	// Gzip compresses the exported manifests
	Gzip bool
	// Archive stores a copy of every exported manifest in the local archive
	Archive bool
	// ArchiveDir is the directory of the local archive, DataDir/archive by default
	ArchiveDir string
	// FetchTimeout bounds every guardian retrieval
	FetchTimeout time.Duration
	// LogLevel logging level
	LogLevel string
	// LogOutput logging output
	LogOutput string
	// LogErrorFile for logging warning, error and fatal messages
	LogErrorFile string
	// MetricsAddr enables the prometheus endpoint on the given address
	MetricsAddr string
	// SaveConfig overwrites the config file with the CLI provided flags
	SaveConfig bool
}

// NewConfig returns a Config with the default values
func NewConfig() *Config {
	return &Config{
		Host:         DefaultHost,
		OutDir:       DefaultOutDir,
		FetchTimeout: DefaultFetchTimeout,
		LogLevel:     DefaultLogLevel,
		LogOutput:    DefaultLogOutput,
	}
}

// HostURL parses Host
func (c *Config) HostURL() (*url.URL, error) {
	u, err := url.Parse(c.Host)
	if err != nil {
		return nil, fmt.Errorf("invalid host %q: %w", c.Host, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid host %q: scheme must be http or https", c.Host)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid host %q: missing address", c.Host)
	}
	return u, nil
}

// AuthToken parses Token, returns nil if there is none
func (c *Config) AuthToken() (*uuid.UUID, error) {
	if c.Token == "" {
		return nil, nil
	}
	t, err := uuid.Parse(c.Token)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	return &t, nil
}

// Validate checks the values of the config
func (c *Config) Validate() error {
	if _, err := c.HostURL(); err != nil {
		return err
	}
	if _, err := c.AuthToken(); err != nil {
		return err
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive, got %s", c.FetchTimeout)
	}
	if c.Archive && c.ArchiveDir == "" {
		return fmt.Errorf("archive enabled without an archive directory")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error", "fatal":
	default:
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return nil
}

// Error represents an error with the config
type Error struct {
	// Critical indicates if the error encountered is critical and the app must be stopped
	Critical bool
	// Message error message
	Message string
}

func (e Error) Error() string {
	return e.Message
}
