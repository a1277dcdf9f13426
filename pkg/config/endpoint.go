package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Run modes
const (
	ModeDevelopment = "development"
	ModeStaging     = "staging"
	ModeProduction  = "production"
)

// EnvMode is the environment variable selecting the run mode
const EnvMode = "PUPSNAP_ENV"

// DefaultUploadEndpoint is used when the run mode is not recognized
const DefaultUploadEndpoint = "https://api.example.com/dog-poop-upload"

// Transmission limits
const (
	UploadTimeout  = 30 * time.Second
	MaxUploadBytes = 10 * 1024 * 1024
)

var endpoints = map[string]string{
	ModeDevelopment: "http://localhost:3001/api/dog-poop-upload",
	ModeStaging:     "https://staging-api.example.com/dog-poop-upload",
	ModeProduction:  "https://api.example.com/dog-poop-upload",
}

// EndpointConfig is the resolved upload target and its limits.
// Treat as immutable once resolved.
type EndpointConfig struct {
	Mode          string
	URL           string
	Timeout       time.Duration
	MaxBytes      int64
	AcceptedTypes []string
}

// ResolveEndpoint maps a run mode to its endpoint, falling back to the default URL
func ResolveEndpoint(mode string) EndpointConfig {
	target, ok := endpoints[mode]
	if !ok {
		target = DefaultUploadEndpoint
	}

	return EndpointConfig{
		Mode:          mode,
		URL:           target,
		Timeout:       UploadTimeout,
		MaxBytes:      MaxUploadBytes,
		AcceptedTypes: []string{"image/jpeg", "image/png", "image/webp"},
	}
}

// Accepts reports whether the MIME type is on the allow-list
func (e EndpointConfig) Accepts(mimeType string) bool {
	return slices.Contains(e.AcceptedTypes, mimeType)
}

// IsProduction reports whether the endpoint belongs to production mode
func (e EndpointConfig) IsProduction() bool {
	return e.Mode == ModeProduction
}

// Host returns the host[:port] of the endpoint URL, or the raw URL if it does not parse
func (e EndpointConfig) Host() string {
	u, err := url.Parse(e.URL)
	if err != nil || u.Host == "" {
		return e.URL
	}
	return u.Host
}

// Modes returns the recognized run modes
func Modes() []string {
	return []string{ModeDevelopment, ModeStaging, ModeProduction}
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment.
// Existing variables win. A missing file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// ActiveMode returns the run mode: PUPSNAP_ENV, then the fallback, then development
func ActiveMode(fallback string) string {
	if mode := os.Getenv(EnvMode); mode != "" {
		return mode
	}
	if fallback != "" {
		return fallback
	}
	return ModeDevelopment
}

var (
	endpointOnce sync.Once
	endpoint     EndpointConfig
)

// Endpoint resolves the process-wide endpoint on first call and returns the
// same value afterwards. Later changes to the mode have no effect.
func Endpoint(fallbackMode string) EndpointConfig {
	endpointOnce.Do(func() {
		endpoint = ResolveEndpoint(ActiveMode(fallbackMode))
	})
	return endpoint
}
