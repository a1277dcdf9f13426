package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Run mode used when PUPSNAP_ENV is not set
	Mode string `yaml:"mode"`

	// Camera Settings
	CameraDevice int `yaml:"camera_device"`

	// Gallery Settings
	GalleryDir  string `yaml:"gallery_dir"`
	ImageViewer string `yaml:"image_viewer"`

	// Logging
	LogLevel string `yaml:"log_level"`

	// UI Settings
	ColorTheme        string `yaml:"color_theme"`
	ShowInstallPrompt bool   `yaml:"show_install_prompt"`

	// Install Settings
	InstallDir string `yaml:"install_dir"`

	// Watch Settings
	WatchDebounceMS int `yaml:"watch_debounce_ms"`
}

// DefaultConfig returns a Config struct with default values
func DefaultConfig() *Config {
	return &Config{
		Mode:              ModeDevelopment,
		CameraDevice:      0,
		GalleryDir:        defaultGalleryDir(),
		ImageViewer:       "",
		LogLevel:          "info",
		ColorTheme:        "auto",
		ShowInstallPrompt: true,
		InstallDir:        defaultInstallDir(),
		WatchDebounceMS:   500,
	}
}

// Load reads configuration from the specified file path
func Load(path string) (*Config, error) {
	// Start with default config
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		// A missing file is not an error
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply defaults for essential values if missing
	if cfg.Mode == "" {
		cfg.Mode = ModeDevelopment
	}
	if cfg.CameraDevice < 0 {
		cfg.CameraDevice = 0
	}
	if cfg.GalleryDir == "" {
		cfg.GalleryDir = defaultGalleryDir()
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.ColorTheme == "" {
		cfg.ColorTheme = "auto"
	}
	if cfg.InstallDir == "" {
		cfg.InstallDir = defaultInstallDir()
	}
	if cfg.WatchDebounceMS <= 0 {
		cfg.WatchDebounceMS = 500
	}

	if !isValidLogLevel(cfg.LogLevel) {
		cfg.LogLevel = "info"
	}

	return cfg, nil
}

// Save persists the current configuration to the specified file path
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Values returns the config as yaml key/value pairs sorted by key
func (c *Config) Values() ([][2]string, error) {
	fields, err := c.fields()
	if err != nil {
		return nil, err
	}

	pairs := make([][2]string, 0, len(fields))
	for k, v := range fields {
		pairs = append(pairs, [2]string{k, fmt.Sprint(v)})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i][0] < pairs[j][0] })
	return pairs, nil
}

// Set updates one setting by its yaml key. The value is parsed as yaml.
func (c *Config) Set(key, value string) error {
	fields, err := c.fields()
	if err != nil {
		return err
	}
	if _, ok := fields[key]; !ok {
		return fmt.Errorf("unknown config key %q", key)
	}

	var parsed any
	if err := yaml.Unmarshal([]byte(value), &parsed); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	fields[key] = parsed

	data, err := yaml.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	updated := *c
	if err := yaml.Unmarshal(data, &updated); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if key == "log_level" && !isValidLogLevel(updated.LogLevel) {
		return fmt.Errorf("invalid log level %q", updated.LogLevel)
	}

	*c = updated
	return nil
}

func (c *Config) fields() (map[string]any, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	fields := make(map[string]any)
	if err := yaml.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return fields, nil
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}

func defaultGalleryDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, "Pictures")
}

func defaultInstallDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "bin")
}
