package appdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const appName = "pupsnap"

// Dirs holds the XDG-compliant locations pupsnap reads and writes
type Dirs struct {
	RootPath    string // data root
	PreviewPath string // preview files for the currently selected image
	LogPath     string // log file
	ConfigPath  string // config.yaml
	EnvPath     string // optional .env next to the config
}

// New resolves the application directories
func New() (*Dirs, error) {
	rootPath, rootErr := getDataRoot()
	configDir, configErr := getConfigDir()
	if rootErr != nil {
		return nil, fmt.Errorf("failed to determine data root: %w", rootErr)
	}
	if configErr != nil {
		return nil, fmt.Errorf("failed to determine config path: %w", configErr)
	}

	return &Dirs{
		RootPath:    rootPath,
		PreviewPath: filepath.Join(rootPath, "previews"),
		LogPath:     filepath.Join(rootPath, appName+".log"),
		ConfigPath:  filepath.Join(configDir, "config.yaml"),
		EnvPath:     filepath.Join(configDir, ".env"),
	}, nil
}

// getDataRoot follows the XDG Base Directory specification on Unix and uses AppData on Windows
func getDataRoot() (string, error) {
	if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
		return filepath.Join(xdgDataHome, appName), nil
	}

	if appData := os.Getenv("APPDATA"); appData != "" {
		return filepath.Join(appData, appName), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", appName), nil
}

func getConfigDir() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName), nil
	}

	if appData := os.Getenv("APPDATA"); appData != "" {
		return filepath.Join(appData, appName+"-config"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", appName), nil
}

// Initialize creates the directory structure if it doesn't exist
func (d *Dirs) Initialize() error {
	directories := []string{
		d.RootPath,
		d.PreviewPath,
		filepath.Dir(d.ConfigPath),
	}

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// Exists checks if the data root has been created
func (d *Dirs) Exists() bool {
	info, err := os.Stat(d.RootPath)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// CleanPreviews removes leftover preview files, e.g. after a crash
func (d *Dirs) CleanPreviews() (int, error) {
	entries, err := os.ReadDir(d.PreviewPath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read preview directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		path := filepath.Join(d.PreviewPath, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", path, err)
		}
		removed++
	}

	return removed, nil
}
