package conf

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/merak-travel/merak/internal/errors"
)

// GetDefaultConfigPaths returns the directories searched for config.yaml.
// When one of them already holds a config file only that directory is returned.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "get-home-directory").
			Build()
	}

	configPaths := []string{"."}
	switch runtime.GOOS {
	case "windows":
		configPaths = append(configPaths, filepath.Join(homeDir, "AppData", "Roaming", "merak"))
	default:
		configPaths = append(configPaths,
			filepath.Join(homeDir, ".config", "merak"),
			"/etc/merak",
		)
	}

	for _, path := range configPaths {
		if _, err := os.Stat(filepath.Join(path, "config.yaml")); err == nil {
			return []string{path}, nil
		}
	}
	return configPaths, nil
}

// UserConfigPath returns the per-user config file location written by `config init`
func UserConfigPath() (string, error) {
	paths, err := GetDefaultConfigPaths()
	if err != nil {
		return "", err
	}
	for _, p := range paths {
		if p != "." {
			return filepath.Join(p, "config.yaml"), nil
		}
	}
	return filepath.Join(paths[0], "config.yaml"), nil
}
