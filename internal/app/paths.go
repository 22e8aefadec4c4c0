// Package app provides the application initialization and wiring.
package app

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	configName = "spaceport"
	// configEnv names the config file when no --config flag is given.
	configEnv = "SPACEPORT_CONFIG"
)

// DefaultDataDir is where process logs and the router log go when
// server.data_dir is unset: $XDG_STATE_HOME/spaceport, then
// ~/.local/state/spaceport, then a directory under the system temp dir.
func DefaultDataDir() string {
	if state := os.Getenv("XDG_STATE_HOME"); state != "" {
		return filepath.Join(state, configName)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "state", configName)
	}
	return filepath.Join(os.TempDir(), configName)
}

// configSearchPaths lists the directories searched for spaceport.toml. The
// working directory comes first so a config committed next to the app wins
// over a machine-wide one.
func configSearchPaths() []string {
	paths := []string{"."}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, configName))
	}
	return append(paths, filepath.Join("/etc", configName))
}

// ConfigureViper points v at the config file: the explicit path, then
// $SPACEPORT_CONFIG, then the first spaceport.toml on the search path.
func ConfigureViper(v *viper.Viper, configPath string) {
	if configPath == "" {
		configPath = os.Getenv(configEnv)
	}
	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}

	v.SetConfigName(configName)
	v.SetConfigType("toml")
	for _, dir := range configSearchPaths() {
		v.AddConfigPath(dir)
	}
}
