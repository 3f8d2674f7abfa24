// Package appconfig loads the z7vui configuration file.
package appconfig

import (
	"os"
	"path/filepath"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int            `mapstructure:"config_version" yaml:"config_version"`
	Archiver      ArchiverConfig `mapstructure:"archiver" yaml:"archiver"`
	Nvim          NvimConfig     `mapstructure:"nvim" yaml:"nvim"`
	History       HistoryConfig  `mapstructure:"history" yaml:"history"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// ArchiverConfig controls how the archive utility is invoked.
type ArchiverConfig struct {
	Binary    string   `mapstructure:"binary" yaml:"binary"`
	ExtraArgs []string `mapstructure:"extra_args" yaml:"extra_args"`
}

// NvimConfig controls how the editor frontend is launched.
type NvimConfig struct {
	Binary string `mapstructure:"binary" yaml:"binary"`
	Socket string `mapstructure:"socket" yaml:"socket"`
}

// HistoryConfig controls password history persistence.
type HistoryConfig struct {
	File string `mapstructure:"file" yaml:"file"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() (Config, error) {
	configDir, err := defaultConfigDir()
	if err != nil {
		return Config{}, err
	}
	return Config{
		ConfigVersion: CurrentConfigVersion,
		Archiver: ArchiverConfig{
			Binary: "7z",
		},
		Nvim: NvimConfig{
			Binary: "nvim",
			Socket: filepath.Join(os.TempDir(), "z7vui-nvim.sock"),
		},
		History: HistoryConfig{
			File: filepath.Join(configDir, "password_history.txt"),
		},
	}, nil
}

// DefaultConfigPath returns the default config file location.
func DefaultConfigPath() (string, error) {
	configDir, err := defaultConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.yaml"), nil
}

func defaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "z7vui"), nil
}
