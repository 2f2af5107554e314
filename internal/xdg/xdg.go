// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

// Package xdg locates Inkwell's files under the XDG base directories.
package xdg

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

const appName = "inkwell"

// ConfigDir returns $XDG_CONFIG_HOME/inkwell, falling back to ~/.config.
func ConfigDir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(base, appName)
}

// CertsDir returns the directory holding generated TLS certificates.
func CertsDir() string {
	return filepath.Join(ConfigDir(), "certs")
}

// EnsureDir creates path and its parents with 0700 permissions.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0o700) //nolint:wrapcheck // caller adds context
}

// ConfigFile returns the default config file path.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// ExistingConfigFile returns ConfigFile when it exists and "" otherwise.
func ExistingConfigFile() (string, error) {
	path := ConfigFile()
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", err //nolint:wrapcheck // caller adds config context
	}
	return path, nil
}
