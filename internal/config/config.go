// Package config loads the daemon's YAML configuration document, the way
// lxc/config.LoadConfig decodes and defaults one: read the file, unmarshal
// with gopkg.in/yaml.v2, then fill in anything the document left blank.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Config holds everything bootd needs to start: where to listen, where its
// metadata lives, and how to reach the external tools that do the real
// work.
type Config struct {
	// ListenAddress is the address the HTTP API binds to, e.g. ":8443".
	ListenAddress string `yaml:"listen-address"`

	// DatabasePath is the sqlite file backing internal/db.Store. ":memory:"
	// is accepted for tests and demos.
	DatabasePath string `yaml:"database-path"`

	// IQNPrefix is the naming authority prefix every target's IQN is built
	// from (internal/iscsi.QualifiedName).
	IQNPrefix string `yaml:"iqn-prefix"`

	// ToolPaths overrides the PATH-resolved name of an external tool
	// (tgtadm, lvcreate, vgcreate, pvcreate, lvremove, ...) with an
	// absolute path, for hosts that don't keep them on PATH.
	ToolPaths map[string]string `yaml:"tool-paths"`

	// LogLevel is parsed with logrus.ParseLevel; empty defaults to "info".
	LogLevel string `yaml:"log-level"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		ListenAddress: ":8443",
		DatabasePath:  "/var/lib/bootd/bootd.db",
		IQNPrefix:     "iqn.2018-01.com.nls90.iscsitarget",
		ToolPaths:     map[string]string{},
		LogLevel:      "info",
	}
}

// Load reads the YAML document at path, returning defaults unchanged if the
// file does not exist, and filling any field the document left zero-valued
// with its default.
func Load(path string) (*Config, error) {
	c := Default()

	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}

	if err != nil {
		return nil, fmt.Errorf("unable to read the configuration file: %w", err)
	}

	if err := yaml.Unmarshal(content, c); err != nil {
		return nil, fmt.Errorf("unable to decode the configuration: %w", err)
	}

	applyDefaults(c)

	return c, nil
}

// applyDefaults backfills zero-valued fields a partial document left unset.
func applyDefaults(c *Config) {
	d := Default()

	if c.ListenAddress == "" {
		c.ListenAddress = d.ListenAddress
	}

	if c.DatabasePath == "" {
		c.DatabasePath = d.DatabasePath
	}

	if c.IQNPrefix == "" {
		c.IQNPrefix = d.IQNPrefix
	}

	if c.ToolPaths == nil {
		c.ToolPaths = map[string]string{}
	}

	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
}

// Save writes c back to path as YAML, truncating any existing file.
func Save(c *Config, path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("unable to encode the configuration: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("unable to write the configuration file: %w", err)
	}

	return nil
}
