package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestLoadFillsMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bootd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen-address: \":9000\"\n"), 0o600))

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", c.ListenAddress)
	assert.Equal(t, Default().DatabasePath, c.DatabasePath)
	assert.Equal(t, Default().IQNPrefix, c.IQNPrefix)
}

func TestLoadToolPaths(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bootd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tool-paths:\n  tgtadm: /opt/tgt/sbin/tgtadm\n"), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/opt/tgt/sbin/tgtadm", c.ToolPaths["tgtadm"])
}

func TestSaveRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bootd.yaml")

	c := Default()
	c.ListenAddress = ":1234"
	c.ToolPaths["lvcreate"] = "/sbin/lvcreate"

	require.NoError(t, Save(c, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c, loaded)
}
