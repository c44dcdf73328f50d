package lvm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const lvdisplayOutput = `  --- Logical volume ---
  LV Path                /dev/vg0/disk1
  LV Name                disk1
  VG Name                vg0
  LV Size                20.00 GiB
  Block device            253:4
  source of               snapshots
  s1
  s2

`

func TestParseSectionLogicalVolume(t *testing.T) {
	info := parseSection(lvdisplayOutput, "--- Logical volume ---")

	assert.Equal(t, "/dev/vg0/disk1", info["LV Path"])
	assert.Equal(t, "disk1", info["LV Name"])
	assert.Equal(t, "vg0", info["VG Name"])
	assert.Equal(t, "20.00 GiB", info["LV Size"])
	assert.Equal(t, []string{"s1", "s2"}, info["source_of"])
}

func TestParseSectionMissingHeader(t *testing.T) {
	info := parseSection(lvdisplayOutput, "--- Physical volume ---")
	assert.Empty(t, info)
}

const snapshotOutput = `  --- Logical volume ---
  LV Path                /dev/vg0/s1
  LV Name                s1
  VG Name                vg0
  COW-table size          5.00 GiB
  LV snapshot status      active destination for disk1

`

func TestParseSectionSnapshot(t *testing.T) {
	info := parseSection(snapshotOutput, "--- Logical volume ---")
	assert.Equal(t, "5.00 GiB", info["COW-table size"])
	assert.Equal(t, "active destination for disk1", info["LV snapshot status"])
}
