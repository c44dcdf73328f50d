package lvm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nls90/bootd/internal/subprocess"
)

func TestCreateAndRemoveLogicalVolume(t *testing.T) {
	ctx := context.Background()
	run := subprocess.NewFakeRunner()
	run.Script(`Logical volume "disk1" created`, "lvcreate", "--name", "disk1", "--size", "20GiB", "-W", "y", "vg0")
	run.Script(`Logical volume "disk1" successfully removed`, "lvremove", "--force", "vg0/disk1")

	d := New(run)
	vg := d.VolumeGroup("vg0")

	lv, err := vg.CreateLogicalVolume(ctx, "disk1", 20, "GiB")
	require.NoError(t, err)
	assert.Equal(t, "/dev/vg0/disk1", lv.Path())

	err = vg.RemoveLogicalVolume(ctx, "disk1")
	require.NoError(t, err)
}

func TestRenameLogicalVolumeVerifiesExactLine(t *testing.T) {
	ctx := context.Background()
	run := subprocess.NewFakeRunner()
	run.Script(`moved "disk1" somewhere in volume group "vg0"`, "lvrename", "vg0", "disk1", "disk2")

	d := New(run)
	vg := d.VolumeGroup("vg0")

	err := vg.RenameLogicalVolume(ctx, "disk1", "disk2")
	assert.Error(t, err, "loose 'in volume group' substring must not be accepted as success")
}

func TestLogicalVolumeSnapshotsAndSnapshotRefusal(t *testing.T) {
	ctx := context.Background()
	run := subprocess.NewFakeRunner()
	run.Script(`  --- Logical volume ---
  LV Path                /dev/vg0/disk1
  LV Name                disk1
  VG Name                vg0
  LV Size                20.00 GiB
  source of               snapshots
  s1

`, "lvdisplay", "/dev/vg0/disk1")

	d := New(run)
	lv := &LogicalVolume{driver: d, path: "/dev/vg0/disk1"}

	snaps, err := lv.Snapshots(ctx, "")
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "/dev/vg0/s1", snaps[0].Path())

	_, err = snaps[0].CreateSnapshot(ctx, "s2", 5, "GiB")
	assert.ErrorIs(t, err, ErrSnapshotOfSnapshot)

	err = snaps[0].RemoveSnapshot(ctx, "s2")
	assert.ErrorIs(t, err, ErrSnapshotOfSnapshot)
}

func TestSnapshotSize(t *testing.T) {
	ctx := context.Background()
	run := subprocess.NewFakeRunner()
	run.Script(`  --- Logical volume ---
  LV Path                /dev/vg0/s1
  LV Name                s1
  COW-table size          5.00 GiB

`, "lvdisplay", "/dev/vg0/s1")

	d := New(run)
	snap := &Snapshot{lv: &LogicalVolume{driver: d, path: "/dev/vg0/s1"}}

	size, unit, err := snap.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5.0, size)
	assert.Equal(t, "GiB", unit)
}
