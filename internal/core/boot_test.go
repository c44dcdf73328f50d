package core_test

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nls90/bootd/internal/core"
	"github.com/nls90/bootd/internal/db"
	"github.com/nls90/bootd/internal/lvm"
	"github.com/nls90/bootd/internal/subprocess"
)

// fixture builds a Core over a fresh in-memory metadata store, seeded with
// target t1 (id from the store, not pinned — the scenarios key off names
// and the values returned by the store) bound to initiator 10.0.0.9, and
// two ONLINE never-booted LogicalUnits a/b in group vg0, backed by the
// scripted FakeRunner responses the boot negotiation is expected to issue.
type fixture struct {
	c    *core.Core
	run  *subprocess.FakeRunner
	t    *db.Target
	a, b *db.LogicalUnit
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store, err := db.Open(":memory:")
	require.NoError(t, err)

	initiatorID, err := store.CreateInitiator(&db.Initiator{
		MACAddress: "aa:bb:cc:dd:ee:ff",
		Name:       "host1",
		IPAddress:  "10.0.0.9",
	})
	require.NoError(t, err)

	targetID, err := store.CreateTarget(&db.Target{Name: "t1", InitiatorID: &initiatorID})
	require.NoError(t, err)

	target, err := store.GetTarget(targetID)
	require.NoError(t, err)

	aID, err := store.CreateLogicalUnit(&db.LogicalUnit{
		Name: "a", Group: "vg0", Use: true, Status: db.LogicalUnitOnline, BootCount: 1, TargetID: &targetID,
	})
	require.NoError(t, err)

	bID, err := store.CreateLogicalUnit(&db.LogicalUnit{
		Name: "b", Group: "vg0", Use: true, Status: db.LogicalUnitOnline, BootCount: 1, TargetID: &targetID,
	})
	require.NoError(t, err)

	a, err := store.GetLogicalUnit(aID)
	require.NoError(t, err)

	b, err := store.GetLogicalUnit(bID)
	require.NoError(t, err)

	run := subprocess.NewFakeRunner()
	lvmDriver := lvm.New(run)
	c := core.New(store, lvmDriver, run, nil)

	return &fixture{c: c, run: run, t: target, a: a, b: b}
}

const tgtPrefix = "iqn.2018-01.com.nls90.iscsitarget"

// scriptBootReconcile scripts the target-reconciliation calls every boot
// negotiation issues: an existing target with the given extra LUN lines
// already shown, a wildcard bind, and an empty connection table.
func scriptBootReconcile(run *subprocess.FakeRunner, tid string, extraLUNLines string) {
	show := "Target " + tid + ": " + tgtPrefix + ":t1\n" + extraLUNLines
	run.Script(show, "tgtadm", "--lld", "iscsi", "--mode", "target", "--op", "show", "--tid", tid)
	run.Script("", "tgtadm", "--lld", "iscsi", "--mode", "target", "--op", "bind", "--tid", tid, "--initiator-address", "ALL")
	run.Script("", "tgtadm", "--lld", "iscsi", "--mode", "conn", "--op", "show", "--tid", tid)
}

func scriptDevicePath(run *subprocess.FakeRunner, name string) {
	path := "/dev/vg0/" + name

	run.Script(path+":vg0:other:fields\n", "lvdisplay", "-c")
	run.Script("  Attr\n  -wi-a-----\n", "lvs", "-o", "lv_attr", path)
}

func scriptAttach(run *subprocess.FakeRunner, tid string, lun int, path string) {
	lunStr := strconv.Itoa(lun)

	run.Script("", "tgtadm", "--lld", "iscsi", "--mode", "logicalunit",
		"--op", "new", "--tid", tid, "--lun", lunStr, "--backing-store", path)
	run.Script("", "tgtadm", "--lld", "iscsi", "--mode", "logicalunit",
		"--op", "update", "--tid", tid, "--lun", lunStr, "--params", "vendor_id=V,product_id=P,product_rev=R")
}

// TestGetBootDiskInfoFreshBoot encodes scenario S1: two never-booted ONLINE
// candidates, insertion order picks A first.
func TestGetBootDiskInfoFreshBoot(t *testing.T) {
	f := newFixture(t)
	f.a.VendorID, f.a.ProductID, f.a.ProductRev = "V", "P", "R"
	require.NoError(t, f.c.Store.UpdateLogicalUnit(f.a))

	tid := strconv.Itoa(int(f.t.ID))

	scriptBootReconcile(f.run, tid, "")
	scriptDevicePath(f.run, "a")
	scriptAttach(f.run, tid, int(f.a.ID), "/dev/vg0/a")

	result, err := f.c.GetBootDiskInfo(context.Background(), f.t.ID)
	require.NoError(t, err)
	require.True(t, result.Result)
	assert.Equal(t, tgtPrefix+":t1", result.IQN)

	updated, err := f.c.Store.GetLogicalUnit(f.a.ID)
	require.NoError(t, err)
	assert.Equal(t, db.LogicalUnitBusy, updated.Status)
	assert.Equal(t, 0, updated.BootCount)
	assert.NotNil(t, updated.LastAttached)
}

// TestGetBootDiskInfoNoCandidates covers the result:false path when no LU
// is eligible.
func TestGetBootDiskInfoNoCandidates(t *testing.T) {
	f := newFixture(t)

	offline := db.LogicalUnitOffline
	f.a.Status = offline
	f.b.Status = offline
	require.NoError(t, f.c.Store.UpdateLogicalUnit(f.a))
	require.NoError(t, f.c.Store.UpdateLogicalUnit(f.b))

	tid := strconv.Itoa(int(f.t.ID))
	scriptBootReconcile(f.run, tid, "")

	result, err := f.c.GetBootDiskInfo(context.Background(), f.t.ID)
	require.NoError(t, err)
	assert.False(t, result.Result)
	assert.Equal(t, "No logical unit found for booting", result.Message)
}

// TestCreateSnapshotRefusedWhenOnline encodes scenario S5: creating a
// snapshot on a non-OFFLINE logical unit fails before any LVM command runs.
func TestCreateSnapshotRefusedWhenOnline(t *testing.T) {
	f := newFixture(t)

	_, err := f.c.CreateSnapshot(context.Background(), &db.Snapshot{Name: "s", LogicalUnitID: f.a.ID})
	require.Error(t, err)
	assert.Empty(t, f.run.Calls())
}

// TestDestroyTarget encodes scenario S6: close connections, detach all
// LUNs, remove the target, then delete the metadata row.
func TestDestroyTarget(t *testing.T) {
	f := newFixture(t)
	tid := strconv.Itoa(int(f.t.ID))

	f.run.Script("Target 1: x\n    LUN: 0\n        Backing store path: None\n", "tgtadm", "--lld", "iscsi", "--mode", "target", "--op", "show", "--tid", tid)
	f.run.Script("", "tgtadm", "--lld", "iscsi", "--mode", "conn", "--op", "show", "--tid", tid)
	f.run.Script("", "tgtadm", "--lld", "iscsi", "--mode", "target", "--op", "delete", "--tid", tid, "--force")

	err := f.c.DestroyTarget(context.Background(), f.t.ID)
	require.NoError(t, err)

	_, err = f.c.Store.GetTarget(f.t.ID)
	require.Error(t, err)
}
