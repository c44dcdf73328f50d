package core_test

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nls90/bootd/internal/core"
	"github.com/nls90/bootd/internal/db"
	"github.com/nls90/bootd/internal/subprocess"
)

func scriptDetach(run *subprocess.FakeRunner, tid string, lun int) {
	run.Script("", "tgtadm", "--lld", "iscsi", "--mode", "logicalunit",
		"--op", "delete", "--tid", tid, "--lun", strconv.Itoa(lun))
}

// bootOnce runs GetBootDiskInfo once against f, scripting every call a
// reconcile-and-select pass needs when showLUN/pathOfShowLUN describes the
// LU (if any) the daemon currently reports attached, and candidateName is
// the LU expected to be selected next.
func bootOnce(t *testing.T, f *fixture, tid string, showLUN int64, showPath string, candidateName string, candidateID int64) *core.BootResult {
	t.Helper()

	extra := ""
	if showLUN != 0 {
		extra = "    LUN: " + strconv.FormatInt(showLUN, 10) + "\n        Backing store path: " + showPath + "\n"
		scriptDetach(f.run, tid, int(showLUN))
	}

	scriptBootReconcile(f.run, tid, extra)
	scriptDevicePath(f.run, candidateName)
	scriptAttach(f.run, tid, int(candidateID), "/dev/vg0/"+candidateName)

	result, err := f.c.GetBootDiskInfo(context.Background(), f.t.ID)
	require.NoError(t, err)

	return result
}

// TestGetBootDiskInfoRotation encodes scenario S2: after a first boot of A,
// a second call with no active snapshot rolls A back to ONLINE and selects
// B, the only other ONLINE candidate.
func TestGetBootDiskInfoRotation(t *testing.T) {
	f := newFixture(t)
	tid := strconv.Itoa(int(f.t.ID))

	first := bootOnce(t, f, tid, 0, "", "a", f.a.ID)
	require.True(t, first.Result)

	second := bootOnce(t, f, tid, f.a.ID, "/dev/vg0/a", "b", f.b.ID)
	require.True(t, second.Result)
	assert.Equal(t, strconv.FormatInt(f.b.ID, 16), second.LUN)

	a, err := f.c.Store.GetLogicalUnit(f.a.ID)
	require.NoError(t, err)
	assert.Equal(t, db.LogicalUnitOnline, a.Status)

	b, err := f.c.Store.GetLogicalUnit(f.b.ID)
	require.NoError(t, err)
	assert.Equal(t, db.LogicalUnitBusy, b.Status)
}

// TestGetBootDiskInfoActiveSnapshotRollsToModified encodes scenario S3: an
// active snapshot on the spent-boot-count holder rolls it to MODIFIED
// instead of ONLINE, and it is not reconsidered as a boot candidate.
func TestGetBootDiskInfoActiveSnapshotRollsToModified(t *testing.T) {
	f := newFixture(t)
	tid := strconv.Itoa(int(f.t.ID))

	first := bootOnce(t, f, tid, 0, "", "a", f.a.ID)
	require.True(t, first.Result)

	snapID, err := f.c.Store.CreateSnapshot(&db.Snapshot{Name: "s1", LogicalUnitID: f.a.ID, SizeInGB: 5})
	require.NoError(t, err)
	snap, err := f.c.Store.GetSnapshot(snapID)
	require.NoError(t, err)
	require.NoError(t, f.c.ActivateSnapshot(snap))

	second := bootOnce(t, f, tid, f.a.ID, "/dev/vg0/a", "b", f.b.ID)
	require.True(t, second.Result)

	a, err := f.c.Store.GetLogicalUnit(f.a.ID)
	require.NoError(t, err)
	assert.Equal(t, db.LogicalUnitModified, a.Status)

	b, err := f.c.Store.GetLogicalUnit(f.b.ID)
	require.NoError(t, err)
	assert.Equal(t, db.LogicalUnitBusy, b.Status)
}

// TestGetMapDiskInfoIdentityMatch encodes the success half of scenario S4:
// a MODIFIED LU whose device path the daemon reports at exactly its own id
// maps successfully and becomes MOUNTED.
func TestGetMapDiskInfoIdentityMatch(t *testing.T) {
	f := newFixture(t)
	tid := strconv.Itoa(int(f.t.ID))

	f.a.Status = db.LogicalUnitModified
	require.NoError(t, f.c.Store.UpdateLogicalUnit(f.a))

	show := "Target " + tid + ": " + tgtPrefix + ":t1\n" +
		"    LUN: " + strconv.FormatInt(f.a.ID, 10) + "\n        Backing store path: /dev/vg0/a\n"
	f.run.Script(show, "tgtadm", "--lld", "iscsi", "--mode", "target", "--op", "show", "--tid", tid)
	f.run.Script("", "tgtadm", "--lld", "iscsi", "--mode", "target", "--op", "bind", "--tid", tid, "--initiator-address", "ALL")
	scriptDevicePath(f.run, "a")

	result, err := f.c.GetMapDiskInfo(context.Background(), f.t.ID)
	require.NoError(t, err)
	require.True(t, result.Result)

	a, err := f.c.Store.GetLogicalUnit(f.a.ID)
	require.NoError(t, err)
	assert.Equal(t, db.LogicalUnitMounted, a.Status)
}

// TestGetMapDiskInfoIdentityMismatch encodes the failure half of scenario
// S4: the daemon reports a different LUN id than the LogicalUnit's own, so
// the map is refused and the LU stays MODIFIED.
func TestGetMapDiskInfoIdentityMismatch(t *testing.T) {
	f := newFixture(t)
	tid := strconv.Itoa(int(f.t.ID))

	f.a.Status = db.LogicalUnitModified
	require.NoError(t, f.c.Store.UpdateLogicalUnit(f.a))

	show := "Target " + tid + ": " + tgtPrefix + ":t1\n" +
		"    LUN: 12\n        Backing store path: /dev/vg0/a\n"
	f.run.Script(show, "tgtadm", "--lld", "iscsi", "--mode", "target", "--op", "show", "--tid", tid)
	f.run.Script("", "tgtadm", "--lld", "iscsi", "--mode", "target", "--op", "bind", "--tid", tid, "--initiator-address", "ALL")
	scriptDevicePath(f.run, "a")

	result, err := f.c.GetMapDiskInfo(context.Background(), f.t.ID)
	require.NoError(t, err)
	assert.False(t, result.Result)

	a, err := f.c.Store.GetLogicalUnit(f.a.ID)
	require.NoError(t, err)
	assert.Equal(t, db.LogicalUnitModified, a.Status)
}
