package iscsi

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nls90/bootd/internal/subprocess"
)

func TestQualifiedName(t *testing.T) {
	assert.Equal(t, "iqn.2018-01.com.nls90.iscsitarget:t1", QualifiedName("t1"))
}

func TestExistsFalseWhenTargetMissing(t *testing.T) {
	ctx := context.Background()
	run := subprocess.NewFakeRunner()
	run.Script("tgtadm: can't find the target\n", "tgtadm", "--lld", "iscsi", "--mode", "target", "--op", "show", "--tid", "5")

	tgt := New(run, 5, "t1")
	exists, err := tgt.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestAddQuietSuccess(t *testing.T) {
	ctx := context.Background()
	run := subprocess.NewFakeRunner()
	run.Script("", "tgtadm", "--lld", "iscsi", "--mode", "target", "--op", "new", "--tid", "5", "--targetname", "iqn.2018-01.com.nls90.iscsitarget:t1")

	tgt := New(run, 5, "t1")
	require.NoError(t, tgt.Add(ctx))
}

func TestListActiveLogicalUnitsSkipsControllerLUN(t *testing.T) {
	ctx := context.Background()
	run := subprocess.NewFakeRunner()
	run.Script(`Target 5: iqn.2018-01.com.nls90.iscsitarget:t1
    LUN: 0
        Backing store path: None
    LUN: 10
        Backing store path: /dev/vg0/disk1
`, "tgtadm", "--lld", "iscsi", "--mode", "target", "--op", "show", "--tid", "5")

	tgt := New(run, 5, "t1")
	luns, err := tgt.ListActiveLogicalUnits(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[int]string{10: "/dev/vg0/disk1"}, luns)
}

func TestBindToInitiatorWildcard(t *testing.T) {
	ctx := context.Background()
	run := subprocess.NewFakeRunner()
	run.Script("", "tgtadm", "--lld", "iscsi", "--mode", "target", "--op", "bind", "--tid", "5", "--initiator-address", "ALL")

	tgt := New(run, 5, "t1")
	require.NoError(t, tgt.BindToInitiator(ctx, "", "address"))
}
