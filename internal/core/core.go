// Package core implements the boot-disk selection and attachment state
// machine: the scheduler that reconciles the target daemon's live LUN
// table against metadata, advances each LogicalUnit through its five-state
// lifecycle, and picks the next bootable disk on every boot request.
package core

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/nls90/bootd/internal/coreerr"
	"github.com/nls90/bootd/internal/db"
	"github.com/nls90/bootd/internal/iscsi"
	"github.com/nls90/bootd/internal/locking"
	"github.com/nls90/bootd/internal/lvm"
)

// Core wires the metadata store to the LVM and iSCSI drivers and implements
// the selection/attachment policy. It holds no per-request state; every
// decision is derived fresh from the store and the target daemon, per the
// reconcile-from-daemon design (the in-process view is never trusted across
// requests).
type Core struct {
	Store *db.Store
	LVM   *lvm.Driver
	Run   func() iscsiRunner
	Log   logrus.FieldLogger
}

// iscsiRunner is satisfied by subprocess.Runner; it is re-declared here to
// avoid a needless import cycle note and to make the one dependency the
// target driver needs explicit.
type iscsiRunner = interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// New returns a Core bound to store, the LVM driver, and a runner factory
// used to build iscsi.Target handles on demand (targets are cheap, stateless
// references — see iscsi.New).
func New(store *db.Store, lvmDriver *lvm.Driver, run iscsiRunner, log logrus.FieldLogger) *Core {
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Core{
		Store: store,
		LVM:   lvmDriver,
		Run:   func() iscsiRunner { return run },
		Log:   log,
	}
}

func (c *Core) target(t *db.Target) *iscsi.Target {
	return iscsi.New(c.Run(), int(t.ID), t.Name)
}

// lock acquires the per-target advisory lock for key, collapsing
// locking.LockFriendly's two release functions into the one a holder should
// actually call: unlockFriendly, since a plain unlock never wakes blocked
// waiters. release is nil when friendly is true (the caller did no work and
// owns nothing to release).
func (c *Core) lock(ctx context.Context, key string) (friendly bool, release func(), err error) {
	friendly, _, unlockFriendly, err := locking.LockFriendly(ctx, key)
	if err != nil {
		return false, nil, err
	}

	return friendly, unlockFriendly, nil
}

// traceID returns a short id for correlating the log lines of one boot or
// map negotiation.
func traceID() string {
	return uuid.NewString()[:8]
}

// devicePath implements the §4.5.1 device path resolution: locate the
// LogicalUnit's base volume, then prefer the active snapshot's path if one
// exists, refuse (empty, no error) if snapshots exist but none is active,
// and otherwise fall back to the base volume.
func (c *Core) devicePath(ctx context.Context, l *db.LogicalUnit) (string, error) {
	vg := c.LVM.VolumeGroup(l.Group)

	lvs, err := vg.LogicalVolumes(ctx, l.Name)
	if err != nil {
		return "", fmt.Errorf("resolving device path for logical unit %q: %w", l.Name, err)
	}

	if len(lvs) == 0 {
		return "", nil
	}

	snapshots, err := c.Store.ListSnapshotsForLogicalUnit(l.ID)
	if err != nil {
		return "", err
	}

	if len(snapshots) == 0 {
		return lvs[0].Path(), nil
	}

	active, err := c.Store.GetActiveSnapshot(l.ID)
	if err != nil {
		return "", err
	}

	if active == nil {
		return "", nil
	}

	lvSnapshots, err := lvs[0].Snapshots(ctx, active.Name)
	if err != nil {
		return "", fmt.Errorf("resolving active snapshot path for logical unit %q: %w", l.Name, err)
	}

	if len(lvSnapshots) == 0 {
		return "", nil
	}

	return lvSnapshots[0].Path(), nil
}

// attachToTarget implements LogicalUnitViewSet.attach_to_target: resolve the
// device path, attach it at LUN id = l.ID, and push SCSI identity params.
// It refuses a LUN-id collision (the LUN id already active under the same
// target with a different backing path) before issuing the attach call (the
// Invariant guard from the design notes on LUN id reuse).
func (c *Core) attachToTarget(ctx context.Context, t *db.Target, l *db.LogicalUnit) error {
	it := c.target(t)

	exists, err := it.Exists(ctx)
	if err != nil {
		return coreerr.External(err, "checking target %q existence", t.Name)
	}

	if !exists {
		if err := it.Add(ctx); err != nil {
			return coreerr.External(err, "creating target %q", t.Name)
		}
	}

	path, err := c.devicePath(ctx, l)
	if err != nil {
		return coreerr.External(err, "resolving device path for logical unit %q", l.Name)
	}

	if path == "" {
		return coreerr.Conflict("no device path available for logical unit %q", l.Name)
	}

	active, err := it.ListActiveLogicalUnits(ctx)
	if err != nil {
		return coreerr.External(err, "listing active LUNs on target %q", t.Name)
	}

	if existing, attached := active[int(l.ID)]; attached && existing != path {
		return coreerr.Invariant("lun id %d already active under target %q with a different backing path", l.ID, t.Name)
	}

	if err := it.AttachLogicalUnit(ctx, path, int(l.ID)); err != nil {
		return coreerr.External(err, "attaching logical unit %q at lun %d", l.Name, l.ID)
	}

	if err := it.UpdateLogicalUnitParams(ctx, int(l.ID), l.VendorID, l.ProductID, l.ProductRev); err != nil {
		return coreerr.External(err, "updating scsi identity for logical unit %q", l.Name)
	}

	return nil
}

// detachFromTarget implements LogicalUnitViewSet.detach_from_target: a
// missing target is not an error, it simply means there is nothing to
// detach.
func (c *Core) detachFromTarget(ctx context.Context, t *db.Target, l *db.LogicalUnit) error {
	it := c.target(t)

	exists, err := it.Exists(ctx)
	if err != nil {
		return coreerr.External(err, "checking target %q existence", t.Name)
	}

	if !exists {
		return nil
	}

	if err := it.DetachLogicalUnit(ctx, int(l.ID)); err != nil {
		return coreerr.External(err, "detaching logical unit %q", l.Name)
	}

	return nil
}
