package core

import (
	"context"

	"github.com/nls90/bootd/internal/coreerr"
	"github.com/nls90/bootd/internal/db"
)

// CreateSnapshot implements SnapshotViewSet.create: the owning LogicalUnit
// must be OFFLINE (an Invariant-testable property, §8.6), the backing
// volume is detached defensively first, and the LVM snapshot must not
// already exist under that name before the metadata row is written.
func (c *Core) CreateSnapshot(ctx context.Context, sn *db.Snapshot) (int64, error) {
	l, err := c.Store.GetLogicalUnit(sn.LogicalUnitID)
	if err != nil {
		return 0, err
	}

	if l.Status != db.LogicalUnitOffline {
		return 0, coreerr.Conflict("logical unit %q must be offline and its initiator machine turned off", l.Name)
	}

	if l.TargetID != nil {
		t, err := c.Store.GetTarget(*l.TargetID)
		if err != nil {
			return 0, err
		}

		if err := c.detachFromTarget(ctx, t, l); err != nil {
			return 0, err
		}
	}

	vg := c.LVM.VolumeGroup(l.Group)

	lvs, err := vg.LogicalVolumes(ctx, l.Name)
	if err != nil {
		return 0, coreerr.External(err, "listing logical volumes in group %q", l.Group)
	}

	if len(lvs) == 0 {
		return 0, coreerr.NotFound("logical volume %q not found in group %q", l.Name, l.Group)
	}

	already, err := lvs[0].ContainsSnapshot(ctx, sn.Name)
	if err != nil {
		return 0, coreerr.External(err, "checking for existing snapshot %q", sn.Name)
	}

	if already {
		return 0, coreerr.Conflict("snapshot %q already exists on logical unit %q", sn.Name, l.Name)
	}

	size := sn.SizeInGB
	if size <= 0 {
		size = 5.0
	}

	sn.SizeInGB = size

	if _, err := lvs[0].CreateSnapshot(ctx, sn.Name, size, "GiB"); err != nil {
		return 0, coreerr.External(err, "creating snapshot %q", sn.Name)
	}

	return c.Store.CreateSnapshot(sn)
}

// DeleteSnapshot implements SnapshotViewSet.destroy: same OFFLINE guard,
// LVM removal when the backing volume can be listed and found (a failed
// removal returns an error and keeps the row), then the metadata row.
func (c *Core) DeleteSnapshot(ctx context.Context, snapshotID int64) error {
	sn, err := c.Store.GetSnapshot(snapshotID)
	if err != nil {
		return err
	}

	l, err := c.Store.GetLogicalUnit(sn.LogicalUnitID)
	if err != nil {
		return err
	}

	if l.Status != db.LogicalUnitOffline {
		return coreerr.Conflict("logical unit %q must be offline and its initiator machine turned off", l.Name)
	}

	if l.TargetID != nil {
		t, err := c.Store.GetTarget(*l.TargetID)
		if err != nil {
			return err
		}

		if err := c.detachFromTarget(ctx, t, l); err != nil {
			return err
		}
	}

	vg := c.LVM.VolumeGroup(l.Group)

	lvs, err := vg.LogicalVolumes(ctx, l.Name)
	if err == nil && len(lvs) > 0 {
		if err := lvs[0].RemoveSnapshot(ctx, sn.Name); err != nil {
			return coreerr.External(err, "removing snapshot %q", sn.Name)
		}
	}

	return c.Store.DeleteSnapshot(snapshotID)
}

// ActivateSnapshot marks sn the sole active Snapshot of its LogicalUnit,
// enforcing the at-most-one-active invariant (§3) by clearing every other
// Snapshot on that LU first.
func (c *Core) ActivateSnapshot(sn *db.Snapshot) error {
	if err := c.Store.ClearActiveSnapshot(sn.LogicalUnitID); err != nil {
		return err
	}

	sn.Active = true

	return c.Store.UpdateSnapshot(sn)
}
