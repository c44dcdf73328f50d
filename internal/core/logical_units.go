package core

import (
	"context"
	"fmt"

	"github.com/nls90/bootd/internal/coreerr"
	"github.com/nls90/bootd/internal/db"
)

// logicalVolume returns the LVM handle backing l, or nil if it no longer
// exists in its recorded group.
func (c *Core) logicalVolume(ctx context.Context, l *db.LogicalUnit) (interface {
	Size(context.Context) (float64, string, error)
	RevertToSnapshot(context.Context, string) error
	DumpToImage(context.Context, string) (string, error)
	RestoreFromImage(context.Context, string) (string, error)
}, error) {
	vg := c.LVM.VolumeGroup(l.Group)

	lvs, err := vg.LogicalVolumes(ctx, l.Name)
	if err != nil {
		return nil, fmt.Errorf("listing logical volumes in group %q: %w", l.Group, err)
	}

	if len(lvs) == 0 {
		return nil, nil
	}

	return lvs[0], nil
}

// GetMountDevicePath implements LogicalUnitViewSet.get_mount_device_path.
func (c *Core) GetMountDevicePath(ctx context.Context, logicalUnitID int64) (string, bool, error) {
	l, err := c.Store.GetLogicalUnit(logicalUnitID)
	if err != nil {
		return "", false, err
	}

	path, err := c.devicePath(ctx, l)
	if err != nil {
		return "", false, coreerr.External(err, "resolving device path for logical unit %q", l.Name)
	}

	return path, path != "", nil
}

// Recreate implements LogicalUnitViewSet.recreate: detach, then remove and
// re-create the backing logical volume at its existing size, discarding any
// contents. The LU must already be a real backing volume; there is nothing
// to recreate otherwise.
func (c *Core) Recreate(ctx context.Context, logicalUnitID int64) error {
	l, err := c.Store.GetLogicalUnit(logicalUnitID)
	if err != nil {
		return err
	}

	vg := c.LVM.VolumeGroup(l.Group)

	lvs, err := vg.LogicalVolumes(ctx, l.Name)
	if err != nil {
		return coreerr.External(err, "listing logical volumes in group %q", l.Group)
	}

	if len(lvs) == 0 {
		return coreerr.NotFound("no logical volume named %q in group %q", l.Name, l.Group)
	}

	size, unit, err := lvs[0].Size(ctx)
	if err != nil {
		return coreerr.External(err, "reading size of logical volume %q", l.Name)
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

	if err := vg.RemoveLogicalVolume(ctx, l.Name); err != nil {
		return coreerr.External(err, "removing logical volume %q", l.Name)
	}

	if _, err := vg.CreateLogicalVolume(ctx, l.Name, size, unit); err != nil {
		return coreerr.External(err, "recreating logical volume %q", l.Name)
	}

	return nil
}

// Revert implements LogicalUnitViewSet.revert: refused while the LU is BUSY
// or MOUNTED, otherwise detaches it and rolls the backing volume back to
// the requested (or, absent one, the currently active) snapshot.
func (c *Core) Revert(ctx context.Context, logicalUnitID int64, snapshotName string) (bool, string, error) {
	l, err := c.Store.GetLogicalUnit(logicalUnitID)
	if err != nil {
		return false, "", err
	}

	if l.Status == db.LogicalUnitBusy || l.Status == db.LogicalUnitMounted {
		return false, "Disk is busy or mounted, turn machine off and turn disk offline", nil
	}

	if snapshotName == "" {
		active, err := c.Store.GetActiveSnapshot(l.ID)
		if err != nil {
			return false, "", err
		}

		if active == nil {
			return false, "Could not find any active snapshot to revert to", nil
		}

		snapshotName = active.Name
	}

	vg := c.LVM.VolumeGroup(l.Group)

	lvs, err := vg.LogicalVolumes(ctx, l.Name)
	if err != nil {
		return false, "", coreerr.External(err, "listing logical volumes in group %q", l.Group)
	}

	if len(lvs) == 0 {
		return false, "Logical volume not found", nil
	}

	if l.TargetID != nil {
		t, err := c.Store.GetTarget(*l.TargetID)
		if err != nil {
			return false, "", err
		}

		if err := c.detachFromTarget(ctx, t, l); err != nil {
			return false, "", err
		}
	}

	if err := lvs[0].RevertToSnapshot(ctx, snapshotName); err != nil {
		return false, fmt.Sprintf("Could not revert to snapshot %q", snapshotName), nil
	}

	l.Status = db.LogicalUnitOnline
	if err := c.Store.UpdateLogicalUnit(l); err != nil {
		return false, "", err
	}

	return true, fmt.Sprintf("Successfully reverted to snapshot %q", snapshotName), nil
}

// Dump implements LogicalUnitViewSet.dump, copying the backing volume's
// contents to localFile via dd.
func (c *Core) Dump(ctx context.Context, logicalUnitID int64, localFile string) (string, error) {
	l, err := c.Store.GetLogicalUnit(logicalUnitID)
	if err != nil {
		return "", err
	}

	lv, err := c.logicalVolume(ctx, l)
	if err != nil {
		return "", err
	}

	if lv == nil {
		return "", coreerr.NotFound("logical volume not found for logical unit %q", l.Name)
	}

	return lv.DumpToImage(ctx, localFile)
}

// Restore implements LogicalUnitViewSet.restore, the inverse of Dump.
func (c *Core) Restore(ctx context.Context, logicalUnitID int64, localFile string) (string, error) {
	l, err := c.Store.GetLogicalUnit(logicalUnitID)
	if err != nil {
		return "", err
	}

	lv, err := c.logicalVolume(ctx, l)
	if err != nil {
		return "", err
	}

	if lv == nil {
		return "", coreerr.NotFound("logical volume not found for logical unit %q", l.Name)
	}

	return lv.RestoreFromImage(ctx, localFile)
}

// CreateLogicalUnit implements LogicalUnitViewSet.create: the named group
// must be a live LVM volume group, the backing logical volume must not
// already exist under it, is created at the requested size, and the
// metadata row is written only once the LVM side effect has succeeded.
func (c *Core) CreateLogicalUnit(ctx context.Context, l *db.LogicalUnit) (int64, error) {
	groups, err := c.LVM.VolumeGroups(ctx)
	if err != nil {
		return 0, coreerr.External(err, "listing volume groups")
	}

	known := false
	for _, g := range groups {
		if g.Name() == l.Group {
			known = true
			break
		}
	}

	if !known {
		return 0, coreerr.NotFound("volume group %q not found", l.Group)
	}

	vg := c.LVM.VolumeGroup(l.Group)

	exists, err := vg.ContainsLogicalVolume(ctx, l.Name)
	if err != nil {
		return 0, coreerr.External(err, "checking for existing logical volume %q", l.Name)
	}

	if exists {
		return 0, coreerr.Conflict("logical unit %q already exists in group %q", l.Name, l.Group)
	}

	size := l.SizeInGB
	if size <= 0 {
		size = 20.0
	}

	l.SizeInGB = size

	if _, err := vg.CreateLogicalVolume(ctx, l.Name, size, "GiB"); err != nil {
		return 0, coreerr.External(err, "creating logical volume %q", l.Name)
	}

	return c.Store.CreateLogicalUnit(l)
}

// DeleteLogicalUnit implements LogicalUnitViewSet.destroy: detach first,
// then remove the backing logical volume if one still exists, then delete
// the metadata row.
func (c *Core) DeleteLogicalUnit(ctx context.Context, logicalUnitID int64) error {
	l, err := c.Store.GetLogicalUnit(logicalUnitID)
	if err != nil {
		return err
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

	exists, err := vg.ContainsLogicalVolume(ctx, l.Name)
	if err != nil {
		return coreerr.External(err, "checking for logical volume %q", l.Name)
	}

	if exists {
		if err := vg.RemoveLogicalVolume(ctx, l.Name); err != nil {
			return coreerr.External(err, "removing logical volume %q", l.Name)
		}
	}

	return c.Store.DeleteLogicalUnit(logicalUnitID)
}
