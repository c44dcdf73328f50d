package core

import (
	"context"
	"strconv"
	"time"

	"github.com/nls90/bootd/internal/coreerr"
	"github.com/nls90/bootd/internal/db"
)

// AttachAllUsableLogicalUnits implements TargetViewSet.attach_all_usable_logical_units:
// every LogicalUnit under target with status=OFFLINE and use=true is
// detached (if somehow already attached), re-attached, and promoted ONLINE.
func (c *Core) AttachAllUsableLogicalUnits(ctx context.Context, targetID int64) error {
	t, err := c.Store.GetTarget(targetID)
	if err != nil {
		return err
	}

	offline := db.LogicalUnitOffline

	units, err := c.Store.ListLogicalUnits(&targetID, &offline)
	if err != nil {
		return err
	}

	for _, l := range units {
		if !l.Use {
			continue
		}

		if err := c.detachFromTarget(ctx, t, l); err != nil {
			return err
		}

		if err := c.attachToTarget(ctx, t, l); err != nil {
			return err
		}

		l.Status = db.LogicalUnitOnline
		if err := c.Store.UpdateLogicalUnit(l); err != nil {
			return err
		}
	}

	return nil
}

// getBootLogicalUnit implements TargetViewSet.get_boot_logical_unit: roll
// the currently BUSY LU to MODIFIED when its boot allowance is spent and it
// carries an active snapshot, then pick the next candidate per the §4.5.3
// precedence (never-booted first, else earliest last_attached, ties broken
// by insertion order — NextBootCandidate already encodes that ordering).
func (c *Core) getBootLogicalUnit(ctx context.Context, t *db.Target) (*db.LogicalUnit, error) {
	busy, err := c.Store.FirstLogicalUnitWithStatus(t.ID, db.LogicalUnitBusy)
	if err != nil {
		return nil, err
	}

	if busy != nil && busy.BootCount <= 0 {
		active, err := c.Store.GetActiveSnapshot(busy.ID)
		if err != nil {
			return nil, err
		}

		if active != nil {
			busy.Status = db.LogicalUnitModified
		} else {
			busy.Status = db.LogicalUnitOnline
		}

		if err := c.Store.UpdateLogicalUnit(busy); err != nil {
			return nil, err
		}

		if err := c.detachFromTarget(ctx, t, busy); err != nil {
			return nil, err
		}
	}

	return c.Store.NextBootCandidate(t.ID)
}

// BootResult is the JSON-facing outcome of a boot or map negotiation.
type BootResult struct {
	Result  bool   `json:"result"`
	LUN     string `json:"lun,omitempty"`
	IQN     string `json:"iqn,omitempty"`
	Message string `json:"message,omitempty"`
}

// GetBootDiskInfo implements the §4.5.3 procedure end to end: reconcile the
// target's live LUN table, close the initiator's stale connections, select
// the next boot candidate, attach it, and commit the metadata transition.
// The first request for a Target holds a per-target advisory lock for the
// whole negotiation. Requests blocked behind it are woken when it finishes
// and then run their own negotiation without holding the lock, so several
// woken requests can interleave their detach-all/attach steps.
func (c *Core) GetBootDiskInfo(ctx context.Context, targetID int64) (*BootResult, error) {
	trace := traceID()
	log := c.Log.WithFields(map[string]any{"trace": trace, "target_id": targetID, "op": "get_boot_disk_info"})

	friendly, release, err := c.lock(ctx, bootLockKey(targetID))
	if err != nil {
		return nil, coreerr.External(err, "acquiring boot lock for target %d", targetID)
	}

	if friendly {
		// Another negotiation just ran to completion against this target and
		// released the lock on our behalf. We hold no lock here; the full
		// negotiation below runs again, reading the daemon and metadata
		// afresh rather than reusing the holder's answer (see the
		// concurrency model's reconcile policy).
		log.Debug("boot negotiation served by a concurrent holder, re-deriving result")
	} else {
		defer release()
	}

	t, err := c.Store.GetTarget(targetID)
	if err != nil {
		return nil, err
	}

	if t.InitiatorID == nil {
		return &BootResult{Result: false, Message: "target has no bound initiator"}, nil
	}

	initiator, err := c.Store.GetInitiator(*t.InitiatorID)
	if err != nil {
		return nil, err
	}

	it := c.target(t)

	exists, err := it.Exists(ctx)
	if err != nil {
		return nil, coreerr.External(err, "checking target %q existence", t.Name)
	}

	if !exists {
		if err := it.Add(ctx); err != nil {
			return nil, coreerr.External(err, "creating target %q", t.Name)
		}
	}

	if err := it.BindToInitiator(ctx, "", "address"); err != nil {
		return nil, coreerr.External(err, "binding target %q to initiator", t.Name)
	}

	active, err := it.ListActiveLogicalUnits(ctx)
	if err != nil {
		return nil, coreerr.External(err, "listing active LUNs on target %q", t.Name)
	}

	for lun := range active {
		if err := it.DetachLogicalUnit(ctx, lun); err != nil {
			return nil, coreerr.External(err, "detaching lun %d on target %q", lun, t.Name)
		}
	}

	if initiator.IPAddress != "" {
		if err := it.CloseInitiatorConnections(ctx, initiator.IPAddress); err != nil {
			return nil, coreerr.External(err, "closing connections for initiator %q", initiator.MACAddress)
		}
	}

	next, err := c.getBootLogicalUnit(ctx, t)
	if err != nil {
		return nil, err
	}

	if next == nil {
		return &BootResult{Result: false, Message: "No logical unit found for booting"}, nil
	}

	if err := c.attachToTarget(ctx, t, next); err != nil {
		log.WithError(err).Warn("failed to attach selected boot disk")
		return &BootResult{Result: false, Message: "Unable to attach logical unit to target"}, nil
	}

	next.Status = db.LogicalUnitBusy
	now := time.Now()
	next.LastAttached = &now

	if next.BootCount > 0 {
		next.BootCount--
	}

	if err := c.Store.UpdateLogicalUnit(next); err != nil {
		return nil, err
	}

	initiator.LastInitiated = &now
	if err := c.Store.UpdateInitiator(initiator); err != nil {
		return nil, err
	}

	return &BootResult{
		Result:  true,
		LUN:     hexID(next.ID),
		IQN:     it.Name(),
		Message: "use lun id and iqn to form iSCSI URL",
	}, nil
}

// GetMapDiskInfo implements §4.5.4: attach a MODIFIED disk back to the
// control host once the target driver confirms the daemon's LUN id matches
// the LogicalUnit's id exactly.
func (c *Core) GetMapDiskInfo(ctx context.Context, targetID int64) (*BootResult, error) {
	friendly, release, err := c.lock(ctx, bootLockKey(targetID))
	if err != nil {
		return nil, coreerr.External(err, "acquiring boot lock for target %d", targetID)
	}

	if !friendly {
		defer release()
	}

	t, err := c.Store.GetTarget(targetID)
	if err != nil {
		return nil, err
	}

	it := c.target(t)

	exists, err := it.Exists(ctx)
	if err != nil {
		return nil, coreerr.External(err, "checking target %q existence", t.Name)
	}

	if !exists {
		if err := it.Add(ctx); err != nil {
			return nil, coreerr.External(err, "creating target %q", t.Name)
		}
	}

	if err := it.BindToInitiator(ctx, "", "address"); err != nil {
		return nil, coreerr.External(err, "binding target %q to initiator", t.Name)
	}

	modified, err := c.Store.FirstLogicalUnitWithStatus(t.ID, db.LogicalUnitModified)
	if err != nil {
		return nil, err
	}

	if modified == nil {
		return &BootResult{Result: false, Message: "No logical unit found for mapping"}, nil
	}

	path, err := c.devicePath(ctx, modified)
	if err != nil {
		return nil, coreerr.External(err, "resolving device path for logical unit %q", modified.Name)
	}

	if path == "" {
		return &BootResult{Result: false, Message: "No logical volume path was discovered"}, nil
	}

	lun, bound, err := it.GetLogicalUnitNumber(ctx, path)
	if err != nil {
		return nil, coreerr.External(err, "resolving lun for device path %q", path)
	}

	if !bound || int64(lun) != modified.ID {
		return &BootResult{Result: false, Message: "No target online or online with different id"}, nil
	}

	modified.Status = db.LogicalUnitMounted
	if err := c.Store.UpdateLogicalUnit(modified); err != nil {
		return nil, err
	}

	return &BootResult{
		Result:  true,
		LUN:     hexID(modified.ID),
		IQN:     it.Name(),
		Message: "use lun id and iqn to form iSCSI URL",
	}, nil
}

// DestroyTarget implements §4.5.5: close connections, detach every LUN,
// remove the target from the daemon, then delete the metadata row. Any
// external-tool failure propagates without deleting metadata, so a retry
// can pick up where it left off.
func (c *Core) DestroyTarget(ctx context.Context, targetID int64) error {
	t, err := c.Store.GetTarget(targetID)
	if err != nil {
		return err
	}

	it := c.target(t)

	exists, err := it.Exists(ctx)
	if err != nil {
		return coreerr.External(err, "checking target %q existence", t.Name)
	}

	if exists {
		if err := it.CloseAllConnections(ctx); err != nil {
			return coreerr.External(err, "closing connections on target %q", t.Name)
		}

		if err := it.DetachAllLogicalUnits(ctx); err != nil {
			return coreerr.External(err, "detaching luns on target %q", t.Name)
		}

		if err := it.Remove(ctx); err != nil {
			return coreerr.External(err, "removing target %q", t.Name)
		}
	}

	return c.Store.DeleteTarget(targetID)
}

func hexID(id int64) string {
	return strconv.FormatInt(id, 16)
}

func bootLockKey(targetID int64) string {
	return "target-boot:" + hexID(targetID)
}
