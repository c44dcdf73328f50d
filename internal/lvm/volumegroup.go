package lvm

import (
	"context"
	"fmt"
	"strings"
)

// VolumeGroup is a named reference to an LVM volume group; the backing
// group is not fetched or cached, it is only consulted when an operation
// runs against it.
type VolumeGroup struct {
	driver *Driver
	name   string
}

// Name returns the volume group's name.
func (vg *VolumeGroup) Name() string {
	return vg.name
}

// Remove runs vgremove.
func (vg *VolumeGroup) Remove(ctx context.Context) error {
	output, err := vg.driver.run.Run(ctx, "vgremove", vg.name)
	if err != nil {
		return fmt.Errorf("vgremove %s: %w", vg.name, err)
	}

	want := fmt.Sprintf("Volume group \"%s\" successfully removed", vg.name)
	if !strings.Contains(output, want) {
		return fmt.Errorf("vgremove %s: unexpected output: %s", vg.name, output)
	}

	return nil
}

// IncludePhysicalVolume runs vgextend to add pvName to the group.
func (vg *VolumeGroup) IncludePhysicalVolume(ctx context.Context, pvName string) error {
	_, err := vg.driver.run.Run(ctx, "vgextend", vg.name, pvName)
	if err != nil {
		return fmt.Errorf("vgextend %s %s: %w", vg.name, pvName, err)
	}

	return nil
}

// ExcludePhysicalVolume runs vgreduce to drop pvName from the group.
func (vg *VolumeGroup) ExcludePhysicalVolume(ctx context.Context, pvName string) error {
	_, err := vg.driver.run.Run(ctx, "vgreduce", vg.name, pvName)
	if err != nil {
		return fmt.Errorf("vgreduce %s %s: %w", vg.name, pvName, err)
	}

	return nil
}

// PhysicalVolumes lists the physical volumes backing this group, optionally
// filtered to those whose path contains name.
func (vg *VolumeGroup) PhysicalVolumes(ctx context.Context, name string) ([]*PhysicalVolume, error) {
	output, err := vg.driver.run.Run(ctx, "pvdisplay", "-c")
	if err != nil {
		return nil, fmt.Errorf("pvdisplay -c: %w", err)
	}

	var pvs []*PhysicalVolume

	for _, line := range nonEmptyLines(output) {
		cols := strings.Split(line, ":")
		if len(cols) < 2 {
			continue
		}

		if name != "" && !strings.Contains(cols[0], name) {
			continue
		}

		if cols[1] != vg.name {
			continue
		}

		pvs = append(pvs, &PhysicalVolume{driver: vg.driver, path: cols[0]})
	}

	return pvs, nil
}

// ContainsLogicalVolume reports whether lvName exists in this group.
func (vg *VolumeGroup) ContainsLogicalVolume(ctx context.Context, lvName string) (bool, error) {
	output, err := vg.driver.run.Run(ctx, "lvdisplay", "-c")
	if err != nil {
		return false, fmt.Errorf("lvdisplay -c: %w", err)
	}

	for _, line := range nonEmptyLines(output) {
		cols := strings.Split(line, ":")
		if len(cols) < 2 {
			continue
		}

		if strings.HasSuffix(cols[0], "/"+lvName) && cols[1] == vg.name {
			return true, nil
		}
	}

	return false, nil
}

// CreateLogicalVolume runs lvcreate --size <n><unit>.
func (vg *VolumeGroup) CreateLogicalVolume(ctx context.Context, lvName string, size float64, unit string) (*LogicalVolume, error) {
	if unit == "" {
		unit = "GiB"
	}

	output, err := vg.driver.run.Run(ctx, "lvcreate",
		"--name", lvName,
		"--size", fmt.Sprintf("%g%s", size, unit),
		"-W", "y",
		vg.name,
	)
	if err != nil {
		return nil, fmt.Errorf("lvcreate %s/%s: %w", vg.name, lvName, err)
	}

	want := fmt.Sprintf("Logical volume \"%s\" created", lvName)
	if !strings.Contains(output, want) {
		return nil, fmt.Errorf("lvcreate %s/%s: unexpected output: %s", vg.name, lvName, output)
	}

	return &LogicalVolume{driver: vg.driver, path: fmt.Sprintf("/dev/%s/%s", vg.name, lvName)}, nil
}

// RemoveLogicalVolume runs lvremove --force.
func (vg *VolumeGroup) RemoveLogicalVolume(ctx context.Context, lvName string) error {
	output, err := vg.driver.run.Run(ctx, "lvremove", "--force", vg.name+"/"+lvName)
	if err != nil {
		return fmt.Errorf("lvremove %s/%s: %w", vg.name, lvName, err)
	}

	want := fmt.Sprintf("Logical volume \"%s\" successfully removed", lvName)
	if !strings.Contains(output, want) {
		return fmt.Errorf("lvremove %s/%s: unexpected output: %s", vg.name, lvName, output)
	}

	return nil
}

// RenameLogicalVolume runs lvrename and verifies the exact rename line,
// rather than the loose "in volume group" substring the legacy tool
// accepted (see the redesign note on rename verification).
func (vg *VolumeGroup) RenameLogicalVolume(ctx context.Context, lvName, newName string) error {
	output, err := vg.driver.run.Run(ctx, "lvrename", vg.name, lvName, newName)
	if err != nil {
		return fmt.Errorf("lvrename %s %s %s: %w", vg.name, lvName, newName, err)
	}

	want := fmt.Sprintf("Renamed \"%s\" to \"%s\" in volume group \"%s\"", lvName, newName, vg.name)
	if !strings.Contains(output, want) {
		return fmt.Errorf("lvrename %s %s %s: unexpected output: %s", vg.name, lvName, newName, output)
	}

	return nil
}

// isSnapshotLV reports whether the LV at path is a snapshot, per the
// leading attribute letter in `lvs` output.
func (vg *VolumeGroup) isSnapshotLV(ctx context.Context, path string) (bool, error) {
	output, err := vg.driver.run.Run(ctx, "lvs", "-o", "lv_attr", path)
	if err != nil {
		return false, fmt.Errorf("lvs -o lv_attr %s: %w", path, err)
	}

	for _, line := range nonEmptyLines(output) {
		if strings.Contains(line, "Attr") {
			continue
		}

		return strings.HasPrefix(strings.ToLower(line), "s"), nil
	}

	return false, nil
}

// LogicalVolumes lists the non-snapshot logical volumes in this group,
// optionally filtered to those whose path contains name. The result is
// always a slice, even when empty — the legacy tool this is modeled on
// sometimes returned a single bare item instead (see the redesign note on
// get_logical_volumes).
func (vg *VolumeGroup) LogicalVolumes(ctx context.Context, name string) ([]*LogicalVolume, error) {
	output, err := vg.driver.run.Run(ctx, "lvdisplay", "-c")
	if err != nil {
		return nil, fmt.Errorf("lvdisplay -c: %w", err)
	}

	lvs := []*LogicalVolume{}

	for _, line := range nonEmptyLines(output) {
		cols := strings.Split(line, ":")
		if len(cols) < 2 {
			continue
		}

		if name != "" && !strings.Contains(cols[0], name) {
			continue
		}

		if cols[1] != vg.name {
			continue
		}

		isSnap, err := vg.isSnapshotLV(ctx, cols[0])
		if err != nil {
			return nil, err
		}

		if isSnap {
			continue
		}

		lvs = append(lvs, &LogicalVolume{driver: vg.driver, path: cols[0]})
	}

	return lvs, nil
}
