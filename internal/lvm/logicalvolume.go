package lvm

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// LogicalVolumeInfo is the decoded shape of `lvdisplay` output for a
// regular (non-snapshot) logical volume.
type LogicalVolumeInfo struct {
	Name      string   `mapstructure:"LV Name"`
	Path      string   `mapstructure:"LV Path"`
	VGName    string   `mapstructure:"VG Name"`
	Size      string   `mapstructure:"LV Size"`
	SourceOf  []string `mapstructure:"source_of"`
}

// LogicalVolume is a handle to an LVM logical volume, addressed by its
// device-mapper path (e.g. /dev/vg0/disk1).
type LogicalVolume struct {
	driver *Driver
	path   string
}

// Path returns the logical volume's device path.
func (lv *LogicalVolume) Path() string {
	return lv.path
}

// GetInfo parses `lvdisplay <path>` into a typed struct.
func (lv *LogicalVolume) GetInfo(ctx context.Context) (*LogicalVolumeInfo, error) {
	output, err := lv.driver.run.Run(ctx, "lvdisplay", lv.path)
	if err != nil {
		return nil, fmt.Errorf("lvdisplay %s: %w", lv.path, err)
	}

	raw := parseSection(output, "--- Logical volume ---")

	var info LogicalVolumeInfo
	if err := mapstructure.Decode(raw, &info); err != nil {
		return nil, fmt.Errorf("decoding lvdisplay output for %s: %w", lv.path, err)
	}

	return &info, nil
}

// Size returns the logical volume's size and unit, e.g. (20, "GiB").
func (lv *LogicalVolume) Size(ctx context.Context) (float64, string, error) {
	info, err := lv.GetInfo(ctx)
	if err != nil {
		return 0, "", err
	}

	return parseSizeField(info.Size)
}

func parseSizeField(field string) (float64, string, error) {
	fields := strings.Fields(field)
	if len(fields) != 2 {
		return 0, "", fmt.Errorf("unparseable LVM size field: %q", field)
	}

	value, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, "", fmt.Errorf("unparseable LVM size field: %q: %w", field, err)
	}

	return value, fields[1], nil
}

// VolumeGroup returns a handle to the group this volume belongs to.
func (lv *LogicalVolume) VolumeGroup(ctx context.Context) (*VolumeGroup, error) {
	info, err := lv.GetInfo(ctx)
	if err != nil {
		return nil, err
	}

	return lv.driver.VolumeGroup(info.VGName), nil
}

// DumpToImage copies the volume's contents to dst via dd.
func (lv *LogicalVolume) DumpToImage(ctx context.Context, dst string) (string, error) {
	output, err := lv.driver.run.Run(ctx, "dd", "if="+lv.path, "of="+dst, "bs=4M")
	if err != nil {
		return "", fmt.Errorf("dd if=%s of=%s: %w", lv.path, dst, err)
	}

	return output, nil
}

// RestoreFromImage copies src's contents onto the volume via dd.
func (lv *LogicalVolume) RestoreFromImage(ctx context.Context, src string) (string, error) {
	output, err := lv.driver.run.Run(ctx, "dd", "if="+src, "of="+lv.path, "bs=4M")
	if err != nil {
		return "", fmt.Errorf("dd if=%s of=%s: %w", src, lv.path, err)
	}

	return output, nil
}

// ContainsSnapshot reports whether snapName is among this volume's snapshots.
func (lv *LogicalVolume) ContainsSnapshot(ctx context.Context, snapName string) (bool, error) {
	info, err := lv.GetInfo(ctx)
	if err != nil {
		return false, err
	}

	for _, s := range info.SourceOf {
		if s == snapName {
			return true, nil
		}
	}

	return false, nil
}

// Snapshots lists the snapshots of this volume, optionally filtered to the
// single snapshot named snapName.
func (lv *LogicalVolume) Snapshots(ctx context.Context, snapName string) ([]*Snapshot, error) {
	info, err := lv.GetInfo(ctx)
	if err != nil {
		return nil, err
	}

	snaps := []*Snapshot{}

	for _, name := range info.SourceOf {
		if snapName != "" && name != snapName {
			continue
		}

		path := strings.Replace(lv.path, info.Name, name, 1)
		snaps = append(snaps, &Snapshot{lv: &LogicalVolume{driver: lv.driver, path: path}})
	}

	return snaps, nil
}

// CreateSnapshot runs lvcreate --snapshot against this volume.
func (lv *LogicalVolume) CreateSnapshot(ctx context.Context, snapName string, size float64, unit string) (*Snapshot, error) {
	if unit == "" {
		unit = "GiB"
	}

	output, err := lv.driver.run.Run(ctx, "lvcreate",
		"--name", snapName,
		"--snapshot", lv.path,
		"--size", fmt.Sprintf("%g%s", size, unit),
	)
	if err != nil {
		return nil, fmt.Errorf("lvcreate --snapshot %s: %w", lv.path, err)
	}

	want := fmt.Sprintf("Logical volume \"%s\" created", snapName)
	if !strings.Contains(output, want) {
		return nil, fmt.Errorf("lvcreate --snapshot %s: unexpected output: %s", lv.path, output)
	}

	info, err := lv.GetInfo(ctx)
	if err != nil {
		return nil, err
	}

	path := strings.Replace(lv.path, info.Name, snapName, 1)

	return &Snapshot{lv: &LogicalVolume{driver: lv.driver, path: path}}, nil
}

// RemoveSnapshot runs lvremove --force against the named snapshot.
func (lv *LogicalVolume) RemoveSnapshot(ctx context.Context, snapName string) error {
	vg, err := lv.VolumeGroup(ctx)
	if err != nil {
		return err
	}

	output, err := lv.driver.run.Run(ctx, "lvremove", "--force", vg.Name()+"/"+snapName)
	if err != nil {
		return fmt.Errorf("lvremove %s/%s: %w", vg.Name(), snapName, err)
	}

	want := fmt.Sprintf("Logical volume \"%s\" successfully removed", snapName)
	if !strings.Contains(output, want) {
		return fmt.Errorf("lvremove %s/%s: unexpected output: %s", vg.Name(), snapName, output)
	}

	return nil
}

// RevertToSnapshot removes and recreates snapName at its recorded COW-table
// size, the LVM-native equivalent of a rollback.
func (lv *LogicalVolume) RevertToSnapshot(ctx context.Context, snapName string) error {
	snaps, err := lv.Snapshots(ctx, snapName)
	if err != nil {
		return err
	}

	if len(snaps) == 0 {
		return fmt.Errorf("no snapshot named %q on %s", snapName, lv.path)
	}

	size, unit, err := snaps[0].Size(ctx)
	if err != nil {
		return err
	}

	if err := lv.RemoveSnapshot(ctx, snapName); err != nil {
		return err
	}

	_, err = lv.CreateSnapshot(ctx, snapName, size, unit)
	return err
}

// RenameSnapshot renames one of this volume's snapshots in place.
func (lv *LogicalVolume) RenameSnapshot(ctx context.Context, snapName, newName string) error {
	vg, err := lv.VolumeGroup(ctx)
	if err != nil {
		return err
	}

	output, err := lv.driver.run.Run(ctx, "lvrename", vg.Name(), snapName, newName)
	if err != nil {
		return fmt.Errorf("lvrename %s %s %s: %w", vg.Name(), snapName, newName, err)
	}

	want := fmt.Sprintf("Renamed \"%s\" to \"%s\" in volume group \"%s\"", snapName, newName, vg.Name())
	if !strings.Contains(output, want) {
		return fmt.Errorf("lvrename %s %s %s: unexpected output: %s", vg.Name(), snapName, newName, output)
	}

	return nil
}
