package lvm

import (
	"context"
	"fmt"
	"strings"
)

// PhysicalVolume is a handle to an LVM physical volume, addressed by its
// backing block-device path.
type PhysicalVolume struct {
	driver *Driver
	path   string
}

// CreatePhysicalVolume runs pvcreate against a raw partition path.
func (d *Driver) CreatePhysicalVolume(ctx context.Context, partitionPath string) (*PhysicalVolume, error) {
	output, err := d.run.Run(ctx, "pvcreate", partitionPath)
	if err != nil {
		return nil, fmt.Errorf("pvcreate %s: %w", partitionPath, err)
	}

	want := fmt.Sprintf("Physical volume \"%s\" successfully created", partitionPath)
	if !strings.Contains(output, want) {
		return nil, fmt.Errorf("pvcreate %s: unexpected output: %s", partitionPath, output)
	}

	return &PhysicalVolume{driver: d, path: partitionPath}, nil
}

// PhysicalVolumes lists every physical volume known to LVM.
func (d *Driver) PhysicalVolumes(ctx context.Context) ([]*PhysicalVolume, error) {
	output, err := d.run.Run(ctx, "pvdisplay", "-c")
	if err != nil {
		return nil, fmt.Errorf("pvdisplay -c: %w", err)
	}

	var pvs []*PhysicalVolume

	for _, line := range nonEmptyLines(output) {
		if strings.Contains(line, "is a new physical volume of") {
			continue
		}

		path := strings.SplitN(line, ":", 2)[0]
		if path == "" {
			continue
		}

		pvs = append(pvs, &PhysicalVolume{driver: d, path: path})
	}

	return pvs, nil
}

// Path returns the physical volume's backing device path.
func (pv *PhysicalVolume) Path() string {
	return pv.path
}

// VolumeGroup returns the group this physical volume belongs to, if any.
func (pv *PhysicalVolume) VolumeGroup(ctx context.Context) (*VolumeGroup, error) {
	output, err := pv.driver.run.Run(ctx, "pvdisplay", pv.path)
	if err != nil {
		return nil, fmt.Errorf("pvdisplay %s: %w", pv.path, err)
	}

	info := parseSection(output, "--- Physical volume ---")
	if len(info) == 0 {
		info = parseSection(output, "--- NEW Physical volume ---")
	}

	name, _ := info["VG Name"].(string)

	return pv.driver.VolumeGroup(name), nil
}

// Remove runs pvremove.
func (pv *PhysicalVolume) Remove(ctx context.Context) error {
	output, err := pv.driver.run.Run(ctx, "pvremove", pv.path)
	if err != nil {
		return fmt.Errorf("pvremove %s: %w", pv.path, err)
	}

	want := fmt.Sprintf("Labels on physical volume \"%s\" successfully wiped", pv.path)
	if !strings.Contains(output, want) {
		return fmt.Errorf("pvremove %s: unexpected output: %s", pv.path, output)
	}

	return nil
}
