// Package lvm models the LVM object hierarchy (volume groups, logical
// volumes, snapshots, disks, partitions) by driving the lvm2 and
// util-linux command-line tools and parsing their textual output. Success
// is detected by exact substring matches against the tools' own messages,
// per the upstream tool's own convention — each expected message is built
// inline at the call site that checks it.
package lvm

import (
	"context"
	"fmt"
	"strings"

	"github.com/nls90/bootd/internal/subprocess"
)

// Driver runs lvm2/util-linux tools through a subprocess.Runner.
type Driver struct {
	run subprocess.Runner
}

// New returns a Driver that executes commands through run.
func New(run subprocess.Runner) *Driver {
	return &Driver{run: run}
}

// VolumeGroup returns a handle to a volume group by name; it performs no
// I/O and never fails, matching the upstream tools' "name is just a
// reference" convention — existence is only checked when an operation runs.
func (d *Driver) VolumeGroup(name string) *VolumeGroup {
	return &VolumeGroup{driver: d, name: name}
}

// CreateVolumeGroup runs vgcreate over the given physical volumes.
func (d *Driver) CreateVolumeGroup(ctx context.Context, name string, pvs []string) (*VolumeGroup, error) {
	args := append([]string{name}, pvs...)

	output, err := d.run.Run(ctx, "vgcreate", args...)
	if err != nil {
		return nil, fmt.Errorf("vgcreate %s: %w", name, err)
	}

	want := fmt.Sprintf("Volume group \"%s\" successfully created", name)
	if !strings.Contains(output, want) {
		return nil, fmt.Errorf("vgcreate %s: unexpected output: %s", name, output)
	}

	return d.VolumeGroup(name), nil
}

// VolumeGroups lists every volume group known to LVM.
func (d *Driver) VolumeGroups(ctx context.Context) ([]*VolumeGroup, error) {
	output, err := d.run.Run(ctx, "vgdisplay", "-c")
	if err != nil {
		return nil, fmt.Errorf("vgdisplay -c: %w", err)
	}

	var vgs []*VolumeGroup

	for _, line := range nonEmptyLines(output) {
		name := strings.SplitN(line, ":", 2)[0]
		if name == "" {
			continue
		}

		vgs = append(vgs, d.VolumeGroup(name))
	}

	return vgs, nil
}

// nonEmptyLines splits output on newlines, trims each line, and drops blanks.
func nonEmptyLines(output string) []string {
	var lines []string

	for _, raw := range strings.Split(output, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		lines = append(lines, line)
	}

	return lines
}
