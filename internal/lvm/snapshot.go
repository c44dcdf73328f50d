package lvm

import (
	"context"
	"errors"
	"path"
	"regexp"
)

// ErrSnapshotOfSnapshot is returned by every Snapshot method that would
// operate on a snapshot of a snapshot — composition lets Snapshot expose a
// block-device-like surface without inheriting LogicalVolume's full
// snapshot API.
var ErrSnapshotOfSnapshot = errors.New("lvm: snapshot of snapshot is not supported")

var snapshotParentPattern = regexp.MustCompile(`active destination for ([a-zA-Z0-9_.-]+)`)

// Snapshot is a copy-on-write child of a LogicalVolume. It holds an LV
// handle rather than extending LogicalVolume, and refuses the subset of
// operations that would require a snapshot-of-a-snapshot.
type Snapshot struct {
	lv *LogicalVolume
}

// Path returns the snapshot's device path.
func (s *Snapshot) Path() string {
	return s.lv.Path()
}

// Size returns the snapshot's allocated COW-table size and unit.
func (s *Snapshot) Size(ctx context.Context) (float64, string, error) {
	output, err := s.lv.driver.run.Run(ctx, "lvdisplay", s.lv.path)
	if err != nil {
		return 0, "", err
	}

	raw := parseSection(output, "--- Logical volume ---")
	field, _ := raw["COW-table size"].(string)

	return parseSizeField(field)
}

// GetInfo re-parses lvdisplay output against the Logical volume section,
// the same section layout LVM uses for snapshots.
func (s *Snapshot) GetInfo(ctx context.Context) (*LogicalVolumeInfo, error) {
	return s.lv.GetInfo(ctx)
}

// Parent returns the LogicalVolume this snapshot was taken from, parsed
// out of the "LV snapshot status" row.
func (s *Snapshot) Parent(ctx context.Context) (*LogicalVolume, error) {
	output, err := s.lv.driver.run.Run(ctx, "lvdisplay", s.lv.path)
	if err != nil {
		return nil, err
	}

	raw := parseSection(output, "--- Logical volume ---")

	status, _ := raw["LV snapshot status"].(string)

	match := snapshotParentPattern.FindStringSubmatch(status)
	if match == nil {
		return nil, nil
	}

	return &LogicalVolume{driver: s.lv.driver, path: path.Join(path.Dir(s.lv.path), match[1])}, nil
}

// Snapshots is not applicable to a Snapshot.
func (s *Snapshot) Snapshots(context.Context, string) ([]*Snapshot, error) {
	return nil, ErrSnapshotOfSnapshot
}

// CreateSnapshot is not applicable to a Snapshot.
func (s *Snapshot) CreateSnapshot(context.Context, string, float64, string) (*Snapshot, error) {
	return nil, ErrSnapshotOfSnapshot
}

// RemoveSnapshot is not applicable to a Snapshot.
func (s *Snapshot) RemoveSnapshot(context.Context, string) error {
	return ErrSnapshotOfSnapshot
}

// RevertToSnapshot is not applicable to a Snapshot.
func (s *Snapshot) RevertToSnapshot(context.Context, string) error {
	return ErrSnapshotOfSnapshot
}

// RenameSnapshot is not applicable to a Snapshot.
func (s *Snapshot) RenameSnapshot(context.Context, string, string) error {
	return ErrSnapshotOfSnapshot
}
