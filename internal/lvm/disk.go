package lvm

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Partition describes one row of `fdisk -u=sectors --bytes -l` output.
type Partition struct {
	PathID     string
	Boot       bool
	StartSect  int64
	EndSect    int64
	Sectors    int64
	SizeBytes  int64
	PartitionID int
	Type       string
}

// SizeGiB returns the partition's size in whole gibibytes.
func (p Partition) SizeGiB() int64 {
	return p.SizeBytes / (1024 * 1024 * 1024)
}

var sectorSizePattern = regexp.MustCompile(`Sector size .*?: (\d+) bytes`)

// Disk is a general block device — a physical disk, an LVM LV, or any
// other device fdisk can describe.
type Disk struct {
	driver     *Driver
	devicePath string
}

// NewDisk wraps an arbitrary block device path for fdisk/mount operations.
func (d *Driver) NewDisk(devicePath string) *Disk {
	return &Disk{driver: d, devicePath: devicePath}
}

// Path returns the disk's device path.
func (disk *Disk) Path() string {
	return disk.devicePath
}

// Disks lists every whole-disk device fdisk reports.
func (d *Driver) Disks(ctx context.Context) ([]string, error) {
	output, err := d.run.Run(ctx, "fdisk", "-l")
	if err != nil {
		return nil, fmt.Errorf("fdisk -l: %w", err)
	}

	diskPattern := regexp.MustCompile(`^Disk\s+(/dev/sd[a-z]+):`)

	var disks []string

	for _, line := range nonEmptyLines(output) {
		match := diskPattern.FindStringSubmatch(line)
		if match != nil {
			disks = append(disks, match[1])
		}
	}

	return disks, nil
}

// GetPartitions parses `fdisk -u=sectors --bytes -l <device>` into
// Partition records.
func (disk *Disk) GetPartitions(ctx context.Context) ([]Partition, int64, error) {
	output, err := disk.driver.run.Run(ctx, "fdisk", "-u=sectors", "--bytes", "-l", disk.devicePath)
	if err != nil {
		return nil, 0, fmt.Errorf("fdisk -l %s: %w", disk.devicePath, err)
	}

	var sectorSize int64
	var partitions []Partition
	inTable := false

	for _, line := range nonEmptyLines(output) {
		if match := sectorSizePattern.FindStringSubmatch(line); match != nil {
			sectorSize, _ = strconv.ParseInt(match[1], 10, 64)
			continue
		}

		if regexp.MustCompile(`^Device\s+Boot\s+Start\s+End`).MatchString(line) {
			inTable = true
			continue
		}

		if !inTable {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 7 {
			continue
		}

		boot := fields[1] == "*"
		offset := 1
		if boot {
			offset = 2
		}

		p := Partition{PathID: fields[0], Boot: boot}
		p.StartSect, _ = strconv.ParseInt(fields[offset], 10, 64)
		p.EndSect, _ = strconv.ParseInt(fields[offset+1], 10, 64)
		p.Sectors, _ = strconv.ParseInt(fields[offset+2], 10, 64)
		p.SizeBytes, _ = strconv.ParseInt(fields[offset+3], 10, 64)
		id, _ := strconv.Atoi(fields[offset+4])
		p.PartitionID = id

		if offset+5 < len(fields) {
			p.Type = strings.Join(fields[offset+5:], " ")
		}

		partitions = append(partitions, p)
	}

	return partitions, sectorSize, nil
}

// Mount finds the first partition larger than 1 GiB and loop-mounts it
// read/write at the given byte offset.
func (disk *Disk) Mount(ctx context.Context, mountPoint string) error {
	partitions, sectorSize, err := disk.GetPartitions(ctx)
	if err != nil {
		return err
	}

	for _, p := range partitions {
		if p.SizeBytes <= 1024*1024*1024 {
			continue
		}

		offset := p.StartSect * sectorSize

		_, err := disk.driver.run.Run(ctx, "mount",
			"--rw", "--options", fmt.Sprintf("loop,offset=%d", offset),
			disk.devicePath, mountPoint,
		)
		if err != nil {
			return fmt.Errorf("mount %s at %s: %w", disk.devicePath, mountPoint, err)
		}

		return nil
	}

	return fmt.Errorf("no partition larger than 1 GiB on %s", disk.devicePath)
}

// Unmount force-unmounts mountPoint.
func (disk *Disk) Unmount(ctx context.Context, mountPoint string) error {
	_, err := disk.driver.run.Run(ctx, "umount", "-f", mountPoint)
	if err != nil {
		return fmt.Errorf("umount -f %s: %w", mountPoint, err)
	}

	return nil
}
