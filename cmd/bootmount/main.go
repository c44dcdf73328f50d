// Command bootmount is the mount agent: it polls bootd for a LogicalUnit
// that just rolled onto a new snapshot (status MODIFIED), resolves its
// device path, and mounts it so a caller can inspect the disk before it
// goes back online. Grounded on the original control plane's
// disk_handler.py DiskFinder/DiskProcessor poll loop.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nls90/bootd/internal/db"
	"github.com/nls90/bootd/internal/subprocess"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "bootmount",
	Short: "Mount the next modified disk for inspection",
	RunE:  run,
}

func init() {
	rootCmd.Flags().String("api", "http://127.0.0.1:8443", "Base URL of the bootd HTTP API")
	rootCmd.Flags().String("mount-point", "/mnt", "Where to mount the disk")
	rootCmd.Flags().Duration("poll-interval", 10*time.Second, "How often to poll for a disk to mount")
	rootCmd.Flags().Bool("once", false, "Poll once and exit instead of looping")
}

func run(cmd *cobra.Command, args []string) error {
	apiBase, _ := cmd.Flags().GetString("api")
	mountPoint, _ := cmd.Flags().GetString("mount-point")
	pollInterval, _ := cmd.Flags().GetDuration("poll-interval")
	once, _ := cmd.Flags().GetBool("once")

	log := logrus.StandardLogger()

	a := &agent{
		apiBase:    apiBase,
		mountPoint: mountPoint,
		client:     &http.Client{Timeout: 10 * time.Second},
		run:        subprocess.NewExecRunner(true, log.WithField("subsystem", "bootmount")),
		log:        log,
	}

	ctx := context.Background()

	if once {
		return a.tick(ctx)
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		if err := a.tick(ctx); err != nil {
			a.log.WithError(err).Warn("poll failed")
		}

		<-ticker.C
	}
}

type agent struct {
	apiBase    string
	mountPoint string
	client     *http.Client
	run        subprocess.Runner
	log        logrus.FieldLogger
}

// tick runs one DiskFinder.get_disk_to_mount pass: find the next
// MODIFIED logical unit, resolve its device path, and mount it.
func (a *agent) tick(ctx context.Context) error {
	unit, err := a.nextModifiedUnit(ctx)
	if err != nil {
		return fmt.Errorf("listing modified logical units: %w", err)
	}

	if unit == nil {
		return nil
	}

	devicePath, ok, err := a.mountDevicePath(ctx, unit.ID)
	if err != nil {
		return fmt.Errorf("resolving device path for logical unit %d: %w", unit.ID, err)
	}

	if !ok {
		a.log.WithField("logical_unit_id", unit.ID).Debug("no device path reported, skipping")
		return nil
	}

	a.log.WithFields(logrus.Fields{"logical_unit_id": unit.ID, "device_path": devicePath}).Info("mounting")

	return a.mount(ctx, devicePath)
}

func (a *agent) nextModifiedUnit(ctx context.Context) (*db.LogicalUnit, error) {
	var units []*db.LogicalUnit
	if err := a.getJSON(ctx, "/1.0/logical_units?status=modified", &units); err != nil {
		return nil, err
	}

	if len(units) == 0 {
		return nil, nil
	}

	return units[0], nil
}

func (a *agent) mountDevicePath(ctx context.Context, logicalUnitID int64) (string, bool, error) {
	var result struct {
		Result     bool   `json:"result"`
		DevicePath string `json:"device_path"`
	}

	path := fmt.Sprintf("/1.0/logical_units/%d/get_mount_device_path", logicalUnitID)
	if err := a.getJSON(ctx, path, &result); err != nil {
		return "", false, err
	}

	return result.DevicePath, result.Result, nil
}

func (a *agent) getJSON(ctx context.Context, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.apiBase+path, nil)
	if err != nil {
		return err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, path)
	}

	return json.NewDecoder(resp.Body).Decode(dst)
}

// mount shells out to mount(8), the way Helper.execute_mount did in the
// original agent.
func (a *agent) mount(ctx context.Context, devicePath string) error {
	if _, err := os.Stat(a.mountPoint); os.IsNotExist(err) {
		if err := os.MkdirAll(a.mountPoint, 0o755); err != nil {
			return fmt.Errorf("creating mount point %s: %w", a.mountPoint, err)
		}
	}

	if _, err := a.run.Run(ctx, "mount", devicePath, a.mountPoint); err != nil {
		return fmt.Errorf("mount %s %s: %w", devicePath, a.mountPoint, err)
	}

	return nil
}

// unmount is the inverse of mount, kept for callers that drive the agent
// interactively rather than through the poll loop.
func (a *agent) unmount(ctx context.Context) error {
	if _, err := a.run.Run(ctx, "umount", a.mountPoint); err != nil {
		return fmt.Errorf("umount %s: %w", a.mountPoint, err)
	}

	return nil
}
