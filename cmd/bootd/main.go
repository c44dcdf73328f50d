// Command bootd runs the diskless-boot control plane: the HTTP API, the
// LVM/iSCSI drivers behind it, and the sqlite metadata store they share.
package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nls90/bootd/internal/api"
	"github.com/nls90/bootd/internal/config"
	"github.com/nls90/bootd/internal/core"
	"github.com/nls90/bootd/internal/db"
	"github.com/nls90/bootd/internal/iscsi"
	"github.com/nls90/bootd/internal/lvm"
	"github.com/nls90/bootd/internal/subprocess"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "bootd",
	Short: "Diskless-boot iSCSI/LVM control plane",
	RunE:  run,
}

func init() {
	rootCmd.Flags().String("config", "/etc/bootd/config.yaml", "Path to the daemon's YAML config file")
	rootCmd.Flags().String("listen", "", "HTTP listen address, overriding the config file")
}

func run(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	listenOverride, _ := cmd.Flags().GetString("listen")

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	if listenOverride != "" {
		cfg.ListenAddress = listenOverride
	}

	log := logrus.StandardLogger()

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	iscsi.IQNPrefix = cfg.IQNPrefix

	store, err := db.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("opening database %s: %w", cfg.DatabasePath, err)
	}
	defer store.Close()

	lvmRun := subprocess.NewPathOverrideRunner(
		subprocess.NewExecRunner(false, log.WithField("subsystem", "lvm")),
		cfg.ToolPaths,
	)
	iscsiRun := subprocess.NewPathOverrideRunner(
		subprocess.NewExecRunner(true, log.WithField("subsystem", "iscsi")),
		cfg.ToolPaths,
	)

	c := core.New(store, lvm.New(lvmRun), iscsiRun, log.WithField("subsystem", "core"))

	d := api.New(c, store, log.WithField("subsystem", "api"))

	server := &http.Server{
		Addr:    cfg.ListenAddress,
		Handler: d.NewRouter(),
	}

	errCh := make(chan error, 1)

	go func() {
		log.WithField("address", cfg.ListenAddress).Info("listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Info("shutting down")
	case err := <-errCh:
		return fmt.Errorf("serving: %w", err)
	}

	return server.Close()
}
