package cmd

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/zenrelay/zenrelay/internal/process"
	"github.com/zenrelay/zenrelay/internal/server"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the relay service",
	Long:  `Start the forwarding proxy in the foreground.`,
	RunE:  runStart,
}

func runStart(cmd *cobra.Command, _ []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	setupLogging(verbose)

	cfg, err := cfgMgr.Load()
	if err != nil {
		return err
	}

	color.Green("Starting %s v%s...", AppName, Version)

	procMgr := process.NewManager(baseDir)
	if err := procMgr.WritePID(); err != nil {
		return err
	}
	defer procMgr.CleanupPID()

	srv, err := server.New(cfg, logger)
	if err != nil {
		return err
	}

	return srv.Start()
}
