package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/zenrelay/zenrelay/internal/process"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show relay service status",
	Long:  `Display the current status of the forwarding proxy.`,
	Run:   runStatus,
}

func runStatus(cmd *cobra.Command, _ []string) {
	procMgr := process.NewManager(baseDir)
	cfg := cfgMgr.Get()

	running := procMgr.IsRunning()
	pid := procMgr.ReadPID()
	refs := procMgr.ReadRef()

	color.Blue("Status for %s:", AppName)
	fmt.Printf("  %-18s: %v\n", "Running", running)
	fmt.Printf("  %-18s: %d\n", "PID", pid)

	if cfg != nil {
		fmt.Printf("  %-18s: %s\n", "Host", cfg.Host)
		fmt.Printf("  %-18s: %d\n", "Port", cfg.Port)
		fmt.Printf("  %-18s: %s\n", "Endpoint", fmt.Sprintf("http://%s:%d", cfg.Host, cfg.Port))
		fmt.Printf("  %-18s: %s\n", "OpenAI upstream", cfg.Upstreams.OpenAI)
		fmt.Printf("  %-18s: %s\n", "Anthropic upstream", cfg.Upstreams.Anthropic)
		fmt.Printf("  %-18s: %d\n", "Model aliases", len(cfg.ModelMap))
		fmt.Printf("  %-18s: %v\n", "Web search", cfg.WebSearch.Enabled)

		if cfg.ProxyURL != "" {
			fmt.Printf("  %-18s: %s\n", "Outbound proxy", cfg.ProxyURL)
		}
	}

	fmt.Printf("  %-18s: %s\n", "Config Path", cfgMgr.GetPath())
	fmt.Printf("  %-18s: %d\n", "References", refs)
	fmt.Printf("  %-18s: v%s\n", "Version", Version)
}
