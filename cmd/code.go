package cmd

import (
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/zenrelay/zenrelay/internal/process"
)

var codeCmd = &cobra.Command{
	Use:   "code [args...]",
	Short: "Execute Claude Code via the relay",
	Long:  `Start the relay if needed and execute Claude Code with the relay as its backend.`,
	Args:  cobra.ArbitraryArgs,
	RunE:  runCode,
}

func runCode(cmd *cobra.Command, args []string) error {
	procMgr := process.NewManager(baseDir)
	cfg := cfgMgr.Get()

	// Ensure service is running and track if we started it
	serviceStartedByUs, err := procMgr.StartServiceIfNeeded()
	if err != nil {
		return err
	}

	env := os.Environ()

	// Point the assistant at the relay. Client credentials pass through
	// the relay unchanged, so an existing key keeps working.
	env = append(env, "ANTHROPIC_BASE_URL=http://"+cfg.Host+":"+strconv.Itoa(cfg.Port))
	env = append(env, "API_TIMEOUT_MS=600000")

	if cfg.APIKey != "" {
		env = filterEnv(env, "ANTHROPIC_AUTH_TOKEN")
		env = filterEnv(env, "ANTHROPIC_API_KEY")
		env = append(env, "ANTHROPIC_API_KEY="+cfg.APIKey)
	}

	// Track reference count
	procMgr.IncrementRef()
	defer func() {
		procMgr.DecrementRef()
		// Only stop service if we started it and no more references
		if serviceStartedByUs && procMgr.ReadRef() == 0 {
			color.Yellow("No more active sessions, stopping auto-started service...")
			procMgr.Stop()
		}
	}()

	claudeCmd := exec.Command("claude", args...)
	claudeCmd.Env = env
	claudeCmd.Stdin = os.Stdin
	claudeCmd.Stdout = os.Stdout
	claudeCmd.Stderr = os.Stderr

	return claudeCmd.Run()
}

func filterEnv(env []string, key string) []string {
	var filtered []string

	prefix := key + "="
	for _, e := range env {
		if !strings.HasPrefix(e, prefix) {
			filtered = append(filtered, e)
		}
	}

	return filtered
}
