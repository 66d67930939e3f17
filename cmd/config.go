package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/zenrelay/zenrelay/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Manage the forwarding proxy configuration.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration interactively",
	Long:  `Initialize configuration by prompting for upstream details.`,
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current configuration.`,
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long:  `Validate the current configuration for errors.`,
	RunE:  runConfigValidate,
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	color.Blue("ZenRelay Configuration Setup")
	color.Yellow("Press enter to accept the defaults.")

	reader := bufio.NewReader(os.Stdin)

	openAIBase := prompt(reader, fmt.Sprintf("OpenAI-compatible upstream base URL [%s]: ", config.DefaultOpenAIBase))
	anthropicBase := prompt(reader, fmt.Sprintf("Anthropic-compatible upstream base URL [%s]: ", config.DefaultAnthropicBase))
	proxyURL := prompt(reader, "Outbound proxy URL (optional, e.g. http://127.0.0.1:10809): ")
	apiKey := prompt(reader, "Upstream API key (optional, overrides client credentials): ")
	webSearch := prompt(reader, "Enable server-side web search on Anthropic routes? [y/N]: ")

	cfg := &config.Config{
		Host:     config.DefaultHost,
		Port:     config.DefaultPort,
		APIKey:   apiKey,
		ProxyURL: proxyURL,
		Upstreams: config.Upstreams{
			OpenAI:    openAIBase,
			Anthropic: anthropicBase,
		},
		WebSearch: config.WebSearch{
			Enabled:    strings.EqualFold(webSearch, "y") || strings.EqualFold(webSearch, "yes"),
			MaxUses:    5,
			OnConflict: config.ConflictSkip,
		},
	}

	if cfg.Upstreams.OpenAI == "" {
		cfg.Upstreams.OpenAI = config.DefaultOpenAIBase
	}

	if cfg.Upstreams.Anthropic == "" {
		cfg.Upstreams.Anthropic = config.DefaultAnthropicBase
	}

	if err := cfgMgr.Save(cfg); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	color.Green("Configuration saved successfully to: %s", cfgMgr.GetPath())
	color.Cyan("Add model aliases under \"model_map\" in the config file, then start the relay with: %s start", AppName)

	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if !cfgMgr.Exists() {
		color.Yellow("No configuration found. Run '%s config init' to create one.", AppName)
		return nil
	}

	cfg, err := cfgMgr.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	color.Blue("Current Configuration:")
	fmt.Printf("  %-20s: %s\n", "Host", cfg.Host)
	fmt.Printf("  %-20s: %d\n", "Port", cfg.Port)
	fmt.Printf("  %-20s: %s\n", "API Key", maskString(cfg.APIKey))
	fmt.Printf("  %-20s: %s\n", "Outbound proxy", cfg.ProxyURL)
	fmt.Printf("  %-20s: %s\n", "OpenAI upstream", cfg.Upstreams.OpenAI)
	fmt.Printf("  %-20s: %s\n", "Anthropic upstream", cfg.Upstreams.Anthropic)
	fmt.Printf("  %-20s: %v\n", "Web search", cfg.WebSearch.Enabled)

	if cfg.WebSearch.Enabled {
		fmt.Printf("  %-20s: %d\n", "  Max uses", cfg.WebSearch.MaxUses)
		fmt.Printf("  %-20s: %s\n", "  On conflict", cfg.WebSearch.OnConflict)
	}

	if len(cfg.ModelMap) > 0 {
		color.Blue("Model aliases:")

		for from, to := range cfg.ModelMap {
			fmt.Printf("  %s -> %s\n", from, to)
		}
	}

	fmt.Printf("  %-20s: %s\n", "Config Path", cfgMgr.GetPath())

	return nil
}

func runConfigValidate(cmd *cobra.Command, _ []string) error {
	if !cfgMgr.Exists() {
		color.Yellow("No configuration found. Run '%s config init' to create one.", AppName)
		return nil
	}

	if _, err := cfgMgr.Load(); err != nil {
		color.Red("Configuration invalid: %v", err)
		return err
	}

	color.Green("Configuration is valid")

	return nil
}

func prompt(reader *bufio.Reader, label string) string {
	fmt.Print(label)
	value, _ := reader.ReadString('\n')

	return strings.TrimSpace(value)
}

func maskString(s string) string {
	if s == "" {
		return "(not set)"
	}

	if len(s) <= 8 {
		return "****"
	}

	return s[:4] + "****" + s[len(s)-4:]
}
