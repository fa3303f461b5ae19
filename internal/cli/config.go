package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rcliao/agent-recall/internal/config"
)

func init() {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Run:   runConfigShow,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a config file",
		Args:  cobra.ExactArgs(1),
		Run:   runConfigValidate,
	})

	RootCmd.AddCommand(cmd)
}

func runConfigShow(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	b, err := yaml.Marshal(cfg)
	if err != nil {
		exitErr("config show", err)
	}
	fmt.Print(string(b))
}

func runConfigValidate(cmd *cobra.Command, args []string) {
	if _, err := config.Load(args[0]); err != nil {
		exitErr("config validate", err)
	}
	fmt.Printf("%s is valid\n", args[0])
}
