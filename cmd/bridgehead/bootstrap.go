package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/samply/bridgehead-go/internal/config"
	"github.com/samply/bridgehead-go/internal/render"
)

// bootstrapCmd with no further subcommand prints the fixed launcher script
// to standard output (the pre-apply bootstrap path: an operator piping it
// straight into a fresh host before any config.toml exists yet).
var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Emit the bridgehead launcher script",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Print(render.LauncherScript())
		return nil
	},
}

var bootstrapBridgeheadCmd = &cobra.Command{
	Use:   "bridgehead",
	Short: "Write only the launcher script into an existing config directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("config")
		if dir == "" {
			return fmt.Errorf("--config is required")
		}
		store, err := config.Load(dir)
		if err != nil {
			return err
		}
		return render.WriteLauncherOnly(store)
	},
}

func init() {
	bootstrapBridgeheadCmd.Flags().String("config", "", "Absolute path to the site's config directory")
	bootstrapCmd.AddCommand(bootstrapBridgeheadCmd)
}
