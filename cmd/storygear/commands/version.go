package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/storygear/storygear/cmd/storygear/internal/build"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(build.String())
		if IsVerbose() {
			fmt.Printf("  go:     %s\n", runtime.Version())
			if cfg, err := GetConfig(); err == nil {
				fmt.Printf("  server: %s\n", cfg.Server.URL)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
