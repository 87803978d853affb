package cli

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// version can be overridden at build time via:
	// go build -ldflags "-X github.com/uplift-crm/upliftsync/internal/cli.version=1.2.3"
	version = "0.4.0"
	logo    = "\n" +
		"  _   _       _ _  __ _\n" +
		" | | | |_ __ | (_)/ _| |_ ___ _   _ _ __   ___\n" +
		" | | | | '_ \\| | | |_| __/ __| | | | '_ \\ / __|\n" +
		" | |_| | |_) | | |  _| |_\\__ \\ |_| | | | | (__\n" +
		"  \\___/| .__/|_|_|_|  \\__|___/\\__, |_| |_|\\___|\n" +
		"       |_|                    |___/\n"
)

var rootCmd = &cobra.Command{
	Use:   "upliftsync",
	Short: "Uplift CRM sync core",
	Long:  color.CyanString(logo) + "\nThe synchronization, caching, and orchestration layer behind the Uplift CRM dashboard.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(draftsCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println("upliftsync " + version)
	},
}
