// Command tissdb-backup flushes, archives, restores, and verifies TissDB
// database roots (spec §6's external-interfaces view of on-disk layout),
// following the teacher pack's cuemby-warren/cmd/warren cobra-rootCmd idiom:
// one root command, subcommands as separate *cobra.Command values wired in
// init(), persistent flags for shared configuration.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	dataDir    string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tissdb-backup",
	Short: "Backup, restore, and verify TissDB database roots",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a tissdb config YAML file (optional)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "database root directory (overrides config)")

	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(verifyCmd)
}
