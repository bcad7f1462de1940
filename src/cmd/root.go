package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// envFile is the dotenv file loaded before reading the environment.
	envFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "ledger-server",
	Short: "Personal finance ledger backend",
	Long: `ledger-server keeps each signed-in user's transactions cached per archive
partition, applies database change notifications to the cached views and
serves them over HTTP and WebSocket.`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "Path to a dotenv file (default .env when present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}
