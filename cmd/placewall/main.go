// Command placewall runs the collaborative pixel-canvas server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/brinehollow/placewall/cmd/placewall/commands"
)

var rootCmd = &cobra.Command{
	Use:   "placewall",
	Short: "placewall - real-time collaborative pixel canvas server",
	Long: `placewall is a WebSocket server for a shared, rate-limited pixel canvas.

Available commands:
  serve   - Start the WebSocket server
  backup  - Take an online backup of the sqlite database
  version - Show build information`,
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "path to the JSON configuration file")
	rootCmd.PersistentFlags().Bool("json-logs", false, "emit structured JSON logs instead of console output")

	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.BackupCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
