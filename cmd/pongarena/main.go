// pongarena is a server-authoritative Pong server for thin rendering
// clients over WebSocket.
//
// Usage:
//
//	pongarena serve            - Start the game server
//
// Global flags:
//
//	--config <path>  - Path to a YAML config file
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var flagConfigPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "pongarena",
	Short: "Pong Arena - authoritative Pong over WebSocket",
	Long: `Pong Arena runs the authoritative simulation for a real-time Pong
game. Clients connect over WebSocket, send paddle intents, and render the
state snapshots the server pushes at the tick rate.

Examples:
  pongarena serve
  pongarena serve --addr :9000
  pongarena serve --config ./configs/pongarena.yaml`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "Path to YAML config file")
	rootCmd.AddCommand(serveCmd)
}
