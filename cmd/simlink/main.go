// simlink - a terminal client for region simulator circuits.
//
// simlink logs in through the grid's XML-RPC login service, opens a UDP
// circuit to the assigned region, completes the region handshake and then
// relays local chat and instant messages between the console, a local REST
// API, an MQTT broker and a SQLite transcript.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const AppName = "simlink"

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
      _           _ _       _
  ___(_)_ __ ___ | (_)_ __ | | __
 / __| | '_ ' _ \| | | '_ \| |/ /
 \__ \ | | | | | | | | | | |   <
 |___/_|_| |_| |_|_|_|_| |_|_|\_\
`

func main() {
	rootCmd := &cobra.Command{
		Use:   AppName,
		Short: "Terminal client for region simulator circuits",
		Long: `simlink logs in to a grid, opens a UDP circuit to the region it is
handed and keeps the session alive: it acknowledges reliable traffic,
answers pings and relays chat and instant messages.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		connectCmd(),
		catalogCmd(),
		dissectCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func printBanner() {
	fmt.Fprint(os.Stderr, banner)
}
