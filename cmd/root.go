package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/luma/homelink/cmd/gen"
)

var RootCmd = &cobra.Command{
	Use:   "homelink",
	Short: "Simulated smart home devices",
	Long: `Simulated smart home devices

homelink runs a switchable smart socket over a TCP line protocol and a
thermometer over UDP, along with small clients for both.

Usage
	homelink socket-server
	homelink thermometer-server
	homelink socket-client
	homelink thermometer-client
`,
	SilenceUsage: true,
}

func init() {
	RootCmd.AddCommand(SocketServerCmd)
	RootCmd.AddCommand(ThermometerServerCmd)
	RootCmd.AddCommand(SocketClientCmd)
	RootCmd.AddCommand(ThermometerClientCmd)
	RootCmd.AddCommand(VersionCmd)
	RootCmd.AddCommand(gen.RootCmd)
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
