package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luma/homelink/device"
	"github.com/luma/homelink/session"
	"github.com/luma/homelink/storage"
	"github.com/luma/homelink/transport"
)

var (
	// The host the socket server listens on
	socketHost string

	// The port to listen for socket clients on
	socketPort int

	// Whether every connection switches the same socket
	sharedState bool
)

func init() {
	flags := SocketServerCmd.Flags()

	flags.StringVarP(&socketHost, "host", "a", "127.0.0.1", "The host to listen on")
	flags.IntVarP(&socketPort, "port", "p", 8080, "The port to listen for client connections on")
	flags.BoolVar(&sharedState, "shared-state", false,
		"Share one socket between all connections instead of one per connection")
}

var SocketServerCmd = &cobra.Command{
	Use:   "socket-server",
	Short: "Run the smart socket TCP server",
	Long: `Run the smart socket TCP server

Clients send one command per line (on, off, status, info, help, exit) and
get exactly one response line back. By default each connection controls a
socket of its own, starting OFF.

Usage
	homelink socket-server --port 8080

`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, signalStop := notifyContext()
		defer signalStop()

		senv, err := newServerEnv(ctx)
		if err != nil {
			return err
		}

		conf := senv.conf
		shared := sharedState || conf.SharedState

		identity := device.Identity{
			Name:       conf.SocketName,
			Model:      conf.SocketModel,
			RatedPower: conf.SocketRatedPower,
		}

		var store storage.Store
		if shared {
			store = storage.NewInmemoryStore()
			defer store.Close()
		}

		factory := session.NewFactory(identity, store, senv.log.Named("session"))

		senv.log.Info("Starting socket server",
			zap.Stringer("device", identity),
			zap.Bool("sharedState", factory.Shared()))

		tcp := transport.NewTCP(senv.transportOptions(socketHost, socketPort), factory)

		return senv.serve(ctx, signalStop, socketHost, tcp)
	},
}
