package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luma/homelink/device"
	"github.com/luma/homelink/query"
	"github.com/luma/homelink/transport"
)

var (
	thermometerHost string
	thermometerPort int
)

func init() {
	flags := ThermometerServerCmd.Flags()

	flags.StringVarP(&thermometerHost, "host", "a", "127.0.0.1", "The host to listen on")
	flags.IntVarP(&thermometerPort, "port", "p", 8081, "The port to listen for queries on")
}

var ThermometerServerCmd = &cobra.Command{
	Use:   "thermometer-server",
	Short: "Run the thermometer UDP server",
	Long: `Run the thermometer UDP server

Every datagram is a query and gets one reply datagram carrying a fresh
reading, for example "Temperature: 21.4 C".

Usage
	homelink thermometer-server --port 8081

`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, signalStop := notifyContext()
		defer signalStop()

		senv, err := newServerEnv(ctx)
		if err != nil {
			return err
		}

		conf := senv.conf
		thermometer := device.NewThermometer(
			conf.ThermometerName,
			device.NewRandomSource(conf.MinTemp, conf.MaxTemp, conf.Seed),
		)

		senv.log.Info("Starting thermometer server",
			zap.String("device", thermometer.Name),
			zap.Float64("min", conf.MinTemp),
			zap.Float64("max", conf.MaxTemp))

		engine := query.NewEngine(thermometer, senv.log.Named("query"))
		udp := transport.NewUDP(senv.transportOptions(thermometerHost, thermometerPort), engine)

		return senv.serve(ctx, signalStop, thermometerHost, udp)
	},
}
