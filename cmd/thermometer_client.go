package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luma/homelink/client"
)

var (
	thermometerAddr string
	queryCount      int
	queryInterval   time.Duration
)

func init() {
	flags := ThermometerClientCmd.Flags()

	flags.StringVar(&thermometerAddr, "addr", "127.0.0.1:8081", "The thermometer server to query")
	flags.IntVarP(&queryCount, "count", "n", 1, "How many readings to take, 0 means until interrupted")
	flags.DurationVar(&queryInterval, "interval", time.Second, "The pause between readings")
	flags.DurationVar(&clientTimeout, "timeout", client.DefaultTimeout, "How long to wait for each reply")
	flags.BoolVarP(&clientVerbose, "verbose", "v", false, "Log every exchange to stderr")
}

var ThermometerClientCmd = &cobra.Command{
	Use:   "thermometer-client",
	Short: "Query a thermometer server",
	Long: `Query a thermometer server

Sends a query datagram and prints the reading from the reply.

Usage
	homelink thermometer-client --addr 127.0.0.1:8081 --count 5 --interval 2s

`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, signalStop := notifyContext()
		defer signalStop()

		log, err := makeClientLogger()
		if err != nil {
			return err
		}
		defer log.Sync()

		thermometer, err := client.DialThermometer(ctx, thermometerAddr, client.Options{
			Timeout: clientTimeout,
			Log:     log,
		})
		if err != nil {
			return err
		}
		defer thermometer.Close()

		out := cmd.OutOrStdout()
		ticker := time.NewTicker(queryInterval)
		defer ticker.Stop()

		for i := 0; queryCount == 0 || i < queryCount; i++ {
			if i > 0 {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}
			}

			value, unit, err := thermometer.Read(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}

				return err
			}

			log.Debug("Received reading", zap.Float64("value", value), zap.String("unit", unit))
			fmt.Fprintf(out, "Temperature: %.1f %s\n", value, unit)
		}

		return nil
	},
}
