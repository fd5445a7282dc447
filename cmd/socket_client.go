package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luma/homelink/client"
	"github.com/luma/homelink/internal/env"
	"github.com/luma/homelink/protocol"
)

var (
	socketAddr     string
	socketCommands []string
	clientTimeout  time.Duration
	clientVerbose  bool
)

func init() {
	flags := SocketClientCmd.Flags()

	flags.StringVar(&socketAddr, "addr", "127.0.0.1:8080", "The socket server to connect to")
	flags.StringArrayVarP(&socketCommands, "command", "c", nil,
		"Send a command and exit instead of prompting, may be repeated")
	flags.DurationVar(&clientTimeout, "timeout", client.DefaultTimeout, "How long to wait for each response")
	flags.BoolVarP(&clientVerbose, "verbose", "v", false, "Log every exchange to stderr")
}

var SocketClientCmd = &cobra.Command{
	Use:   "socket-client",
	Short: "Talk to a smart socket server",
	Long: `Talk to a smart socket server

Without --command it prompts for commands until exit, Ctrl-D or the server
closes the connection.

Usage
	homelink socket-client --addr 127.0.0.1:8080
	homelink socket-client -c on -c status

`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, signalStop := notifyContext()
		defer signalStop()

		log, err := makeClientLogger()
		if err != nil {
			return err
		}
		defer log.Sync()

		conn, err := client.Dial(ctx, socketAddr, client.Options{
			Timeout: clientTimeout,
			Log:     log,
		})
		if err != nil {
			return err
		}
		defer conn.Close()

		out := cmd.OutOrStdout()

		if len(socketCommands) > 0 {
			for _, line := range socketCommands {
				resp, err := conn.Send(ctx, line)
				if err != nil {
					return err
				}

				fmt.Fprintln(out, resp.Text)
			}

			return nil
		}

		return runSocketPrompt(ctx, conn)
	},
}

func runSocketPrompt(ctx context.Context, conn *client.Conn) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "socket> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    socketCompleter(),
	})
	if err != nil {
		return fmt.Errorf("Failed to create readline: %w", err)
	}
	defer rl.Close()

	fmt.Fprintf(rl.Stdout(), "Connected to %s, type help for the commands\n", socketAddr)

	for ctx.Err() == nil {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}

		if errors.Is(err, io.EOF) {
			line = protocol.KeywordExit
		} else if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		resp, err := conn.Send(ctx, line)
		if errors.Is(err, client.ErrDisconnected) {
			fmt.Fprintln(rl.Stdout(), "Server closed the connection")
			return nil
		}

		if err != nil {
			return err
		}

		fmt.Fprintln(rl.Stdout(), resp.Text)

		if protocol.Parse(line).Kind == protocol.Exit {
			return nil
		}
	}

	return nil
}

func socketCompleter() *readline.PrefixCompleter {
	items := make([]readline.PrefixCompleterInterface, 0, len(protocol.Keywords()))
	for _, keyword := range protocol.Keywords() {
		items = append(items, readline.PcItem(keyword))
	}

	return readline.NewPrefixCompleter(items...)
}

func makeClientLogger() (*zap.Logger, error) {
	if clientVerbose {
		return env.MakeClientLogger("debug")
	}

	return env.MakeClientLogger("warn")
}
