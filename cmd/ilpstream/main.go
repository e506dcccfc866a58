// Command ilpstream runs an ILP STREAM node: an SPSP responder plus
// the ability to drive an outgoing send_money from the command line.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/interledger4j/ilpstream/internal/config"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("ilpstream exiting", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ilpstream",
		Short: "Interledger STREAM node",
	}
	root.AddCommand(newServeCmd())
	root.AddCommand(newSendCmd())
	return root
}

func loadConfigOrExit() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return cfg
}
