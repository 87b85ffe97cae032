// Command versectl drives a verse-to-song server from the terminal.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/versesong/api/internal/client"
	"github.com/versesong/api/internal/logger"
)

type rootOptions struct {
	server   string
	timeout  time.Duration
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "versectl",
		Short:         "Turn ideas into verses and verses into songs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = logger.InitWithWriter(opts.logLevel, "console", cmd.ErrOrStderr())
		},
	}

	defaultServer := os.Getenv("VERSECTL_SERVER")
	if defaultServer == "" {
		defaultServer = "http://localhost:3000"
	}
	cmd.PersistentFlags().StringVar(&opts.server, "server", defaultServer, "server base URL")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 60*time.Second, "per-request timeout")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level")

	cmd.AddCommand(newVerseCmd(opts), newSongCmd(opts), newWatchCmd(opts))
	return cmd
}

func (o *rootOptions) client() *client.APIClient {
	return client.NewAPIClient(o.server, o.timeout)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
