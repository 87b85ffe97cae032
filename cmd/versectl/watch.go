package main

import (
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/versesong/api/internal/poller"
)

func newWatchCmd(opts *rootOptions) *cobra.Command {
	var (
		wait    time.Duration
		ceiling time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch <sessionId>",
		Short: "Block until a session's song is ready",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID := args[0]
			api := opts.client()
			deadline := time.Now().Add(ceiling)

			for time.Now().Before(deadline) {
				n, err := api.Wait(cmd.Context(), sessionID, wait)
				if err != nil {
					if cmd.Context().Err() != nil {
						return cmd.Context().Err()
					}
					log.Warn().Err(err).Str("sessionId", sessionID).Msg("wait failed, retrying")
					select {
					case <-time.After(time.Second):
					case <-cmd.Context().Done():
						return cmd.Context().Err()
					}
					continue
				}
				if n == nil || !n.WellFormed() {
					continue
				}
				if !n.Terminal() {
					log.Info().Str("type", string(n.Type)).Msg("progress")
					continue
				}
				return reportNotification(cmd, n)
			}
			return errCeilingReached
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", 25*time.Second, "server-side wait per request (max 30s)")
	cmd.Flags().DurationVar(&ceiling, "ceiling", poller.DefaultCeiling, "give up after this long")
	return cmd
}
