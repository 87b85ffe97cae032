package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/versesong/api/internal/model"
	"github.com/versesong/api/internal/poller"
)

var errCeilingReached = errors.New("no song arrived before the polling ceiling")

type songOptions struct {
	verse        string
	model        string
	instrumental bool
	interval     time.Duration
	ceiling      time.Duration
}

func newSongCmd(opts *rootOptions) *cobra.Command {
	so := &songOptions{}

	cmd := &cobra.Command{
		Use:   "song [verse]",
		Short: "Start a song job and wait for it to finish",
		Long:  "Start a song job under a fresh session and poll the server until the song is ready. The verse is read from the argument, --verse, or stdin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			verse := so.verse
			if verse == "" && len(args) > 0 {
				verse = strings.Join(args, " ")
			}
			if verse == "" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				verse = strings.TrimSpace(string(data))
			}
			return runSong(cmd, opts, so, verse)
		},
	}
	cmd.Flags().StringVar(&so.verse, "verse", "", "verse text")
	cmd.Flags().StringVar(&so.model, "model", "", "model version (V3_5, V4, V4_5)")
	cmd.Flags().BoolVar(&so.instrumental, "instrumental", false, "render without vocals")
	cmd.Flags().DurationVar(&so.interval, "interval", poller.DefaultInterval, "polling interval")
	cmd.Flags().DurationVar(&so.ceiling, "ceiling", poller.DefaultCeiling, "give up after this long")
	return cmd
}

func runSong(cmd *cobra.Command, opts *rootOptions, so *songOptions, verse string) error {
	api := opts.client()
	sessionID := uuid.New().String()

	vocalMode := model.VocalModeVocal
	if so.instrumental {
		vocalMode = model.VocalModeInstrumental
	}

	resp, err := api.StartMusic(cmd.Context(), &model.MusicStartRequest{
		VerseText:   verse,
		SessionID:   sessionID,
		ModelChoice: model.ModelChoice(so.model),
		VocalMode:   vocalMode,
	})
	if err != nil {
		return err
	}
	if resp.Status == model.JobStatusCompleted {
		return printJSON(cmd.OutOrStdout(), resp)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "job %s started for session %s, waiting for the song...\n", resp.JobID, sessionID)

	finished := make(chan *model.Notification, 1)
	p := poller.New(api, so.interval, so.ceiling)
	p.Start(sessionID, func(n *model.Notification) {
		log.Debug().Str("type", string(n.Type)).Msg("notification received")
		if n.Type == model.NotificationMusicProgress {
			fmt.Fprintln(cmd.ErrOrStderr(), "still rendering...")
			return
		}
		select {
		case finished <- n:
		default:
		}
	})
	done := p.Done()
	defer func() {
		p.Stop()
		<-done
	}()

	select {
	case n := <-finished:
		return reportNotification(cmd, n)
	case <-done:
		return errCeilingReached
	case <-cmd.Context().Done():
		return cmd.Context().Err()
	}
}

// reportNotification prints a terminal notification and turns failures
// into a command error.
func reportNotification(cmd *cobra.Command, n *model.Notification) error {
	switch n.Type {
	case model.NotificationMusicComplete:
		if n.Song != nil {
			return printJSON(cmd.OutOrStdout(), n.Song)
		}
		return printJSON(cmd.OutOrStdout(), n)
	case model.NotificationMusicEmpty:
		fmt.Fprintln(cmd.ErrOrStderr(), "song finished but the provider sent no audio")
		return printJSON(cmd.OutOrStdout(), n)
	case model.NotificationMusicFailed:
		if n.Message != "" {
			return fmt.Errorf("song generation failed: %s", n.Message)
		}
		return errors.New("song generation failed")
	default:
		return printJSON(cmd.OutOrStdout(), n)
	}
}
