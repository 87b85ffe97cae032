package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/versesong/api/internal/model"
)

func newVerseCmd(opts *rootOptions) *cobra.Command {
	var regenerate bool

	cmd := &cobra.Command{
		Use:   "verse <idea>",
		Short: "Generate a verse from an idea",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := opts.client().GenerateVerse(cmd.Context(), &model.VerseGenerateRequest{
				Idea:       strings.Join(args, " "),
				Regenerate: regenerate,
			})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), resp.Verse)
			return err
		},
	}
	cmd.Flags().BoolVar(&regenerate, "regenerate", false, "ask for a different take on the same idea")
	return cmd
}
