package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"textoverlay/internal/encoder"
	"textoverlay/internal/render"
	"textoverlay/internal/staging"
)

func newGraphCommand(ctx *commandContext) *cobra.Command {
	var (
		requestFile string
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Print the filter graph and ffmpeg command for a request",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := readRequest(cmd, requestFile)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			log := ctx.logger(cmd.ErrOrStderr())

			area, err := staging.NewArea(cfg.ScratchDir)
			if err != nil {
				return err
			}
			enc := encoder.New(cfg.FFmpegPath, log)
			enc.Preset = cfg.VideoPreset
			enc.CRF = cfg.VideoCRF
			enc.AudioBitrate = cfg.AudioBitrate

			plan, err := render.New(render.Deps{
				Area:     area,
				Encoder:  enc,
				Styles:   cfg.Styles,
				FontPath: cfg.FontPath,
				Log:      log,
			}).Plan(req)
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd, plan)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "filter graph (final label %s):\n%s\n\n", plan.FinalLabel, plan.Graph)
			for i, text := range plan.CaptionText {
				fmt.Fprintf(out, "caption %d:\n%s\n\n", i, text)
			}
			fmt.Fprintf(out, "command:\n%s\n", plan.Command)
			return nil
		},
	}

	cmd.Flags().StringVarP(&requestFile, "file", "f", "", "Request JSON file, or - for stdin")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the plan as JSON")
	return cmd
}
