package main

import (
	"github.com/spf13/cobra"

	"textoverlay/internal/app"
)

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var requestFile string

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a request file and publish the output",
		Long: "Render runs the same pipeline as POST /render without the HTTP server.\n" +
			"The request file uses the POST /render body format.",
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

			a, err := app.Build(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Renderer.Render(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeJSON(cmd, map[string]any{
				"status":   "completed",
				"url":      res.URL,
				"renderId": res.RenderID,
				"key":      res.Key,
			})
		},
	}

	cmd.Flags().StringVarP(&requestFile, "file", "f", "", "Request JSON file, or - for stdin")
	return cmd
}
