package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"textoverlay/internal/staging"
)

func newSweepCommand(ctx *commandContext) *cobra.Command {
	var (
		maxAge time.Duration
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Remove stale render directories from the scratch area",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if maxAge <= 0 {
				maxAge = cfg.StagingMaxAge
			}

			area, err := staging.NewArea(cfg.ScratchDir)
			if err != nil {
				return err
			}
			res := area.Sweep(maxAge, ctx.logger(cmd.ErrOrStderr()))

			if asJSON {
				errs := make([]map[string]string, 0, len(res.Errors))
				for _, e := range res.Errors {
					errs = append(errs, map[string]string{"path": e.Path, "error": e.Err.Error()})
				}
				removed := res.Removed
				if removed == nil {
					removed = []string{}
				}
				return writeJSON(cmd, map[string]any{"removed": removed, "errors": errs})
			}

			out := cmd.OutOrStdout()
			for _, p := range res.Removed {
				fmt.Fprintf(out, "removed %s\n", p)
			}
			for _, e := range res.Errors {
				fmt.Fprintf(out, "failed  %s: %v\n", e.Path, e.Err)
			}
			fmt.Fprintf(out, "%d removed, %d failed\n", len(res.Removed), len(res.Errors))
			if len(res.Errors) > 0 {
				return fmt.Errorf("sweep finished with %d errors", len(res.Errors))
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&maxAge, "max-age", 0, "Remove directories older than this (default STAGING_MAX_AGE)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}
