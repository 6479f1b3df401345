package main

import (
	"io"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"textoverlay/internal/config"
	"textoverlay/internal/pkg/logger"
)

type commandContext struct {
	envFile  string
	logLevel string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

// ensureConfig resolves the configuration once per process.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		c.config, c.configErr = config.FromEnv()
	})
	return c.config, c.configErr
}

// logger writes to stderr so stdout stays machine readable.
func (c *commandContext) logger(stderr io.Writer) *logger.Logger {
	level := c.logLevel
	if level == "" && c.config != nil {
		level = c.config.LogLevel
	}
	return logger.New(logger.Config{
		Level:       level,
		Format:      "text",
		Output:      stderr,
		ServiceName: "overlayctl",
	})
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "overlayctl",
		Short:         "Render timed text captions onto videos",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if f := strings.TrimSpace(ctx.envFile); f != "" {
				return config.LoadEnvFile(f)
			}
			return config.LoadEnvFile()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&ctx.envFile, "env-file", "", "Env file to load (default .env when present)")
	rootCmd.PersistentFlags().StringVar(&ctx.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newRenderCommand(ctx))
	rootCmd.AddCommand(newGraphCommand(ctx))
	rootCmd.AddCommand(newSweepCommand(ctx))
	rootCmd.AddCommand(newGDriveAuthCommand())

	return rootCmd
}
