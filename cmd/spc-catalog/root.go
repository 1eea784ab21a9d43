package main

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"spc-catalog/internal/startup"
)

// CLI represents the spc-catalog command line.
type CLI struct {
	out     io.Writer
	rootCmd *cobra.Command
}

// New creates the CLI. Command output goes to out; logs go to the logger.
func New(out io.Writer) *CLI {
	c := &CLI{out: out}

	rootCmd := &cobra.Command{
		Use:           "spc-catalog",
		Short:         "SPC wall panel catalog and thumbnail server",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       startup.Version,
		// Without a subcommand the server starts, so containers need no args.
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.serve(cmd.Context())
		},
	}
	rootCmd.SetOut(out)

	rootCmd.AddCommand(c.newServeCmd())
	rootCmd.AddCommand(c.newSeedCmd())
	rootCmd.AddCommand(c.newThumbnailCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	c.rootCmd = rootCmd
	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// envOr returns the environment variable key, or def when it is unset.
func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}
