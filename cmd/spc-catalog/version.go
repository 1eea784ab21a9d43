package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"spc-catalog/internal/startup"
)

func (c *CLI) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			info := startup.GetBuildInfo()
			_, err := fmt.Fprintf(c.out, "spc-catalog %s\n  commit:     %s\n  built:      %s\n  go:         %s\n  platform:   %s/%s\n",
				info.Version, info.Commit, info.BuildTime, info.GoVersion, info.OS, info.Arch)
			return err
		},
	}
}
