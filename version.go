package main

import (
	"fmt"

	"github.com/blang/semver"
	"github.com/spf13/cobra"
)

var (
	progVersion = semver.Version{
		Major: 1,
		Minor: 0,
		Patch: 0,
	}

	buildVersion string
)

func init() {
	if buildVersion != "" {
		progVersion.Build = []string{buildVersion}
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use: "version",

		Short: "Prints the version of the program.",

		Args: cobra.NoArgs,

		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", progVersion)
		},
	}
}
