package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/giygas/substance-mapper/logging"
	"github.com/giygas/substance-mapper/tools"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newToolsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use: "tools",

		Short: "Lists or invokes the mapping tools locally.",

		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use: "list",

		Short: "Lists the available tools and their parameters.",

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd, opts.verbose)
			if err != nil {
				return err
			}
			defer logging.Close()

			tw := tablewriter.NewWriter(cmd.OutOrStdout())
			tw.SetHeader([]string{"tool", "parameters", "description"})
			tw.SetAutoWrapText(false)
			for _, t := range a.registry.List() {
				tw.Append([]string{t.Name, formatParams(t.Params), t.Description})
			}
			tw.Render()
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use: "call <name> [json arguments]",

		Short: "Invokes a tool and prints its JSON response.",

		Example: `  substance-mapper tools call get_atc_codes '{"substance_name": "Paracetamol"}'`,

		Args: cobra.RangeArgs(1, 2),

		RunE: func(cmd *cobra.Command, args []string) error {
			raw := json.RawMessage("{}")
			if len(args) == 2 {
				if !json.Valid([]byte(args[1])) {
					return fmt.Errorf("arguments must be valid JSON: %s", args[1])
				}
				raw = json.RawMessage(args[1])
			}
			cmd.SilenceUsage = true

			a, err := setup(cmd, opts.verbose)
			if err != nil {
				return err
			}
			defer logging.Close()

			out, err := a.registry.Invoke(cmd.Context(), args[0], raw)
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			if errors.Is(err, tools.ErrUnknownTool) {
				return err
			}
			return nil
		},
	})

	return cmd
}

func formatParams(params []tools.Param) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		s := p.Name + " (" + p.Type + ")"
		if p.Required {
			s += " required"
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, ", ")
}
