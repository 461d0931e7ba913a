package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"fabula/internal/convert"
	"fabula/internal/format"
)

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var targetFlag string
	var allowEnriched bool

	cmd := &cobra.Command{
		Use:   "convert <name>",
		Short: "Convert a library pack to another format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := format.Parse(targetFlag)
			if err != nil {
				return err
			}

			converter, err := ctx.newConverter()
			if err != nil {
				return err
			}

			out, err := converter.Convert(cmd.Context(), args[0], target, allowEnriched)
			if err != nil {
				var already *convert.AlreadyInFormatError
				if errors.As(err, &already) {
					return fmt.Errorf("%s is already in %s format", args[0], target.Label())
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "converted to %s\n", filepath.Base(out))
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetFlag, "to", "t", "", "Target format: archive, raw, or fs")
	cmd.Flags().BoolVar(&allowEnriched, "enriched", false, "Keep enrichment metadata in the output when the format supports it")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}
