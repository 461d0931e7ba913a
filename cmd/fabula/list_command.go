package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List packs in the library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, store, err := ctx.openLibrary()
			if err != nil {
				return err
			}
			defer store.Close()

			groups, err := lib.Packs(cmd.Context())
			if err != nil {
				return err
			}
			if len(groups) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "library is empty")
				return nil
			}

			rows := make([][]string, 0, len(groups))
			for _, g := range groups {
				newest := g.Entries[0]
				formats := make([]string, 0, len(g.Entries))
				var total int64
				for _, entry := range g.Entries {
					formats = append(formats, entry.Format.Label())
					total += entry.SizeBytes
				}
				rows = append(rows, []string{
					g.DisplayTitle(),
					g.UUID,
					strings.Join(formats, ", "),
					fmt.Sprintf("%d", newest.Metadata.Version),
					humanize.IBytes(uint64(total)),
					humanize.Time(newest.Timestamp),
				})
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Title", "UUID", "Formats", "Version", "Size", "Modified"},
				rows, 3, 4))
			return nil
		},
	}
}
