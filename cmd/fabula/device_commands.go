package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"fabula/internal/device"
	"fabula/internal/format"
)

func newDeviceCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "device",
		Short: "Inspect and manage the connected device",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newDeviceInfoCommand(ctx))
	cmd.AddCommand(newDeviceListCommand(ctx))
	cmd.AddCommand(newDeviceReorderCommand(ctx))
	cmd.AddCommand(newDeviceRemoveCommand(ctx))
	cmd.AddCommand(newDeviceDownloadCommand(ctx))
	cmd.AddCommand(newDeviceUploadCommand(ctx))

	return cmd
}

func newDeviceInfoCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show device firmware, serial, and space",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := ctx.connectedDriver()
			if err != nil {
				return err
			}

			info, err := d.Info()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Mount point: %s\n", d.MountPoint())
			fmt.Fprintf(out, "Firmware:    %d.%d\n", info.FirmwareMajor, info.FirmwareMinor)
			serial := info.SerialNumber
			if serial == "" {
				serial = "(not provisioned)"
			}
			fmt.Fprintf(out, "Serial:      %s\n", serial)
			fmt.Fprintf(out, "Space:       %s used of %s\n",
				humanize.IBytes(info.UsedBytes), humanize.IBytes(info.TotalBytes))
			return nil
		},
	}
}

func newDeviceListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List packs installed on the device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := ctx.connectedDriver()
			if err != nil {
				return err
			}

			packs, err := d.ListPacks()
			if err != nil {
				return err
			}
			if len(packs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no packs on device")
				return nil
			}

			rows := make([][]string, 0, len(packs))
			for i, p := range packs {
				rows = append(rows, []string{
					fmt.Sprintf("%d", i+1),
					p.UUID,
					p.FolderName,
					fmt.Sprintf("%d", p.Version),
					humanize.IBytes(uint64(p.SizeBytes)),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"#", "UUID", "Folder", "Version", "Size"},
				rows, 0, 3, 4))
			return nil
		},
	}
}

func newDeviceReorderCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <uuid>...",
		Short: "Reorder the device pack index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := ctx.connectedDriver()
			if err != nil {
				return err
			}
			if err := d.ReorderPacks(args); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "pack index reordered")
			return nil
		},
	}
}

func newDeviceRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <uuid>",
		Short: "Remove a pack from the device index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := ctx.connectedDriver()
			if err != nil {
				return err
			}
			if err := d.DeletePack(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s from device\n", args[0])
			return nil
		},
	}
}

func newDeviceDownloadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "download <uuid>",
		Short: "Copy a pack from the device into the library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			d, err := ctx.connectedDriver()
			if err != nil {
				return err
			}

			watchProgress(cmd, d)
			dest, err := d.DownloadPack(cmd.Context(), args[0], cfg.Paths.LibraryDir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "downloaded to %s\n", dest)
			return nil
		},
	}
}

func newDeviceUploadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <name>",
		Short: "Copy a device-format library pack onto the device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, store, err := ctx.openLibrary()
			if err != nil {
				return err
			}
			defer store.Close()

			meta, err := lib.ReadMetadata(args[0])
			if err != nil {
				return err
			}
			srcPath, err := lib.Path(args[0])
			if err != nil {
				return err
			}
			if format.FromPath(srcPath) != format.FS {
				return fmt.Errorf("%s is not in device format; convert it with --to fs first", args[0])
			}

			d, err := ctx.connectedDriver()
			if err != nil {
				return err
			}

			watchProgress(cmd, d)
			if err := d.UploadPack(cmd.Context(), meta.UUID, srcPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "uploaded %s\n", meta.UUID)
			return nil
		},
	}
}

// watchProgress prints transfer progress lines as the driver reports
// them.
func watchProgress(cmd *cobra.Command, d *device.Driver) {
	d.Events().SubscribeProgress(func(p device.TransferProgress) {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s / %s (%s/s)\n",
			humanize.IBytes(uint64(p.Transferred)),
			humanize.IBytes(uint64(p.Total)),
			humanize.IBytes(uint64(p.Speed)))
	})
}
