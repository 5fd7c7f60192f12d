package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/asad/azstorage/internal/storage"
)

func newPutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "put <name> <file|->",
		Short: "Upload a local file (or stdin) as a blob",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			adapter, _, logger, err := a.adapter()
			if err != nil {
				return err
			}
			defer logger.Sync()

			var src io.Reader = cmd.InOrStdin()
			if args[1] != "-" {
				f, err := os.Open(args[1])
				if err != nil {
					return err
				}
				defer f.Close()
				src = f
			}

			name, err := adapter.Save(cmd.Context(), args[0], storage.ReaderChunks(src, 0))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", name, adapter.URL(name))
			return nil
		},
	}
}

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <name> [file|-]",
		Short: "Download a blob to a local file (or stdout)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			adapter, _, logger, err := a.adapter()
			if err != nil {
				return err
			}
			defer logger.Sync()

			f, err := adapter.Open(cmd.Context(), args[0], storage.ModeRead)
			if err != nil {
				return err
			}
			defer f.Close()

			if len(args) == 1 || args[1] == "-" {
				_, err = cmd.OutOrStdout().Write(f.Bytes())
				return err
			}
			return os.WriteFile(args[1], f.Bytes(), 0o644)
		},
	}
}

func newStatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stat <name>",
		Short: "Report whether a blob exists and its size",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			adapter, _, logger, err := a.adapter()
			if err != nil {
				return err
			}
			defer logger.Sync()

			ok, err := adapter.Exists(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return storage.E(storage.KindNotFound, "stat", args[0])
			}
			size, err := adapter.Size(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\t%s\n", storage.CleanName(args[0]), size, adapter.URL(args[0]))
			return nil
		},
	}
}

func newRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <name>...",
		Short: "Delete blobs; missing names are ignored",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			adapter, _, logger, err := a.adapter()
			if err != nil {
				return err
			}
			defer logger.Sync()

			for _, name := range args {
				if err := adapter.Delete(cmd.Context(), name); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newURLCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "url <name>",
		Short: "Print the public URL of a blob without contacting the service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			adapter, _, _, err := a.adapter()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), adapter.URL(args[0]))
			return nil
		},
	}
}
