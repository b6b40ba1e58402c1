package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/vatplayback/archivist/internal/adapters/fs"
	"github.com/vatplayback/archivist/internal/output"
	"github.com/vatplayback/archivist/pkg/log"
)

func newPruneCmd(c *cli) *cobra.Command {
	var (
		format string
		opts   fs.PruneOptions
	)

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove the oldest stopped sessions",
		Long: `Prune removes stopped sessions, oldest first, until at most --keep sessions
remain and, once the storage directory exceeds --max-size, until it is below
--target-size. Running sessions are never removed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := output.ParseFormat(format)
			if err != nil {
				return err
			}
			if opts.KeepSessions <= 0 && opts.HighWatermark <= 0 {
				return fmt.Errorf("set --keep or --max-size")
			}
			if err := c.resolve(cmd); err != nil {
				return err
			}
			zl, err := c.logger(cmd)
			if err != nil {
				return err
			}

			res, pruneErr := fs.PruneSessions(cmd.Context(), c.cfg.StorageDir, opts, log.NewZerologAdapterWithLogger(zl))
			if err := output.Write(cmd.OutOrStdout(), f, res, func(w io.Writer) error {
				verb := "removed"
				if opts.DryRun {
					verb = "would remove"
				}
				for _, id := range res.Removed {
					fmt.Fprintf(w, "%s %s\n", verb, id)
				}
				_, err := fmt.Fprintf(w, "%d session(s) %s, %s freed, %s in %d session(s) remaining\n",
					len(res.Removed), verb, fs.FormatBytes(res.Freed), fs.FormatBytes(res.Remaining), res.Kept)
				return err
			}); err != nil {
				return err
			}
			return pruneErr
		},
	}

	cmd.Flags().StringVar(&c.cfg.StorageDir, "storage-dir", c.cfg.StorageDir, "parent directory of the session directories")
	cmd.Flags().IntVar(&opts.KeepSessions, "keep", 0, "number of newest sessions to keep")
	cmd.Flags().Int64Var(&opts.HighWatermark, "max-size", 0, "prune once the storage directory exceeds this many bytes")
	cmd.Flags().Int64Var(&opts.LowWatermark, "target-size", 0, "size in bytes to prune down to (default: 3/4 of --max-size)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "report what would be removed")
	cmd.Flags().StringVarP(&format, "output", "o", string(output.FormatText), "output format: text, json or yaml")
	return cmd
}
