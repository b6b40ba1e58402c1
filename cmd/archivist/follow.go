package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vatplayback/archivist/internal/adapters/fs"
	"github.com/vatplayback/archivist/internal/output"
	"github.com/vatplayback/archivist/pkg/archivist"
	"github.com/vatplayback/archivist/pkg/log"
	"github.com/vatplayback/archivist/pkg/manifest"
)

// followEvent is printed once per published snapshot.
// Name is the snapshot's file name below the session directory.
type followEvent struct {
	ID         archivist.StoredID `json:"id"`
	Name       string             `json:"name"`
	Path       string             `json:"path"`
	Bytes      int64              `json:"bytes"`
	CapturedAt time.Time          `json:"captured_at"`
}

func newFollowCmd(c *cli) *cobra.Command {
	var (
		format string
		latest bool
	)

	cmd := &cobra.Command{
		Use:   "follow [session]",
		Short: "Print snapshots of a session as they are published",
		Long: `Follow prints every snapshot already stored in a session and then each new one
as the recorder publishes it. It exits when the session stops or on interrupt.

The session is a directory path or a session id below the storage directory.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := output.ParseFormat(format)
			if err != nil {
				return err
			}
			if f == output.FormatYAML {
				return fmt.Errorf("follow supports text and json output")
			}
			if len(args) == 0 && !latest {
				return fmt.Errorf("pass a session or --latest")
			}
			if err := c.resolve(cmd); err != nil {
				return err
			}
			zl, err := c.logger(cmd)
			if err != nil {
				return err
			}

			dir, err := sessionDir(cmd, c.cfg.StorageDir, args)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			enc := json.NewEncoder(out)
			return fs.Follow(ctx, dir, log.NewZerologAdapterWithLogger(zl), func(id archivist.StoredID, path string) error {
				ev := followEvent{ID: id, Name: fs.SnapshotFileName(id), Path: path}
				if info, err := os.Stat(path); err == nil {
					ev.Bytes = info.Size()
					ev.CapturedAt = info.ModTime().UTC()
				}
				if f == output.FormatJSON {
					return enc.Encode(ev)
				}
				_, err := fmt.Fprintf(out, "%s\t%s\t%d bytes\t%s\n",
					id, ev.CapturedAt.Format(time.RFC3339), ev.Bytes, path)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&c.cfg.StorageDir, "storage-dir", c.cfg.StorageDir, "parent directory of the session directories")
	cmd.Flags().BoolVar(&latest, "latest", false, "follow the most recently started session")
	cmd.Flags().StringVarP(&format, "output", "o", string(output.FormatText), "output format: text or json (one object per line)")
	return cmd
}

// sessionDir resolves the followed session to its directory.
func sessionDir(cmd *cobra.Command, root string, args []string) (string, error) {
	if len(args) == 0 {
		sessions, err := manifest.ScanDir(cmd.Context(), root)
		if err != nil {
			return "", fmt.Errorf("scan %s: %w", root, err)
		}
		if len(sessions) == 0 {
			return "", fmt.Errorf("no sessions in %s", root)
		}
		return sessions[len(sessions)-1].Dir, nil
	}

	if info, err := os.Stat(args[0]); err == nil && info.IsDir() {
		return args[0], nil
	}
	dir := filepath.Join(root, args[0])
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return "", fmt.Errorf("session %q not found", args[0])
	}
	return dir, nil
}
