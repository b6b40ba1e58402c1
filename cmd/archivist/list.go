package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/vatplayback/archivist/internal/adapters/fs"
	"github.com/vatplayback/archivist/internal/output"
	"github.com/vatplayback/archivist/pkg/archivist"
	"github.com/vatplayback/archivist/pkg/manifest"
)

// sessionRow is one recorded session as shown by list.
type sessionRow struct {
	SessionID   string    `json:"session_id" yaml:"session_id"`
	Status      string    `json:"status" yaml:"status"`
	Reason      string    `json:"reason,omitempty" yaml:"reason,omitempty"`
	Count       uint64    `json:"count" yaml:"count"`
	Retained    int       `json:"retained" yaml:"retained"`
	FetchErrors int       `json:"fetch_errors" yaml:"fetch_errors"`
	StartedAt   time.Time `json:"started_at" yaml:"started_at"`
	StoppedAt   time.Time `json:"stopped_at,omitempty" yaml:"stopped_at,omitempty"`
	// LastCapturedAt is the capture time of the newest retained snapshot.
	LastCapturedAt time.Time `json:"last_captured_at,omitempty" yaml:"last_captured_at,omitempty"`
	Dir            string    `json:"dir" yaml:"dir"`
}

type sessionList []sessionRow

func newListCmd(c *cli) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded sessions",
		Long:  `List every session below the storage directory, oldest first.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := output.ParseFormat(format)
			if err != nil {
				return err
			}
			if err := c.resolve(cmd); err != nil {
				return err
			}

			rows, err := loadSessions(cmd, c.cfg.StorageDir)
			if err != nil {
				return err
			}
			return output.Write(cmd.OutOrStdout(), f, rows, rows.writeTable)
		},
	}

	cmd.Flags().StringVar(&c.cfg.StorageDir, "storage-dir", c.cfg.StorageDir, "parent directory of the session directories")
	cmd.Flags().StringVarP(&format, "output", "o", string(output.FormatText), "output format: text, json or yaml")
	return cmd
}

func loadSessions(cmd *cobra.Command, root string) (sessionList, error) {
	manifests, err := manifest.ScanDir(cmd.Context(), root)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}

	rows := make(sessionList, 0, len(manifests))
	for _, m := range manifests {
		ids, err := fs.ListSnapshots(m.Dir)
		if err != nil {
			return nil, fmt.Errorf("list snapshots of %s: %w", m.SessionID, err)
		}
		var last time.Time
		if n := len(ids); n > 0 {
			// A running session may evict the file between listing and stat.
			if last, err = fs.CapturedAt(filepath.Join(m.Dir, fs.SnapshotFileName(ids[n-1]))); err != nil && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("stat snapshot of %s: %w", m.SessionID, err)
			}
		}
		rows = append(rows, sessionRow{
			SessionID:      m.SessionID,
			Status:         m.Status,
			Reason:         m.Reason,
			Count:          m.Count,
			Retained:       len(ids),
			FetchErrors:    m.FetchErrors,
			StartedAt:      m.StartedAt,
			StoppedAt:      m.StoppedAt,
			LastCapturedAt: last,
			Dir:            m.Dir,
		})
	}
	return rows, nil
}

// cell is one table cell: its plain text and the style it is drawn with.
type cell struct {
	text  string
	style lipgloss.Style
}

func (rows sessionList) writeTable(w io.Writer) error {
	return rows.render(w, lipgloss.NewRenderer(w))
}

func (rows sessionList) render(w io.Writer, r *lipgloss.Renderer) error {
	headerStyle := r.NewStyle().Bold(true).Foreground(lipgloss.Color("62")).Padding(0, 1)
	titleStyle := r.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	idStyle := r.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
	countStyle := r.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	dateStyle := r.NewStyle().Foreground(lipgloss.Color("243"))
	plainStyle := r.NewStyle()
	stoppedStyle := r.NewStyle().Foreground(lipgloss.Color("243"))
	runningStyle := r.NewStyle().Foreground(lipgloss.Color("42"))
	fatalStyle := r.NewStyle().Foreground(lipgloss.Color("196"))

	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, headerStyle.Render("No sessions found"))
		return err
	}
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Found %d session(s)", len(rows))))
	fmt.Fprintln(w)

	var table [][]cell
	var header []cell
	for _, title := range []string{"Session", "Status", "Snapshots", "On disk", "Started", "Duration"} {
		header = append(header, cell{title, titleStyle})
	}
	table = append(table, header)

	for _, row := range rows {
		status := cell{row.Status, runningStyle}
		switch {
		case archivist.StopReason(row.Reason).Fatal():
			status = cell{row.Reason, fatalStyle}
		case row.Reason != "":
			status = cell{row.Reason, stoppedStyle}
		}

		duration := "-"
		if !row.StoppedAt.IsZero() {
			duration = row.StoppedAt.Sub(row.StartedAt).Round(time.Second).String()
		}

		table = append(table, []cell{
			{row.SessionID, idStyle},
			status,
			{strconv.FormatUint(row.Count, 10), countStyle},
			{strconv.Itoa(row.Retained), plainStyle},
			{row.StartedAt.Local().Format("2006-01-02 15:04:05"), dateStyle},
			{duration, plainStyle},
		})
	}

	// Widths come from the plain text; padding stays outside the styled
	// text so escape sequences never shift the columns.
	widths := make([]int, len(header))
	for _, line := range table {
		for i, c := range line {
			widths[i] = max(widths[i], lipgloss.Width(c.text))
		}
	}
	for _, line := range table {
		parts := make([]string, len(line))
		for i, c := range line {
			parts[i] = c.style.Render(c.text)
			if i < len(line)-1 {
				parts[i] += strings.Repeat(" ", widths[i]-lipgloss.Width(c.text)+3)
			}
		}
		if _, err := fmt.Fprintln(w, strings.Join(parts, "")); err != nil {
			return err
		}
	}
	return nil
}
