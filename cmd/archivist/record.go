package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vatplayback/archivist/internal/cliconfig"
	"github.com/vatplayback/archivist/internal/metrics"
	"github.com/vatplayback/archivist/internal/output"
	"github.com/vatplayback/archivist/pkg/archivist"
	"github.com/vatplayback/archivist/pkg/log"
)

// recordResult is the printed outcome of a record run.
type recordResult struct {
	archivist.Summary `yaml:",inline"`

	Dir   string `json:"dir" yaml:"dir"`
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

func newRecordCmd(c *cli) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record snapshots of the feed until the ceiling or an interrupt",
		Long: strings.TrimSpace(`
Record fetches the feed immediately and then once per interval. Every payload
is written to <storage-dir>/<session>/snap-NNNNNNNN.json.

The session ends when --ceiling snapshots were stored, on SIGINT/SIGTERM, or on
a fatal error. With --continuous it runs until interrupted and keeps only the
newest --ceiling snapshots on disk.`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := output.ParseFormat(format)
			if err != nil {
				return err
			}
			if err := c.resolve(cmd); err != nil {
				return err
			}
			zl, err := c.logger(cmd)
			if err != nil {
				return err
			}
			zl.Debug().Interface("config", c.cfg).Msg("configuration")

			logger := log.NewZerologAdapterWithLogger(zl)
			opts := []archivist.Option{archivist.WithLogger(logger)}

			var reg *prometheus.Registry
			if c.cfg.MetricsAddr != "" {
				reg = prometheus.NewRegistry()
				opts = append(opts, archivist.WithMetrics(reg))
			}

			rec, err := archivist.New(recorderConfig(c.cfg), opts...)
			if err != nil {
				return fmt.Errorf("create recorder: %w", err)
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			stopSignals := cancelOnSignal(cancel, zl)
			defer stopSignals()

			if reg != nil {
				// Outlives ctx: serves until the command returns.
				srvCtx, stopSrv := context.WithCancel(context.WithoutCancel(ctx))
				defer stopSrv()
				go func() {
					if err := metrics.Serve(srvCtx, c.cfg.MetricsAddr, reg, logger); err != nil {
						zl.Error().Err(err).Str("addr", c.cfg.MetricsAddr).Msg("metrics server failed")
					}
				}()
			}

			zl.Info().
				Str("session", rec.SessionID()).
				Str("dir", rec.SessionDir()).
				Str("url", c.cfg.ResourceURL).
				Int("ceiling", c.cfg.Ceiling).
				Dur("interval", c.cfg.Interval).
				Msg("recording started")

			summary, runErr := rec.Run(ctx)

			res := recordResult{Summary: summary, Dir: rec.SessionDir()}
			if summary.Err != nil {
				res.Error = summary.Err.Error()
			}
			if err := output.Write(cmd.OutOrStdout(), f, res, res.writeText); err != nil {
				return err
			}
			if runErr != nil {
				return fmt.Errorf("recording stopped: %w", runErr)
			}
			return nil
		},
	}

	def := c.cfg
	cmd.Flags().StringVar(&c.cfg.ResourceURL, "url", def.ResourceURL, "resource to record")
	cmd.Flags().StringVar(&c.cfg.StorageDir, "storage-dir", def.StorageDir, "parent directory for session directories (default: $HOME/.archivist/recordings)")
	cmd.Flags().IntVar(&c.cfg.Ceiling, "ceiling", def.Ceiling, "snapshots to record; the retention window with --continuous")
	cmd.Flags().DurationVar(&c.cfg.Interval, "interval", def.Interval, "time between fetches")
	cmd.Flags().DurationVar(&c.cfg.FetchTimeout, "fetch-timeout", def.FetchTimeout, "timeout of a single fetch")
	cmd.Flags().Int64Var(&c.cfg.MaxBytes, "max-bytes", def.MaxBytes, "largest accepted payload in bytes")
	cmd.Flags().StringVar(&c.cfg.UserAgent, "user-agent", def.UserAgent, "User-Agent sent with each fetch")
	cmd.Flags().BoolVar(&c.cfg.Strict, "strict", def.Strict, "stop on the first failed fetch")
	cmd.Flags().BoolVar(&c.cfg.Continuous, "continuous", def.Continuous, "record until interrupted, keeping the newest --ceiling snapshots")
	cmd.Flags().StringVar(&c.cfg.MetricsAddr, "metrics-addr", def.MetricsAddr, "serve Prometheus metrics on this address (e.g. :9464)")
	cmd.Flags().StringVarP(&format, "output", "o", string(output.FormatText), "summary format: text, json or yaml")
	return cmd
}

func recorderConfig(cfg cliconfig.Config) archivist.Config {
	policy := archivist.FetchRecoverable
	if cfg.Strict {
		policy = archivist.FetchStrict
	}
	return archivist.Config{
		ResourceURL:  cfg.ResourceURL,
		StorageDir:   cfg.StorageDir,
		Ceiling:      cfg.Ceiling,
		Interval:     cfg.Interval,
		FetchPolicy:  policy,
		Continuous:   cfg.Continuous,
		FetchTimeout: cfg.FetchTimeout,
		MaxBytes:     cfg.MaxBytes,
		UserAgent:    cfg.UserAgent,
	}
}

// cancelOnSignal cancels on the first SIGINT or SIGTERM. Later signals are
// only logged; the in-flight snapshot is allowed to finish.
func cancelOnSignal(cancel context.CancelFunc, logger zerolog.Logger) (stop func()) {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		stopping := false
		for {
			select {
			case sig := <-sigCh:
				if stopping {
					logger.Warn().Str("signal", sig.String()).Msg("already stopping, waiting for the current snapshot")
					continue
				}
				stopping = true
				logger.Info().Str("signal", sig.String()).Msg("received signal, stopping...")
				cancel()
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(sigCh)
		close(done)
	}
}

func (r recordResult) writeText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "session:\t%s\n", r.SessionID)
	fmt.Fprintf(tw, "dir:\t%s\n", r.Dir)
	fmt.Fprintf(tw, "reason:\t%s\n", r.Reason)
	fmt.Fprintf(tw, "snapshots:\t%d\n", r.Count)
	fmt.Fprintf(tw, "fetch errors:\t%d\n", r.FetchErrors)
	fmt.Fprintf(tw, "retained:\t%s\n", retainedRange(r.Retained))
	if !r.StartedAt.IsZero() && !r.StoppedAt.IsZero() {
		fmt.Fprintf(tw, "duration:\t%s\n", r.StoppedAt.Sub(r.StartedAt).Round(time.Millisecond))
	}
	if r.Error != "" {
		fmt.Fprintf(tw, "error:\t%s\n", r.Error)
	}
	return tw.Flush()
}

func retainedRange(ids []archivist.StoredID) string {
	switch len(ids) {
	case 0:
		return "none"
	case 1:
		return ids[0].String()
	default:
		return fmt.Sprintf("%s .. %s (%d)", ids[0], ids[len(ids)-1], len(ids))
	}
}
