package main

import (
	"context"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/challenge-resolver/internal/pipeline"
)

var (
	batchInput       string
	batchOutput      string
	batchMetricsAddr string
	batchConcurrency int
	batchMergeLog    bool
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Resolve a file of videos concurrently, writing JSON Lines",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if batchConcurrency > 0 {
			cfg.Batch.Concurrency = batchConcurrency
		}

		env, err := initPipeline(ctx, "batch")
		if err != nil {
			return err
		}
		defer env.Close()
		defer env.logCosts()

		addr := batchMetricsAddr
		if addr == "" {
			addr = cfg.Metrics.Addr
		}
		if addr != "" {
			srv := startMetricsServer(ctx, addr, buildMux(env.Metrics))
			defer shutdownServer(srv)
		}

		in, err := openInput(batchInput)
		if err != nil {
			return err
		}
		defer in.Close() //nolint:errcheck

		out, err := openOutput(batchOutput)
		if err != nil {
			return err
		}
		defer out.Close() //nolint:errcheck

		summary, err := processBatch(ctx, env.Chain, in, out, cfg.Batch.Concurrency, batchMergeLog, env.Metrics)
		if werr := writeJSON(cmd.ErrOrStderr(), summary); werr != nil {
			zap.L().Warn("write summary failed", zap.Error(werr))
		}
		return err
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchInput, "input", "-", "video records as a JSON array or JSON Lines (- for stdin)")
	batchCmd.Flags().StringVar(&batchOutput, "output", "-", "results file, one JSON object per line (- for stdout)")
	batchCmd.Flags().StringVar(&batchMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (default from config)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "videos in flight (default from config)")
	batchCmd.Flags().BoolVar(&batchMergeLog, "merge-log", false, "include per-field provenance in the output")
	rootCmd.AddCommand(batchCmd)
}

// processBatch reads every record from in, resolves them on a bounded pool
// and streams results to out in input order.
func processBatch(ctx context.Context, r pipeline.Resolver, in io.Reader, out io.Writer, concurrency int, withMergeLog bool, m *pipeline.Metrics) (pipeline.Summary, error) {
	recs, err := pipeline.ReadRecords(in)
	if err != nil {
		return pipeline.Summary{}, err
	}
	if len(recs) == 0 {
		zap.L().Info("no video records in input")
		return pipeline.Summary{}, nil
	}

	opts := []pipeline.Option{pipeline.WithSink(pipeline.NewJSONLSink(out, withMergeLog))}
	if m != nil {
		opts = append(opts, pipeline.WithMetrics(m))
	}
	_, summary, err := pipeline.NewRunner(r, concurrency, opts...).Run(ctx, recs)
	return summary, err
}
