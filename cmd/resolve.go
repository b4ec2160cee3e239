package main

import (
	"context"
	"io"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/challenge-resolver/internal/pipeline"
)

var (
	resolveInput    string
	resolveMergeLog bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve the location and outcome of one video",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, "resolve")
		if err != nil {
			return err
		}
		defer env.Close()
		defer env.logCosts()

		in, err := openInput(resolveInput)
		if err != nil {
			return err
		}
		defer in.Close() //nolint:errcheck

		return resolveRecords(ctx, env.Chain, in, cmd.OutOrStdout(), resolveMergeLog)
	},
}

func init() {
	resolveCmd.Flags().StringVar(&resolveInput, "input", "-", "video record JSON file (- for stdin)")
	resolveCmd.Flags().BoolVar(&resolveMergeLog, "merge-log", true, "include per-field provenance in the output")
	rootCmd.AddCommand(resolveCmd)
}

// resolveRecords resolves every record in in sequentially and writes one
// indented result per record to out.
func resolveRecords(ctx context.Context, r pipeline.Resolver, in io.Reader, out io.Writer, withMergeLog bool) error {
	recs, err := pipeline.ReadRecords(in)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		return eris.New("no video records in input")
	}
	for _, rec := range recs {
		res := r.Resolve(ctx, rec)
		if !withMergeLog {
			res.MergeLog = nil
		}
		if err := writeJSON(out, res); err != nil {
			return err
		}
	}
	return nil
}
