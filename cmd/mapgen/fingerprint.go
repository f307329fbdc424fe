package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ormasoftchile/mapgen/pkg/kernel/manifest"
	"github.com/ormasoftchile/mapgen/pkg/kernel/trace"
)

var fingerprintJobs int

var fingerprintCmd = &cobra.Command{
	Use:   "fingerprint [file...]",
	Short: "Print stable SHA-256 fingerprints of JSON or YAML documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFingerprint(cmd.Context(), cmd.OutOrStdout(), args)
	},
}

// fingerprintFiles fingerprints each file concurrently. Results keep the
// order of paths.
func fingerprintFiles(ctx context.Context, paths []string, jobs int) ([]string, error) {
	sums := make([]string, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	if jobs > 0 {
		g.SetLimit(jobs)
	}
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			doc, err := manifest.LoadDocumentFile(path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			fp, err := trace.Fingerprint(doc)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			sums[i] = fp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sums, nil
}

func runFingerprint(ctx context.Context, w io.Writer, paths []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	sums, err := fingerprintFiles(ctx, paths, fingerprintJobs)
	if err != nil {
		return err
	}
	for i, path := range paths {
		fmt.Fprintf(w, "%s  %s\n", sums[i], path)
	}
	return nil
}

func init() {
	fingerprintCmd.Flags().IntVarP(&fingerprintJobs, "jobs", "j", 4, "Maximum files read concurrently")
	rootCmd.AddCommand(fingerprintCmd)
}
