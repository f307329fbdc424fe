package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ormasoftchile/mapgen/pkg/kernel/trace"
)

var traceVerifyCmd = &cobra.Command{
	Use:   "verify [trace.jsonl]",
	Short: "Check that a trace file is a well-formed single run",
	Args:  cobra.ExactArgs(1),
	RunE:  runTraceVerify,
}

func runTraceVerify(cmd *cobra.Command, args []string) error {
	result, err := trace.VerifyFile(args[0])
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()

	if !result.Valid {
		fmt.Fprintf(w, "✗ Trace broken at event %d\n", result.BrokenAt)
		if result.Error != "" {
			fmt.Fprintf(w, "  %s\n", result.Error)
		}
		return fmt.Errorf("trace verification failed")
	}

	fmt.Fprintf(w, "✓ Run %s: %d events, plan %s\n", result.RunID, result.EventCount, result.PlanFingerprint)
	if !result.Finished {
		fmt.Fprintln(w, "⚠ Run has no run.finish event")
	} else if !result.Success {
		fmt.Fprintln(w, "✗ Run finished with an error")
	}
	return nil
}

func init() {
	traceCmd := &cobra.Command{
		Use:   "trace",
		Short: "Trace file operations",
	}
	traceCmd.AddCommand(traceVerifyCmd)
	rootCmd.AddCommand(traceCmd)
}
