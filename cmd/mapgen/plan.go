package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ormasoftchile/mapgen/pkg/diagram"
	"github.com/ormasoftchile/mapgen/pkg/kernel/manifest"
	"github.com/ormasoftchile/mapgen/pkg/kernel/plan"
	"github.com/ormasoftchile/mapgen/pkg/kernel/trace"
)

var (
	planTrace   string
	planFormat  string
	planConsole bool
)

var planCmd = &cobra.Command{
	Use:   "plan [manifest.yaml] [run-request.json]",
	Short: "Compile a run request into an execution plan",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPlan(cmd.OutOrStdout(), args[0], args[1])
	},
}

func runPlan(w io.Writer, manifestPath, requestPath string) error {
	bundle, err := manifest.BuildFile(manifestPath)
	if err != nil {
		return err
	}
	request, err := manifest.LoadDocumentFile(requestPath)
	if err != nil {
		return err
	}

	p, err := plan.NewCompiler(plan.WithLogger(logger)).Compile(request, bundle.Registry)
	if err != nil {
		return err
	}
	fp, err := p.Fingerprint()
	if err != nil {
		return err
	}

	if err := emitPlanTrace(p, fp); err != nil {
		return err
	}

	switch planFormat {
	case "json":
		if err := writeJSON(w, p); err != nil {
			return err
		}
	case "table":
		fmt.Fprint(w, planTable(p))
	case string(diagram.FormatASCII), string(diagram.FormatMermaid):
		out, err := diagram.Generate(p, diagram.Format(planFormat))
		if err != nil {
			return err
		}
		fmt.Fprint(w, out)
	default:
		return fmt.Errorf("unknown --format %q (json, table, ascii, mermaid)", planFormat)
	}

	for _, miss := range diagram.Unsatisfied(p) {
		fmt.Fprintln(w, mutedStyle.Render("  note: no earlier provider for "+miss))
	}
	printOK(w, fmt.Sprintf("%d node(s), fingerprint %s", len(p.Nodes), fp))
	return nil
}

// emitPlanTrace records a planning run when tracing is configured in the
// request settings and a sink was requested.
func emitPlanTrace(p *plan.Plan, fp string) error {
	var sinks trace.MultiSink
	var file *trace.JSONLSink
	if planTrace != "" {
		var err error
		if file, err = trace.NewFileSink(planTrace); err != nil {
			return err
		}
		defer file.Close()
		sinks = append(sinks, file)
	}
	if planConsole {
		sinks = append(sinks, trace.NewConsoleSink(logger))
	}
	if len(sinks) == 0 {
		return nil
	}

	cfg := p.Settings.Trace
	if cfg == nil {
		enabled := true
		cfg = &trace.Config{Enabled: &enabled}
	}
	session := trace.NewSession(trace.Options{PlanFingerprint: fp, Config: cfg, Sink: sinks})
	session.EmitRunStart(map[string]any{"recipeId": p.RecipeID, "nodes": len(p.Nodes)})
	for _, n := range p.Nodes {
		meta := trace.StepMeta{StepID: n.StepID, NodeID: n.NodeID, Phase: n.Phase}
		session.EmitStepStart(meta)
		session.StepScope(meta).Event(func() any {
			return map[string]any{"config": n.Config}
		})
		session.EmitStepFinish(meta, 0, nil)
	}
	session.EmitRunFinish(nil)

	if file != nil {
		return file.Err()
	}
	return nil
}

func init() {
	planCmd.Flags().StringVar(&planTrace, "trace", "", "Append planning trace events to a JSONL file")
	planCmd.Flags().BoolVar(&planConsole, "trace-console", false, "Log planning trace events")
	planCmd.Flags().StringVarP(&planFormat, "format", "f", "json", "Output format: json, table, ascii or mermaid")
	rootCmd.AddCommand(planCmd)
}
