package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/ormasoftchile/mapgen/pkg/kernel/manifest"
	"github.com/ormasoftchile/mapgen/pkg/kernel/schema"
)

var (
	describeRaw   bool
	describeWidth int
)

var describeCmd = &cobra.Command{
	Use:   "describe [manifest.yaml]",
	Short: "Summarize a manifest's stages and steps",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDescribe(cmd.OutOrStdout(), args[0])
	},
}

func runDescribe(w io.Writer, path string) error {
	bundle, err := manifest.BuildFile(path)
	if err != nil {
		return err
	}
	md := describeMarkdown(bundle)
	if describeRaw {
		_, err := io.WriteString(w, md)
		return err
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(describeWidth),
	)
	if err != nil {
		return fmt.Errorf("markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}

// describeMarkdown renders a manifest summary as Markdown.
func describeMarkdown(b *manifest.Bundle) string {
	var sb strings.Builder
	m := b.Manifest

	fmt.Fprintf(&sb, "# %s\n\n", m.Recipe.ID)
	if m.Recipe.Description != "" {
		sb.WriteString(m.Recipe.Description + "\n\n")
	}

	for i, st := range b.Recipe.Stages {
		spec := m.Stages[i]
		fmt.Fprintf(&sb, "## Stage `%s`\n\n", st.ID())
		if spec.Description != "" {
			sb.WriteString(spec.Description + "\n\n")
		}
		if knobs := schema.PropertyNames(st.KnobsSchema()); len(knobs) > 0 {
			fmt.Fprintf(&sb, "Knobs: %s\n\n", codeList(knobs))
		}
		if st.HasPublic() {
			fmt.Fprintf(&sb, "Public fields: %s\n\n", codeList(schema.PropertyNames(st.PublicSchema())))
		}

		sb.WriteString("| Step | Phase | Requires | Provides |\n")
		sb.WriteString("|------|-------|----------|----------|\n")
		for _, mod := range st.Steps() {
			fmt.Fprintf(&sb, "| `%s` | %s | %s | %s |\n",
				mod.ID, mod.Phase, orDash(strings.Join(mod.Requires, ", ")), orDash(strings.Join(mod.Provides, ", ")))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func codeList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "`" + n + "`"
	}
	return strings.Join(quoted, ", ")
}

func init() {
	describeCmd.Flags().BoolVar(&describeRaw, "raw", false, "Print Markdown without terminal rendering")
	describeCmd.Flags().IntVar(&describeWidth, "width", 100, "Word wrap width")
	rootCmd.AddCommand(describeCmd)
}
