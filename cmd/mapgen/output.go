package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/ormasoftchile/mapgen/pkg/kernel/plan"
	"github.com/ormasoftchile/mapgen/pkg/kernel/recipe"
)

var (
	errorTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#E06C75"))
	codeStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#E5C07B"))
	pathStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#61AFEF"))
	okStyle         = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#98C379"))
	mutedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#7F848E"))
)

// diagnostic is one row of a failed compile.
type diagnostic struct {
	code, path, message string
}

// diagnostics unpacks the aggregate compile errors.
func diagnostics(err error) ([]diagnostic, bool) {
	var rerr *recipe.CompileError
	if errors.As(err, &rerr) {
		out := make([]diagnostic, len(rerr.Errors))
		for i, e := range rerr.Errors {
			out[i] = diagnostic{code: string(e.Code), path: e.Path, message: e.Message}
		}
		return out, true
	}
	var perr *plan.CompileError
	if errors.As(err, &perr) {
		out := make([]diagnostic, len(perr.Errors))
		for i, e := range perr.Errors {
			out[i] = diagnostic{code: string(e.Code), path: e.Path, message: e.Message}
		}
		return out, true
	}
	return nil, false
}

// printError writes err, listing compile diagnostics one per line.
func printError(w io.Writer, err error) {
	diags, ok := diagnostics(err)
	if !ok {
		fmt.Fprintln(w, errorTitleStyle.Render("✗ "+err.Error()))
		return
	}
	fmt.Fprintln(w, errorTitleStyle.Render(fmt.Sprintf("✗ Compile failed: %d error(s)", len(diags))))
	fmt.Fprintln(w)
	for i, d := range diags {
		fmt.Fprintf(w, "  %d. %s %s\n", i+1, codeStyle.Render("["+d.code+"]"), d.message)
		fmt.Fprintf(w, "     at: %s\n", pathStyle.Render(d.path))
	}
}

func printOK(w io.Writer, msg string) {
	fmt.Fprintln(w, okStyle.Render("✓ "+msg))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderTable aligns rows into columns by display width.
func renderTable(header []string, rows [][]string) string {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); i < len(widths) && w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		for i, cell := range cells {
			if i == len(cells)-1 {
				b.WriteString(cell)
				break
			}
			b.WriteString(runewidth.FillRight(cell, widths[i]))
			b.WriteString("  ")
		}
		b.WriteString("\n")
	}
	writeRow(header)
	sep := make([]string, len(header))
	for i, w := range widths {
		sep[i] = strings.Repeat("─", w)
	}
	writeRow(sep)
	for _, row := range rows {
		writeRow(row)
	}
	return b.String()
}

// planTable lists the nodes of p.
func planTable(p *plan.Plan) string {
	rows := make([][]string, len(p.Nodes))
	for i, n := range p.Nodes {
		id := n.StepID
		if n.NodeID != "" && n.NodeID != n.StepID {
			id += " (" + n.NodeID + ")"
		}
		rows[i] = []string{
			fmt.Sprint(i + 1),
			id,
			n.Phase,
			orDash(strings.Join(n.Requires, ", ")),
			orDash(strings.Join(n.Provides, ", ")),
		}
	}
	return renderTable([]string{"#", "STEP", "PHASE", "REQUIRES", "PROVIDES"}, rows)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
