// Package diagram renders execution plans as Mermaid flowcharts or ASCII box
// diagrams.
package diagram

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/ormasoftchile/mapgen/pkg/kernel/plan"
)

// Format represents the output diagram format.
type Format string

const (
	FormatMermaid Format = "mermaid"
	FormatASCII   Format = "ascii"
)

// Generate produces a diagram of p.
func Generate(p *plan.Plan, format Format) (string, error) {
	if p == nil {
		return "", fmt.Errorf("nil plan")
	}
	switch format {
	case FormatMermaid:
		return generateMermaid(p), nil
	case FormatASCII:
		return generateASCII(p), nil
	default:
		return "", fmt.Errorf("unsupported diagram format: %s", format)
	}
}

// Edge links the node providing a tag to a later node requiring it.
type Edge struct {
	From, To int
	Tag      string
}

// Edges returns the dependency edges of p in node order. A requirement is
// linked to the closest earlier provider.
func Edges(p *plan.Plan) []Edge {
	var edges []Edge
	providers := map[string]int{}
	for i, n := range p.Nodes {
		reqs := append([]string(nil), n.Requires...)
		sort.Strings(reqs)
		for _, tag := range reqs {
			if from, ok := providers[tag]; ok {
				edges = append(edges, Edge{From: from, To: i, Tag: tag})
			}
		}
		for _, tag := range n.Provides {
			providers[tag] = i
		}
	}
	return edges
}

// Unsatisfied lists requirements with no earlier provider, as "node: tag".
func Unsatisfied(p *plan.Plan) []string {
	var out []string
	provided := map[string]bool{}
	for _, n := range p.Nodes {
		for _, tag := range n.Requires {
			if !provided[tag] {
				out = append(out, label(n)+": "+tag)
			}
		}
		for _, tag := range n.Provides {
			provided[tag] = true
		}
	}
	return out
}

// --- Mermaid flowchart ---

func generateMermaid(p *plan.Plan) string {
	var b strings.Builder
	b.WriteString("flowchart TD\n")
	if len(p.Nodes) == 0 {
		return b.String()
	}

	phase := ""
	open := false
	for i, n := range p.Nodes {
		if n.Phase != phase {
			if open {
				b.WriteString("    end\n")
			}
			phase = n.Phase
			open = phase != ""
			if open {
				b.WriteString(fmt.Sprintf("    subgraph %s[%q]\n", safeID("phase-"+phase), phase))
			}
		}
		b.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", nodeID(i, n), escMermaid(label(n))))
	}
	if open {
		b.WriteString("    end\n")
	}

	for _, e := range Edges(p) {
		b.WriteString(fmt.Sprintf("    %s -->|%q| %s\n",
			nodeID(e.From, p.Nodes[e.From]), e.Tag, nodeID(e.To, p.Nodes[e.To])))
	}
	return b.String()
}

// --- ASCII ---

func generateASCII(p *plan.Plan) string {
	var b strings.Builder

	name := p.RecipeID
	if name == "" {
		name = "Execution plan"
	}
	if len(p.Nodes) == 0 {
		b.WriteString(name + " (empty)\n")
		return b.String()
	}

	const indent = 4
	boxWidth := computeUniformBoxWidth(p.Nodes, name)
	connCol := indent + 1 + boxWidth/2
	pad := strings.Repeat(" ", indent)
	connPad := strings.Repeat(" ", connCol)

	mid := boxWidth / 2
	b.WriteString(pad + "╔" + strings.Repeat("═", boxWidth) + "╗\n")
	b.WriteString(pad + "║" + centerPad(name, boxWidth) + "║\n")
	b.WriteString(pad + "╚" + strings.Repeat("═", mid) + "╤" + strings.Repeat("═", boxWidth-mid-1) + "╝\n")
	b.WriteString(connPad + "│\n")

	for i, n := range p.Nodes {
		writeASCIINode(&b, n, indent, boxWidth)
		if i < len(p.Nodes)-1 {
			b.WriteString(connPad + "│\n")
		}
	}
	return b.String()
}

func nodeLines(n plan.Node) []string {
	lines := []string{fmt.Sprintf(" ○ %s ", label(n))}
	if n.Phase != "" {
		lines = append(lines, "   phase: "+n.Phase+" ")
	}
	if len(n.Requires) > 0 {
		lines = append(lines, " ← "+strings.Join(n.Requires, ", ")+" ")
	}
	if len(n.Provides) > 0 {
		lines = append(lines, " → "+strings.Join(n.Provides, ", ")+" ")
	}
	return lines
}

// computeUniformBoxWidth returns the widest interior width needed across all
// nodes and the header name.
func computeUniformBoxWidth(nodes []plan.Node, name string) int {
	w := 22
	if nw := runewidth.StringWidth(name) + 4; nw > w {
		w = nw
	}
	for _, n := range nodes {
		for _, l := range nodeLines(n) {
			if lw := runewidth.StringWidth(l); lw > w {
				w = lw
			}
		}
	}
	return w
}

// centerPad centers s within width using spaces, based on display width.
func centerPad(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	total := width - sw
	left := total / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", total-left)
}

func writeASCIINode(b *strings.Builder, n plan.Node, indent, boxWidth int) {
	pad := strings.Repeat(" ", indent)
	mid := boxWidth / 2

	b.WriteString(pad + "┌" + strings.Repeat("─", boxWidth) + "┐\n")
	for _, l := range nodeLines(n) {
		b.WriteString(pad + "│" + l + strings.Repeat(" ", boxWidth-runewidth.StringWidth(l)) + "│\n")
	}
	b.WriteString(pad + "└" + strings.Repeat("─", mid) + "┬" + strings.Repeat("─", boxWidth-mid-1) + "┘\n")
}

// --- string helpers ---

func label(n plan.Node) string {
	if n.NodeID != "" && n.NodeID != n.StepID {
		return n.StepID + " (" + n.NodeID + ")"
	}
	return n.StepID
}

func nodeID(i int, n plan.Node) string {
	return fmt.Sprintf("n%d_%s", i, safeID(n.StepID))
}

func safeID(id string) string {
	r := strings.NewReplacer("-", "_", " ", "_", ".", "_")
	return r.Replace(id)
}

func escMermaid(s string) string {
	s = strings.ReplaceAll(s, `"`, "#quot;")
	s = strings.ReplaceAll(s, `'`, "#apos;")
	return s
}
