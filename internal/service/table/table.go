// Package table renders table requests as styled HTML fragments with a short
// mind-map style explanation.
package table

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"meligy/internal/models"
)

var principles = []string{
	"Hierarchical Information Structure",
	"Categorical Data Grouping",
	"Visual Clarity & Organization",
	"Logical Flow & Connections",
	"Cognitive Load Optimization",
	"Memory-Friendly Design",
}

type node struct {
	id       string
	label    string
	level    int
	category string
	children []*node
}

type classes struct {
	container, header, title, tableWrapper, table, thead, headerRow string
	th, tbody, tr, td, evenRow, oddRow, footer, footerText          string
}

var baseClasses = classes{
	container:    "bg-white/10 backdrop-blur-sm rounded-2xl p-4 border border-white/20 my-4",
	header:       "mb-4 text-center",
	title:        "text-xl font-bold text-white mb-2",
	tableWrapper: "overflow-x-auto",
	table:        "w-full border-collapse",
	thead:        "bg-white/20",
	headerRow:    "border-b-2 border-white/30",
	th:           "px-4 py-3 text-left font-semibold text-white border-r border-white/20 last:border-r-0",
	tbody:        "bg-white/5",
	tr:           "border-b border-white/10 hover:bg-white/10 transition-colors",
	td:           "px-4 py-3 text-white border-r border-white/10 last:border-r-0",
	evenRow:      "bg-white/5",
	oddRow:       "bg-transparent",
	footer:       "mt-4 text-center",
	footerText:   "text-xs text-gray-400",
}

var accents = map[models.TableStyle]string{
	models.StyleScientific:  "blue",
	models.StyleBusiness:    "green",
	models.StyleEducational: "purple",
	models.StyleComparison:  "orange",
}

func stylesFor(style models.TableStyle) classes {
	c := baseClasses
	color, ok := accents[style]
	if !ok {
		return c
	}
	c.container += " border-" + color + "-500/30"
	c.title += " text-" + color + "-300"
	c.th += " bg-" + color + "-500/20"
	return c
}

// Generator builds table responses. The zero value is ready to use.
type Generator struct {
	logger *zap.Logger
}

func NewGenerator(logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{logger: logger}
}

// Generate renders req. It only reports failure when the structure cannot be
// built; all fields are then empty and Error is set.
func (g *Generator) Generate(req models.TableRequest) (resp models.TableResponse) {
	defer func() {
		if r := recover(); r != nil {
			if g.logger != nil {
				g.logger.Error("table generation panicked", zap.Any("panic", r))
			}
			resp = models.TableResponse{MindMapPrinciples: []string{}, Error: fmt.Sprint(r)}
		}
	}()
	if req.Style == "" {
		req.Style = models.StyleScientific
	}

	root := buildTree(req)
	return models.TableResponse{
		Success:           true,
		TableHTML:         renderHTML(req, stylesFor(req.Style)),
		Explanation:       explanation(req, categories(root)),
		Summary:           summary(req),
		MindMapPrinciples: append([]string(nil), principles...),
	}
}

// buildTree hangs one node per column under the topic, and one leaf per row
// under each column. Leaves prefer the matching data cell over the row label.
func buildTree(req models.TableRequest) *node {
	root := &node{id: "root", label: req.Topic, category: "main"}
	for ci, col := range req.Columns {
		colNode := &node{id: "col_" + strconv.Itoa(ci), label: col, level: 1, category: "column"}
		for ri, row := range req.Rows {
			label := row
			if ri < len(req.Data) && ci < len(req.Data[ri]) && req.Data[ri][ci] != "" {
				label = req.Data[ri][ci]
			}
			colNode.children = append(colNode.children, &node{
				id:       fmt.Sprintf("row_%d_col_%d", ri, ci),
				label:    label,
				level:    2,
				category: "data",
			})
		}
		root.children = append(root.children, colNode)
	}
	return root
}

// categories walks the tree depth-first and lists each category once.
func categories(root *node) []string {
	var out []string
	seen := map[string]bool{}
	var walk func(n *node)
	walk = func(n *node) {
		if !seen[n.category] {
			seen[n.category] = true
			out = append(out, n.category)
		}
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(root)
	return out
}

func rowClass(c classes, i int) string {
	if i%2 == 0 {
		return c.tr + " " + c.evenRow
	}
	return c.tr + " " + c.oddRow
}

func renderHTML(req models.TableRequest, c classes) string {
	esc := html.EscapeString
	var b strings.Builder
	fmt.Fprintf(&b, `<div class="%s"><div class="%s"><h3 class="%s">%s</h3></div>`, c.container, c.header, c.title, esc(req.Topic))
	fmt.Fprintf(&b, `<div class="%s"><table class="%s"><thead class="%s"><tr class="%s">`, c.tableWrapper, c.table, c.thead, c.headerRow)
	for _, h := range req.Columns {
		fmt.Fprintf(&b, `<th class="%s">%s</th>`, c.th, esc(h))
	}
	fmt.Fprintf(&b, `</tr></thead><tbody class="%s">`, c.tbody)

	switch {
	case len(req.Data) > 0:
		for i, row := range req.Data {
			fmt.Fprintf(&b, `<tr class="%s">`, rowClass(c, i))
			for _, cell := range row {
				fmt.Fprintf(&b, `<td class="%s">%s</td>`, c.td, esc(cell))
			}
			b.WriteString(`</tr>`)
		}
	case len(req.Rows) > 0:
		for i, row := range req.Rows {
			fmt.Fprintf(&b, `<tr class="%s"><td class="%s" colspan="%d">%s</td></tr>`, rowClass(c, i), c.td, len(req.Columns), esc(row))
		}
	}

	fmt.Fprintf(&b, `</tbody></table></div><div class="%s"><p class="%s">Generated using mind mapping principles for optimal organization</p></div></div>`, c.footer, c.footerText)
	return b.String()
}

func explanation(req models.TableRequest, cats []string) string {
	var b strings.Builder
	b.WriteString("## Detailed Table Analysis & Mind Mapping Application\n\n")
	b.WriteString("### 🧠 **Mind Mapping Principles Applied:**\n\n")
	b.WriteString("**1. Hierarchical Organization**\n")
	fmt.Fprintf(&b, "- **Root Level**: \"%s\" serves as the central concept\n", req.Topic)
	b.WriteString("- **Branch Level**: Columns represent main categories branching from the central topic\n")
	b.WriteString("- **Leaf Level**: Individual data points form the detailed information nodes\n\n")
	b.WriteString("**2. Categorization & Grouping**\n")
	fmt.Fprintf(&b, "- Information is systematically grouped by columns (%s)\n", strings.Join(req.Columns, ", "))
	b.WriteString("- Related data points are clustered together for cognitive efficiency\n\n")
	b.WriteString("**3. Visual Structure & Clarity**\n")
	b.WriteString("- Consistent spacing and alignment aid visual processing\n\n")
	b.WriteString("**4. Logical Flow & Connections**\n")
	b.WriteString("- Information flows from general (headers) to specific (data)\n\n")
	b.WriteString("### 📊 **Table Structure Analysis:**\n\n")
	fmt.Fprintf(&b, "**Headers**: %d main categories\n", len(req.Columns))
	fmt.Fprintf(&b, "**Data Organization**: %d information clusters\n", len(req.Rows))
	fmt.Fprintf(&b, "**Mind Map Levels**: %s", strings.Join(cats, " → "))
	return b.String()
}

func summary(req models.TableRequest) string {
	rows := "variable"
	if n := len(req.Rows); n > 0 {
		rows = strconv.Itoa(n)
	} else if n := len(req.Data); n > 0 {
		rows = strconv.Itoa(n)
	}
	var b strings.Builder
	b.WriteString("## 📋 **Table Summary**\n\n")
	fmt.Fprintf(&b, "**Topic**: %s\n", req.Topic)
	fmt.Fprintf(&b, "**Structure**: %d columns × %s rows\n", len(req.Columns), rows)
	b.WriteString("**Organization**: Hierarchical mind map structure\n")
	fmt.Fprintf(&b, "**Style**: %s presentation\n", capitalize(string(req.Style)))
	fmt.Fprintf(&b, "**Principles**: Applied %d core mind mapping principles for maximum clarity and retention", len(principles))
	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
