package tui

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"github.com/russross/blackfriday/v2"
)

const markdownExtensions = blackfriday.CommonExtensions

// MarkdownRenderer 把 Markdown 渲染成终端文本
type MarkdownRenderer struct {
	heading lipgloss.Style
	strong  lipgloss.Style
	emph    lipgloss.Style
	del     lipgloss.Style
	code    lipgloss.Style
	link    lipgloss.Style
	quote   lipgloss.Style
	rule    lipgloss.Style
}

// 全局Markdown渲染器单例
var (
	globalMarkdownRenderer *MarkdownRenderer
	rendererOnce           sync.Once
)

// GetMarkdownRenderer 获取Markdown渲染器单例
func GetMarkdownRenderer() *MarkdownRenderer {
	rendererOnce.Do(func() {
		globalMarkdownRenderer = NewMarkdownRenderer()
	})
	return globalMarkdownRenderer
}

// NewMarkdownRenderer 创建新的 Markdown 渲染器
func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{
		heading: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14")),
		strong:  lipgloss.NewStyle().Bold(true),
		emph:    lipgloss.NewStyle().Italic(true),
		del:     lipgloss.NewStyle().Strikethrough(true),
		code:    lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		link:    lipgloss.NewStyle().Underline(true).Foreground(lipgloss.Color("12")),
		quote:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		rule:    lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

// Render 渲染 src，按 width 折行；width <= 0 时不折行
func (r *MarkdownRenderer) Render(src string, width int) string {
	doc := blackfriday.New(blackfriday.WithExtensions(markdownExtensions)).Parse([]byte(src))
	return strings.TrimRight(r.blocks(doc, width, "\n\n"), "\n")
}

func (r *MarkdownRenderer) blocks(parent *blackfriday.Node, width int, sep string) string {
	var out []string
	for c := parent.FirstChild; c != nil; c = c.Next {
		if b := r.block(c, width); b != "" {
			out = append(out, b)
		}
	}
	return strings.Join(out, sep)
}

func (r *MarkdownRenderer) block(n *blackfriday.Node, width int) string {
	switch n.Type {
	case blackfriday.Paragraph:
		return wrap(r.inlines(n), width)

	case blackfriday.Heading:
		return r.heading.Render(wrap(r.inlines(n), width))

	case blackfriday.CodeBlock:
		code := strings.TrimRight(string(n.Literal), "\n")
		return r.code.Render(indentLines(code, "    "))

	case blackfriday.BlockQuote:
		inner := r.blocks(n, width-2, "\n\n")
		return r.quote.Render(indentLines(inner, "│ "))

	case blackfriday.List:
		return r.list(n, width)

	case blackfriday.HorizontalRule:
		w := width
		if w <= 0 || w > 40 {
			w = 40
		}
		return r.rule.Render(strings.Repeat("─", w))

	case blackfriday.Table:
		return r.table(n)

	case blackfriday.HTMLBlock:
		return strings.TrimRight(string(n.Literal), "\n")
	}
	return wrap(r.inlines(n), width)
}

func (r *MarkdownRenderer) list(n *blackfriday.Node, width int) string {
	ordered := n.ListData.ListFlags&blackfriday.ListTypeOrdered != 0
	sep := "\n"
	if !n.ListData.Tight {
		sep = "\n\n"
	}

	var items []string
	num := 1
	for item := n.FirstChild; item != nil; item = item.Next {
		if item.Type != blackfriday.Item {
			continue
		}
		marker := "• "
		if ordered {
			marker = fmt.Sprintf("%d. ", num)
			num++
		}
		pad := strings.Repeat(" ", lipgloss.Width(marker))
		body := r.blocks(item, width-len(pad), "\n")

		lines := strings.Split(body, "\n")
		for i := range lines {
			if i == 0 {
				lines[i] = marker + lines[i]
			} else if lines[i] != "" {
				lines[i] = pad + lines[i]
			}
		}
		items = append(items, strings.Join(lines, "\n"))
	}
	return strings.Join(items, sep)
}

// table 简单按列对齐，不画边框
func (r *MarkdownRenderer) table(n *blackfriday.Node) string {
	var rows [][]string
	n.Walk(func(node *blackfriday.Node, entering bool) blackfriday.WalkStatus {
		if !entering {
			return blackfriday.GoToNext
		}
		switch node.Type {
		case blackfriday.TableRow:
			rows = append(rows, nil)
		case blackfriday.TableCell:
			last := len(rows) - 1
			rows[last] = append(rows[last], r.inlines(node))
			return blackfriday.SkipChildren
		}
		return blackfriday.GoToNext
	})

	var widths []int
	for _, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	lines := make([]string, 0, len(rows)+1)
	for ri, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = cell + strings.Repeat(" ", widths[i]-lipgloss.Width(cell))
		}
		lines = append(lines, strings.TrimRight(strings.Join(cells, "  "), " "))
		if ri == 0 {
			var rule []string
			for _, w := range widths {
				rule = append(rule, strings.Repeat("─", w))
			}
			lines = append(lines, r.rule.Render(strings.Join(rule, "  ")))
		}
	}
	return strings.Join(lines, "\n")
}

func (r *MarkdownRenderer) inlines(n *blackfriday.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.Next {
		sb.WriteString(r.inline(c))
	}
	return sb.String()
}

func (r *MarkdownRenderer) inline(n *blackfriday.Node) string {
	switch n.Type {
	case blackfriday.Text, blackfriday.HTMLSpan:
		return string(n.Literal)
	case blackfriday.Softbreak:
		return " "
	case blackfriday.Hardbreak:
		return "\n"
	case blackfriday.Code:
		return r.code.Render(string(n.Literal))
	case blackfriday.Strong:
		return r.strong.Render(r.inlines(n))
	case blackfriday.Emph:
		return r.emph.Render(r.inlines(n))
	case blackfriday.Del:
		return r.del.Render(r.inlines(n))
	case blackfriday.Link:
		text := r.inlines(n)
		dest := string(n.LinkData.Destination)
		if dest == "" || dest == text {
			return r.link.Render(text)
		}
		return r.link.Render(text) + " (" + dest + ")"
	case blackfriday.Image:
		return "[image: " + r.inlines(n) + "]"
	}
	return r.inlines(n)
}

func wrap(s string, width int) string {
	if width <= 0 {
		return s
	}
	return wordwrap.String(s, width)
}

func indentLines(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = prefix + lines[i]
	}
	return strings.Join(lines, "\n")
}
