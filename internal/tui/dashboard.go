package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Zacy-Sokach/crmassist/internal/crm"
)

// statCard 仪表盘顶部的指标卡片
type statCard struct {
	title string
	value string
}

var dashboardCards = []statCard{
	{"Total opportunity count", "463"},
	{"Opportunity amount, current month", "$ 999,928.00"},
	{"# Open leads", "56"},
}

// renderDashboard 助手面板关闭时显示的仪表盘概览
func (m Model) renderDashboard(width int) string {
	var sb strings.Builder

	cards := make([]string, 0, len(dashboardCards))
	for _, c := range dashboardCards {
		cards = append(cards, m.styles.card.Render(
			m.styles.muted.Render(c.title)+"\n"+m.styles.cardValue.Render(c.value)))
	}
	sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cards...))
	sb.WriteString("\n\n")
	sb.WriteString(m.styles.title.Render("Opportunity funnel"))
	sb.WriteString("\n")
	sb.WriteString(renderFunnel(crm.DefaultFunnel, width, m.styles.bar))
	return sb.String()
}

// renderFunnel 用横条画出每个阶段的数量和到下一阶段的转化率
func renderFunnel(stages []crm.Stage, width int, bar lipgloss.Style) string {
	if len(stages) == 0 {
		return ""
	}
	nameWidth := 0
	maxCount := 0
	for _, s := range stages {
		if w := lipgloss.Width(s.Name); w > nameWidth {
			nameWidth = w
		}
		if s.Count > maxCount {
			maxCount = s.Count
		}
	}

	barWidth := width - nameWidth - 20
	if barWidth < 10 {
		barWidth = 10
	}

	conv := crm.Conversions(stages)
	lines := make([]string, 0, len(stages))
	for i, s := range stages {
		n := 0
		if maxCount > 0 {
			n = s.Count * barWidth / maxCount
		}
		if n == 0 && s.Count > 0 {
			n = 1
		}
		line := fmt.Sprintf("%-*s %s %d", nameWidth, s.Name, bar.Render(strings.Repeat("█", n)), s.Count)
		if i < len(conv) {
			line += fmt.Sprintf("  → %.0f%%", conv[i].Rate*100)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
