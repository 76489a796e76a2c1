package tui

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/russross/blackfriday/v2"

	"github.com/Zacy-Sokach/crmassist/internal/chat"
)

// TranscriptMarkdown 把会话导出为 Markdown，推理步骤放在它所属的回复前面
func TranscriptMarkdown(state chat.State, exportedAt time.Time) string {
	var sb strings.Builder
	sb.WriteString("# CRM assistant transcript\n\n")
	sb.WriteString(fmt.Sprintf("_Exported %s_\n\n", exportedAt.Format(time.RFC3339)))

	trace := chat.PresentTrace(state)
	for i, msg := range state.Transcript {
		if trace.Attached && trace.MessageIndex == i {
			writeTraceMarkdown(&sb, trace)
		}
		switch msg.Role {
		case chat.RoleUser:
			sb.WriteString("**You:** ")
			sb.WriteString(strings.TrimSpace(msg.Content))
			sb.WriteString("\n\n")
		default:
			sb.WriteString("**Assistant:**\n\n")
			sb.WriteString(strings.TrimSpace(msg.Content))
			sb.WriteString("\n\n")
		}
	}
	return sb.String()
}

func writeTraceMarkdown(sb *strings.Builder, trace chat.TraceView) {
	sb.WriteString(fmt.Sprintf("### Reasoning (%s)\n\n", trace.Summary()))
	for i, step := range trace.Steps {
		sb.WriteString(fmt.Sprintf("%d. ", i+1))
		var parts []string
		if step.Thought != "" {
			parts = append(parts, "**Thought:** "+step.Thought)
		}
		if step.Action != "" {
			parts = append(parts, "**Action:** "+step.Action)
		}
		if step.ActionInput != "" {
			parts = append(parts, "**Input:** `"+strings.ReplaceAll(step.ActionInput, "`", "'")+"`")
		}
		if step.Observation != "" {
			parts = append(parts, "**Observation:** "+step.Observation)
		}
		if len(parts) == 0 {
			parts = append(parts, "_(empty step)_")
		}
		sb.WriteString(strings.Join(parts, "  \n   "))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
}

// 消息内容来自用户和后端，导出时丢弃原始 HTML 并过滤危险链接
const exportHTMLFlags = blackfriday.CommonHTMLFlags | blackfriday.SkipHTML | blackfriday.Safelink

// TranscriptHTML 用 blackfriday 把导出的 Markdown 转成完整的 HTML 页面
func TranscriptHTML(state chat.State, exportedAt time.Time) string {
	renderer := blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{Flags: exportHTMLFlags})
	body := blackfriday.Run([]byte(TranscriptMarkdown(state, exportedAt)),
		blackfriday.WithExtensions(markdownExtensions),
		blackfriday.WithRenderer(renderer))

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	sb.WriteString("<title>" + html.EscapeString("CRM assistant transcript") + "</title>\n")
	sb.WriteString("</head>\n<body>\n")
	sb.Write(body)
	sb.WriteString("</body>\n</html>\n")
	return sb.String()
}

// ExportTranscript 按扩展名选择格式写入文件，返回写入的绝对路径
func ExportTranscript(state chat.State, path string, exportedAt time.Time) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("导出路径不能为空")
	}
	if len(state.Transcript) == 0 {
		return "", fmt.Errorf("没有可导出的对话")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("解析导出路径失败: %w", err)
	}

	var content string
	switch strings.ToLower(filepath.Ext(abs)) {
	case ".html", ".htm":
		content = TranscriptHTML(state, exportedAt)
	default:
		content = TranscriptMarkdown(state, exportedAt)
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return "", fmt.Errorf("创建导出目录失败: %w", err)
	}
	if err := os.WriteFile(abs, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("写入导出文件失败: %w", err)
	}
	return abs, nil
}
