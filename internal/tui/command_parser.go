package tui

import (
	"regexp"
	"strings"
)

// CommandType 命令类型
type CommandType int

const (
	CommandTypeHelp CommandType = iota + 1
	CommandTypeNew
	CommandTypeExport
)

// Command 解析后的命令
type Command struct {
	Type CommandType
	Raw  string
	// Arg 命令参数，目前只有 /export 的文件路径
	Arg string
}

// CommandParser 斜杠命令解析器，只识别已知命令，其余输入（包括 /api/... 这类文本）照常发给后端
type CommandParser struct {
	helpPatterns   []*regexp.Regexp
	newPatterns    []*regexp.Regexp
	exportPatterns []*regexp.Regexp
}

// NewCommandParser 创建新的命令解析器
func NewCommandParser() *CommandParser {
	parser := &CommandParser{}
	parser.initializePatterns()
	return parser
}

func (p *CommandParser) initializePatterns() {
	p.helpPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^/(help|\?)$`),
	}

	// /clear 是 /new 的别名
	p.newPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^/(new|clear|reset)$`),
	}

	p.exportPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^/export(?:\s+(.+))?$`),
	}
}

// Parse 解析输入，不是命令时返回 nil
func (p *CommandParser) Parse(input string) *Command {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		return nil
	}

	for _, pattern := range p.helpPatterns {
		if pattern.MatchString(input) {
			return &Command{Type: CommandTypeHelp, Raw: input}
		}
	}

	for _, pattern := range p.newPatterns {
		if pattern.MatchString(input) {
			return &Command{Type: CommandTypeNew, Raw: input}
		}
	}

	for _, pattern := range p.exportPatterns {
		if matches := pattern.FindStringSubmatch(input); matches != nil {
			return &Command{Type: CommandTypeExport, Raw: input, Arg: strings.TrimSpace(matches[1])}
		}
	}

	return nil
}

// FormatCommandType 返回命令的显示名
func FormatCommandType(t CommandType) string {
	switch t {
	case CommandTypeHelp:
		return "/help"
	case CommandTypeNew:
		return "/new"
	case CommandTypeExport:
		return "/export"
	default:
		return "unknown"
	}
}

// CommandHelp 命令说明，/help 时显示
func CommandHelp() string {
	return strings.Join([]string{
		"/help            显示本帮助",
		"/new             开始新的会话（清空对话记录）",
		"/export <file>   导出对话，.html 导出网页，其余导出 Markdown",
	}, "\n")
}
