package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Zacy-Sokach/crmassist/internal/chat"
)

// Version 是当前的 crmassist 版本，由 main 包设置
var Version string

const (
	inputHeight = 3
	// 标题、状态栏、帮助栏和分隔空行
	chromeHeight = 4
)

type Options struct {
	// NewConversation 创建会话，启动时和 /new 时调用
	NewConversation func() *chat.Conversation
	Logger          *slog.Logger
	// Context 传给每一轮请求，默认 context.Background()
	Context context.Context
	// Closed 为 true 时启动后先显示仪表盘
	Closed bool
}

type Model struct {
	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model
	keys     KeyMap
	styles   styles
	markdown *MarkdownRenderer

	conv          *chat.Conversation
	newConv       func() *chat.Conversation
	commandParser *CommandParser
	logger        *slog.Logger
	ctx           context.Context

	open   bool
	ready  bool
	width  int
	height int
	notice string
	now    func() time.Time
}

func NewModel(opts Options) Model {
	ta := textarea.New()
	ta.Placeholder = "Type your message..."
	ta.Focus()
	ta.CharLimit = 0
	ta.SetWidth(80)
	ta.SetHeight(inputHeight)
	ta.ShowLineNumbers = false
	ta.KeyMap.InsertNewline.SetEnabled(false)

	vp := newViewport(80, 20)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	st := defaultStyles()
	sp.Style = st.assistant

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	m := Model{
		viewport:      vp,
		textarea:      ta,
		spinner:       sp,
		keys:          DefaultKeyMap(),
		styles:        st,
		markdown:      GetMarkdownRenderer(),
		conv:          opts.NewConversation(),
		newConv:       opts.NewConversation,
		commandParser: NewCommandParser(),
		logger:        logger,
		ctx:           ctx,
		open:          !opts.Closed,
		width:         80,
		now:           time.Now,
	}
	m.refreshViewport()
	return m
}

// Conversation 返回当前会话，/new 之后会变
func (m Model) Conversation() *chat.Conversation {
	return m.conv
}

func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.TogglePanel):
			m.open = !m.open
			m.logger.Debug("assistant panel toggled", "open", m.open, "session_id", m.conv.ID())
			if m.open {
				m.textarea.Focus()
				m.refreshViewport()
			} else {
				m.textarea.Blur()
			}
			return m, nil
		}

		// 面板关闭时只响应开关和退出
		if !m.open {
			return m, nil
		}

		switch {
		case key.Matches(msg, m.keys.ToggleTrace):
			m.conv.ToggleTrace()
			m.refreshViewport()
			return m, nil
		case key.Matches(msg, m.keys.Send):
			return m.handleSend()
		case key.Matches(msg, m.keys.PageUp), key.Matches(msg, m.keys.PageDown):
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		vpHeight := msg.Height - inputHeight - chromeHeight
		if vpHeight < 3 {
			vpHeight = 3
		}
		if !m.ready {
			m.viewport = newViewport(msg.Width, vpHeight)
			m.viewport.YPosition = 1
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = vpHeight
		}
		m.textarea.SetWidth(msg.Width)
		m.refreshViewport()

	case turnDoneMsg:
		// /new 之后旧会话的回合会被 Complete 拒绝
		if !m.conv.Complete(msg.turn, msg.result, msg.err) {
			m.logger.Debug("dropped stale turn", "turn_id", msg.turn.ID)
			return m, nil
		}
		m.refreshViewport()
		return m, nil

	case exportDoneMsg:
		if msg.err != nil {
			m.notice = "导出失败: " + msg.err.Error()
		} else {
			m.notice = "已导出到 " + msg.path
		}
		return m, nil

	case spinner.TickMsg:
		if !m.conv.Pending() {
			return m, nil
		}
		m.spinner, cmd = m.spinner.Update(msg)
		m.refreshViewport()
		return m, cmd
	}

	if m.open {
		m.textarea, cmd = m.textarea.Update(msg)
		cmds = append(cmds, cmd)

		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// handleSend 处理回车：命令在本地执行，等待回复时忽略普通输入，其余交给会话
func (m Model) handleSend() (tea.Model, tea.Cmd) {
	input := m.textarea.Value()
	if cmd := m.commandParser.Parse(input); cmd != nil {
		m.textarea.Reset()
		return m.handleCommand(cmd)
	}

	if m.conv.Pending() {
		return m, nil
	}

	turn, ok := m.conv.Begin(input)
	if !ok {
		return m, nil
	}
	m.textarea.Reset()
	m.notice = ""
	m.refreshViewport()

	return m, tea.Batch(m.runTurn(turn), m.spinner.Tick)
}

// runTurn 在后台执行请求，不接触会话状态
func (m Model) runTurn(turn *chat.Turn) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		res, err := turn.Run(ctx)
		return turnDoneMsg{turn: turn, result: res, err: err}
	}
}

// handleCommand 处理命令
func (m Model) handleCommand(cmd *Command) (tea.Model, tea.Cmd) {
	m.logger.Debug("command", "command", FormatCommandType(cmd.Type), "session_id", m.conv.ID())
	switch cmd.Type {
	case CommandTypeHelp:
		m.notice = CommandHelp()
		return m, nil

	case CommandTypeNew:
		old := m.conv.ID()
		m.conv = m.newConv()
		m.notice = "已开始新的会话"
		m.logger.Info("conversation reset", "old_session_id", old, "session_id", m.conv.ID())
		m.refreshViewport()
		return m, nil

	case CommandTypeExport:
		if cmd.Arg == "" {
			m.notice = "用法: /export <file.md|file.html>"
			return m, nil
		}
		state := m.conv.Snapshot()
		path, now := cmd.Arg, m.now()
		return m, func() tea.Msg {
			abs, err := ExportTranscript(state, path, now)
			return exportDoneMsg{path: abs, err: err}
		}
	}

	return m, nil
}

func (m Model) View() string {
	if !m.ready {
		return "初始化中..."
	}

	header := m.styles.title.Render("CRM assistant")
	if Version != "" {
		header += m.styles.muted.Render(" " + Version)
	}

	if !m.open {
		status := "助手已关闭，按 ctrl+o 打开"
		if m.conv.Pending() {
			status = "助手正在回复，按 ctrl+o 查看"
		}
		return fmt.Sprintf("%s\n\n%s\n\n%s",
			m.styles.title.Render("CRM dashboard"),
			m.renderDashboard(m.width),
			m.styles.muted.Render(status),
		)
	}

	return fmt.Sprintf(
		"%s\n%s\n%s\n%s\n%s",
		header,
		m.viewport.View(),
		m.statusView(),
		m.textarea.View(),
		m.helpView(),
	)
}

func (m Model) statusView() string {
	if m.notice != "" {
		return m.styles.notice.Render(m.notice)
	}
	return ""
}

func (m Model) helpView() string {
	var parts []string
	for _, b := range m.keys.ShortHelp() {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return m.styles.muted.Render(strings.Join(parts, " · "))
}

func (m *Model) refreshViewport() {
	m.viewport.SetContent(m.formatMessages())
	m.viewport.GotoBottom()
}

func (m Model) formatMessages() string {
	state := m.conv.Snapshot()
	width := m.viewport.Width
	if width <= 0 {
		width = m.width
	}

	if len(state.Transcript) == 0 && !state.Pending {
		return m.styles.muted.Render("Please enter your question or request below.\n" +
			"Try: \"Please provide a short summary of the dashboard with recommendations\"")
	}

	trace := chat.PresentTrace(state)

	var sb strings.Builder
	sb.Grow(len(state.Transcript) * 200)
	for i, msg := range state.Transcript {
		if trace.Attached && trace.MessageIndex == i {
			sb.WriteString(m.renderTrace(trace, width))
			sb.WriteString("\n")
		}
		switch msg.Role {
		case chat.RoleUser:
			sb.WriteString(m.styles.user.Render("You: "))
			sb.WriteString(wrap(msg.Content, width-5))
		default:
			sb.WriteString(m.styles.assistant.Render("Assistant:"))
			sb.WriteString("\n")
			if strings.HasPrefix(msg.Content, chat.ErrorPrefix) {
				sb.WriteString(m.styles.errorText.Render(wrap(msg.Content, width)))
			} else {
				sb.WriteString(m.markdown.Render(msg.Content, width))
			}
		}
		sb.WriteString("\n\n")
	}

	if state.Pending {
		sb.WriteString(m.spinner.View())
		sb.WriteString(m.styles.muted.Render(" Thinking..."))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// renderTrace 推理块：标题始终显示，步骤只在展开时显示
func (m Model) renderTrace(trace chat.TraceView, width int) string {
	arrow := "▸"
	if trace.Expanded {
		arrow = "▾"
	}
	var sb strings.Builder
	sb.WriteString(m.styles.traceHeader.Render(fmt.Sprintf("%s Reasoning (%s)", arrow, trace.Summary())))
	sb.WriteString(m.styles.muted.Render("  ctrl+t"))

	if !trace.Expanded {
		return sb.String()
	}

	inner := width - 4
	for i, step := range trace.Steps {
		sb.WriteString("\n")
		sb.WriteString(m.styles.traceLabel.Render(fmt.Sprintf("  %d.", i+1)))
		if step.IsEmpty() {
			sb.WriteString(m.styles.muted.Render(" (empty step)"))
			continue
		}
		for _, field := range []struct{ label, value string }{
			{"Thought", step.Thought},
			{"Action", step.Action},
			{"Input", step.ActionInput},
			{"Observation", step.Observation},
		} {
			if field.value == "" {
				continue
			}
			line := wrap(field.label+": "+field.value, inner)
			sb.WriteString("\n")
			sb.WriteString(m.styles.traceBody.Render(indentLines(line, "    ")))
		}
	}
	return sb.String()
}

// newViewport 创建视口，只保留翻页键，避免和输入框抢字母键
func newViewport(width, height int) viewport.Model {
	vp := viewport.New(width, height)
	vp.KeyMap = viewport.KeyMap{
		PageUp:   key.NewBinding(key.WithKeys("pgup")),
		PageDown: key.NewBinding(key.WithKeys("pgdown")),
	}
	return vp
}
