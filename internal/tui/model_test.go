package tui

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Zacy-Sokach/crmassist/internal/chat"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var sqlTrace = []chat.ReasoningStep{{
	Thought:     "check CRM",
	Action:      "query",
	ActionInput: "SELECT ...",
	Observation: "3 rows",
}}

// replyTransport 按服务端的方式回显历史并附加回复
func replyTransport(reply string, trace []chat.ReasoningStep) chat.Transport {
	return chat.TransportFunc(func(ctx context.Context, message string, history []chat.Message) (chat.Result, error) {
		h := append(append([]chat.Message(nil), history...),
			chat.Message{Role: chat.RoleUser, Content: message},
			chat.Message{Role: chat.RoleAssistant, Content: reply})
		return chat.Result{Reply: reply, History: h, Trace: trace}, nil
	})
}

func newTestModel(t *testing.T, transport chat.Transport) Model {
	t.Helper()
	m := NewModel(Options{
		NewConversation: func() *chat.Conversation {
			return chat.New(transport, chat.WithLogger(quietLogger()))
		},
		Logger: quietLogger(),
	})
	return update(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

// collect 执行命令并展开 Batch，返回所有消息
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func find[T any](msgs []tea.Msg) (T, bool) {
	for _, msg := range msgs {
		if v, ok := msg.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func enter() tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyEnter} }

// send 输入文本并回车，返回 Update 后的模型和后台命令
func send(t *testing.T, m Model, text string) (Model, tea.Cmd) {
	t.Helper()
	m.textarea.SetValue(text)
	next, cmd := m.Update(enter())
	return next.(Model), cmd
}

// finish 执行后台请求并把结果交回 Update
func finish(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	done, ok := find[turnDoneMsg](collect(cmd))
	if !ok {
		t.Fatal("expected a turnDoneMsg from the send command")
	}
	return update(t, m, done)
}

func TestEnterSubmitsAndClearsInput(t *testing.T) {
	m := newTestModel(t, replyTransport("Pipeline looks healthy", nil))

	m, cmd := send(t, m, "how is the pipeline?")
	if m.textarea.Value() != "" {
		t.Errorf("input should be cleared, got %q", m.textarea.Value())
	}
	if !m.Conversation().Pending() {
		t.Fatal("conversation should be pending after Enter")
	}
	if !strings.Contains(m.View(), "Thinking...") {
		t.Error("pending indicator missing from view")
	}

	m = finish(t, m, cmd)
	state := m.Conversation().Snapshot()
	if state.Pending || len(state.Transcript) != 2 {
		t.Fatalf("unexpected state: %+v", state)
	}
	if !strings.Contains(m.View(), "Pipeline looks healthy") {
		t.Error("reply missing from view")
	}
}

func TestEnterIgnoredWhilePending(t *testing.T) {
	m := newTestModel(t, replyTransport("ok", nil))

	m, first := send(t, m, "first")
	m, second := send(t, m, "second")
	if second != nil {
		t.Error("Enter while pending must not start another request")
	}
	if m.textarea.Value() != "second" {
		t.Errorf("input should be kept while pending, got %q", m.textarea.Value())
	}
	if got := m.Conversation().Len(); got != 1 {
		t.Errorf("transcript length = %d, want 1", got)
	}

	m = finish(t, m, first)
	if got := m.Conversation().Len(); got != 2 {
		t.Errorf("transcript length = %d, want 2", got)
	}
}

func TestBlankInputIsIgnored(t *testing.T) {
	m := newTestModel(t, replyTransport("ok", nil))

	m, cmd := send(t, m, "   ")
	if cmd != nil || m.Conversation().Len() != 0 || m.Conversation().Pending() {
		t.Error("blank input must not start a turn")
	}
}

func TestTraceToggle(t *testing.T) {
	m := newTestModel(t, replyTransport("3 deals found", sqlTrace))

	m, cmd := send(t, m, "deals?")
	m = finish(t, m, cmd)

	view := m.View()
	if !strings.Contains(view, "Reasoning (1 reasoning step)") || !strings.Contains(view, "Thought: check CRM") {
		t.Fatalf("expanded trace missing:\n%s", view)
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlT})
	view = m.View()
	if !strings.Contains(view, "Reasoning (1 reasoning step)") {
		t.Error("trace header must stay visible when collapsed")
	}
	if strings.Contains(view, "Thought: check CRM") {
		t.Error("steps must be hidden when collapsed")
	}
}

func TestErrorTurnShownInTranscript(t *testing.T) {
	failing := chat.TransportFunc(func(ctx context.Context, message string, history []chat.Message) (chat.Result, error) {
		return chat.Result{}, errors.New("request timed out")
	})
	m := newTestModel(t, failing)

	m, cmd := send(t, m, "hi")
	m = finish(t, m, cmd)

	if !strings.Contains(m.View(), "Error: request timed out") {
		t.Errorf("error entry missing from view:\n%s", m.View())
	}
}

func TestPanelCloseKeepsState(t *testing.T) {
	m := newTestModel(t, replyTransport("remember me", nil))
	m, cmd := send(t, m, "hello")

	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlO})
	if !strings.Contains(m.View(), "CRM dashboard") {
		t.Fatal("closed panel should show the dashboard")
	}

	// 面板关闭期间请求照常完成
	m = finish(t, m, cmd)

	// 关闭时输入不进入输入框
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	if m.textarea.Value() != "" {
		t.Errorf("typing while closed should be ignored, got %q", m.textarea.Value())
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlO})
	if !strings.Contains(m.View(), "remember me") {
		t.Error("transcript should survive closing and reopening the panel")
	}
}

func TestNewCommandResetsAndDropsStaleTurn(t *testing.T) {
	m := newTestModel(t, replyTransport("late reply", nil))
	old := m.Conversation()

	m, cmd := send(t, m, "question")
	m, _ = send(t, m, "/new")
	if m.Conversation() == old {
		t.Fatal("/new should create a fresh conversation even while a turn is pending")
	}
	if m.Conversation().Len() != 0 || m.Conversation().Pending() {
		t.Error("fresh conversation should be empty and idle")
	}

	// 旧回合返回后不能混进新会话
	m = finish(t, m, cmd)
	if m.Conversation().Len() != 0 {
		t.Errorf("stale reply leaked into the new conversation, len = %d", m.Conversation().Len())
	}
	if !old.Pending() {
		t.Error("the old conversation is detached and keeps its own state")
	}
}

func TestExportCommand(t *testing.T) {
	m := newTestModel(t, replyTransport("**bold** answer", sqlTrace))
	m.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }

	m, cmd := send(t, m, "q")
	m = finish(t, m, cmd)

	path := filepath.Join(t.TempDir(), "out.html")
	m, cmd = send(t, m, "/export "+path)
	done, ok := find[exportDoneMsg](collect(cmd))
	if !ok {
		t.Fatal("expected exportDoneMsg")
	}
	m = update(t, m, done)
	if done.err != nil {
		t.Fatalf("export failed: %v", done.err)
	}
	if !strings.Contains(m.View(), "已导出到") {
		t.Error("export notice missing")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "<strong>bold</strong>") {
		t.Errorf("html export not rendered:\n%s", data)
	}
}

func TestHelpCommand(t *testing.T) {
	m := newTestModel(t, replyTransport("ok", nil))

	m, _ = send(t, m, "/help")
	if !strings.Contains(m.View(), "/export <file>") {
		t.Error("help text missing")
	}
	if m.Conversation().Len() != 0 {
		t.Error("commands must not reach the conversation")
	}
}

func TestSlashPrefixedQuestionIsSent(t *testing.T) {
	var got string
	transport := chat.TransportFunc(func(ctx context.Context, message string, history []chat.Message) (chat.Result, error) {
		got = message
		return replyTransport("Check the backend logs", nil).Send(ctx, message, history)
	})
	m := newTestModel(t, transport)

	question := "/api/chat returns 500 for me, why?"
	m, cmd := send(t, m, question)
	if !m.Conversation().Pending() {
		t.Fatal("slash-prefixed text should start a turn")
	}
	if m.textarea.Value() != "" {
		t.Errorf("input should be cleared, got %q", m.textarea.Value())
	}

	m = finish(t, m, cmd)
	if got != question {
		t.Errorf("transport got %q, want %q", got, question)
	}
	state := m.Conversation().Snapshot()
	if len(state.Transcript) != 2 || state.Transcript[0].Content != question {
		t.Fatalf("unexpected transcript: %+v", state.Transcript)
	}
}

func TestQuit(t *testing.T) {
	m := newTestModel(t, replyTransport("ok", nil))
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("ctrl+c should quit")
	}
}
