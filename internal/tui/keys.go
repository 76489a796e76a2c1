package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap 面板的按键绑定
type KeyMap struct {
	Send        key.Binding
	ToggleTrace key.Binding
	TogglePanel key.Binding
	PageUp      key.Binding
	PageDown    key.Binding
	Quit        key.Binding
}

// DefaultKeyMap 返回默认按键
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Send: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "发送"),
		),
		ToggleTrace: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("ctrl+t", "展开/收起推理"),
		),
		TogglePanel: key.NewBinding(
			key.WithKeys("ctrl+o"),
			key.WithHelp("ctrl+o", "打开/关闭助手"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "上翻"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdn", "下翻"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "退出"),
		),
	}
}

// ShortHelp 底部帮助栏显示的按键
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Send, k.ToggleTrace, k.TogglePanel, k.Quit}
}
