package tui

import (
	"github.com/Zacy-Sokach/crmassist/internal/chat"
)

// turnDoneMsg 后端请求结束，由 Update 调用 Complete 合并结果
type turnDoneMsg struct {
	turn   *chat.Turn
	result chat.Result
	err    error
}

// exportDoneMsg /export 写文件的结果
type exportDoneMsg struct {
	path string
	err  error
}
