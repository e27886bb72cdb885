package global

import (
	"golang.org/x/term"
)

var (
	// IsTerminal 标记是否在交互式终端中运行
	// false 表示输出可能被管道或重定向,应该关闭进度条等装饰
	IsTerminal bool = term.IsTerminal(0)
)
