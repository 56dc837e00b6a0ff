package main

import (
	"flag"
	"fmt"
	"log"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/emojimon/world-relay/internal/client"
	"github.com/emojimon/world-relay/internal/logger"
	"github.com/emojimon/world-relay/internal/protocol"
	"github.com/emojimon/world-relay/internal/ui"
)

func main() {
	serverAddr := flag.String("server", "localhost:3131", "中继地址")
	name := flag.String("name", "", "伙伴名字")
	emoji := flag.String("emoji", "🐱", "伙伴表情")
	flag.Parse()

	participant := protocol.Participant{Name: *name, Emoji: *emoji}
	if !participant.Valid() {
		log.Fatal("请用 -name 指定名字，-emoji 指定表情")
	}

	// TUI 占用终端，日志写到文件
	if err := logger.Init(); err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer logger.Close()

	serverURL := fmt.Sprintf("ws://%s/ws", *serverAddr)
	session := client.NewSession(serverURL)

	model := ui.NewChatModel(session, participant)

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		logger.LogError("客户端退出异常: %v", err)
		fmt.Printf("启动客户端时出错: %v\n", err)
	}
}
