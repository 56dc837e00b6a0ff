// Package ui 终端聊天界面：左侧消息流，右侧在线伙伴，底部输入框。
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/emojimon/world-relay/internal/client"
	"github.com/emojimon/world-relay/internal/protocol"
	"github.com/emojimon/world-relay/internal/sound"
)

const sidebarWidth = 24

// sessionUpdateMsg 会话镜像有变化
type sessionUpdateMsg struct{}

// connectFailedMsg 首次连接失败
type connectFailedMsg struct{ err error }

// ChatModel 聊天界面 model
type ChatModel struct {
	session     *client.Session
	participant protocol.Participant
	notifier    *sound.Notifier

	viewport viewport.Model
	input    textinput.Model

	width  int
	height int
	ready  bool

	lastMsgCount int
	errText      string
}

// NewChatModel 创建聊天界面
func NewChatModel(session *client.Session, participant protocol.Participant) *ChatModel {
	ti := textinput.New()
	ti.Placeholder = "พิมพ์ข้อความ..."
	ti.CharLimit = 200
	ti.Focus()

	notifier := sound.NewNotifier()
	_ = notifier.Init() // 音频设备不可用时静默

	return &ChatModel{
		session:     session,
		participant: participant,
		notifier:    notifier,
		input:       ti,
	}
}

// Init 建立连接并开始监听状态变化
func (m *ChatModel) Init() tea.Cmd {
	return tea.Batch(m.connect(), m.waitForUpdate())
}

// connect 连接并加入世界
func (m *ChatModel) connect() tea.Cmd {
	return func() tea.Msg {
		if err := m.session.Connect(); err != nil {
			return connectFailedMsg{err: err}
		}
		if err := m.session.JoinWorld(m.participant); err != nil {
			return connectFailedMsg{err: err}
		}
		return sessionUpdateMsg{}
	}
}

// waitForUpdate 阻塞等待会话镜像的下一次变化
func (m *ChatModel) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		<-m.session.Updates()
		return sessionUpdateMsg{}
	}
}

// Update 处理事件
func (m *ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.session.Close()
			m.notifier.Close()
			return m, tea.Quit

		case tea.KeyEnter:
			text := strings.TrimSpace(m.input.Value())
			if text != "" {
				if err := m.session.SendMessage(text); err != nil {
					m.errText = err.Error()
				}
				m.input.Reset()
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case connectFailedMsg:
		m.errText = fmt.Sprintf("เชื่อมต่อไม่สำเร็จ: %v", msg.err)
		return m, nil

	case sessionUpdateMsg:
		m.refresh()
		return m, m.waitForUpdate()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// resize 根据窗口尺寸调整组件
func (m *ChatModel) resize() {
	chatWidth := m.width - sidebarWidth - 10
	if chatWidth < 20 {
		chatWidth = 20
	}
	chatHeight := m.height - 8
	if chatHeight < 5 {
		chatHeight = 5
	}

	if !m.ready {
		m.viewport = viewport.New(chatWidth, chatHeight)
		m.ready = true
	} else {
		m.viewport.Width = chatWidth
		m.viewport.Height = chatHeight
	}
	m.input.Width = chatWidth
	m.refresh()
}

// refresh 从会话镜像重建消息视图
func (m *ChatModel) refresh() {
	if !m.ready {
		return
	}

	messages := m.session.Messages()

	var b strings.Builder
	for _, msg := range messages {
		line := fmt.Sprintf("%s %s: %s", msg.Sender.Emoji, senderStyle.Render(msg.Sender.Name), msg.Text)
		if msg.ID == 1 {
			line = systemStyle.Render(fmt.Sprintf("%s %s: %s", msg.Sender.Emoji, msg.Sender.Name, msg.Text))
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	m.viewport.SetContent(b.String())

	// 有新消息时滚到底并响一声
	if len(messages) > m.lastMsgCount {
		m.viewport.GotoBottom()
		if m.lastMsgCount > 0 {
			m.notifier.Chime()
		}
		m.lastMsgCount = len(messages)
	}
}

// View 渲染界面
func (m *ChatModel) View() string {
	if !m.ready {
		return docStyle.Render("กำลังเชื่อมต่อ...")
	}

	status := statusOffline.Render("● offline")
	if m.session.Connected() {
		status = statusOnline.Render("● online")
	}
	header := lipgloss.JoinHorizontal(lipgloss.Center,
		titleStyle.Render("🌏 EmojiMon World"), "  ", status)

	// 在线伙伴侧栏
	var sidebar strings.Builder
	online := m.session.OnlineUsers()
	sidebar.WriteString(titleStyle.Render(fmt.Sprintf("ออนไลน์ (%d)", len(online))))
	sidebar.WriteString("\n\n")
	for _, p := range online {
		sidebar.WriteString(fmt.Sprintf("%s %s\n", p.Emoji, p.Name))
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		chatStyle.Render(m.viewport.View()),
		sidebarStyle.Width(sidebarWidth).Render(sidebar.String()),
	)

	footer := m.input.View()
	if m.errText != "" {
		footer += "\n" + errorStyle.Render(m.errText)
	}
	footer += "\n" + helpStyle.Render("enter ส่ง · esc ออก")

	return docStyle.Render(lipgloss.JoinVertical(lipgloss.Left, header, body, footer))
}
