package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"chatwidget/internal/widget"
)

// View is a pure function of the current state. The textarea and viewport
// carry in-flight input text and scroll position through re-renders.
func (m *Model) View() string {
	if !m.open {
		return m.renderClosed()
	}

	header := m.renderHeader()
	tabs := m.renderTabBar()

	var body string
	if m.inActiveChat {
		body = m.renderActiveChat()
	} else {
		switch m.tab {
		case TabHome:
			body = m.renderHome()
		case TabChats:
			body = m.renderChatsList()
		case TabFAQ:
			body = m.renderFAQ()
		}
	}

	parts := []string{header, tabs, body}
	if m.alert != "" {
		parts = append(parts, m.theme.Alert.Render(m.alert))
	}
	parts = append(parts, m.renderFooter())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m *Model) renderClosed() string {
	launcher := m.theme.Launcher.Render("💬 " + m.cfg.Title)
	lines := []string{launcher, m.theme.Footer.Render("enter open  q quit")}
	if m.bubbleVisible {
		bubble := m.theme.BubbleBox.Render(m.cfg.Welcome.Text + "\n" + m.theme.Meta.Render("enter open  w dismiss"))
		lines = append([]string{bubble}, lines...)
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m *Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render(m.cfg.Title)
	desc := m.theme.HeaderDesc.Render(m.cfg.Description)
	return title + "\n" + desc
}

func (m *Model) renderTabBar() string {
	var parts []string
	for _, t := range m.enabledTabs() {
		label := t.String()
		if t == m.tab {
			parts = append(parts, m.theme.TabActive.Render(label))
		} else {
			parts = append(parts, m.theme.TabInactive.Render(label))
		}
	}
	return strings.Join(parts, m.theme.Meta.Render("  ·  "))
}

func (m *Model) renderHome() string {
	var b strings.Builder
	items := make([]string, 0, len(m.cfg.Home.Buttons)+1)
	for _, hb := range m.cfg.Home.Buttons {
		items = append(items, hb.Label)
	}
	items = append(items, "Start a new chat")

	for i, label := range items {
		prefix := "  "
		style := m.theme.ListItem
		if i == m.homeSel {
			prefix = "> "
			style = m.theme.ListSel
		}
		b.WriteString(style.Render(prefix + label))
		b.WriteString("\n")
	}
	return m.theme.Pane.Width(max(24, m.width-2)).Render(strings.TrimRight(b.String(), "\n"))
}

func (m *Model) renderChatsList() string {
	history := m.store.History()

	var b strings.Builder
	prefix, style := listMarker(m.histSel == 0, m.theme)
	b.WriteString(style.Render(prefix + "Start a new chat"))
	b.WriteString("\n")

	if len(history) == 0 {
		b.WriteString(m.theme.Meta.Render("  No previous conversations."))
	}
	for i, c := range history {
		prefix, style := listMarker(m.histSel == i+1, m.theme)
		line := fmt.Sprintf("%s%s", prefix, c.Preview)
		meta := fmt.Sprintf("  %d messages · %s", c.MessageCount, c.UpdatedAt.Format("Jan 2 15:04"))
		b.WriteString(style.Render(line))
		b.WriteString("\n")
		b.WriteString(m.theme.Meta.Render(meta))
		if i != len(history)-1 {
			b.WriteString("\n")
		}
	}
	return m.theme.Pane.Width(max(24, m.width-2)).Render(strings.TrimRight(b.String(), "\n"))
}

func (m *Model) renderFAQ() string {
	var b strings.Builder
	for i, item := range m.cfg.FAQ.Items {
		prefix, style := listMarker(m.faqSel == i, m.theme)
		b.WriteString(style.Render(prefix + item.Question))
		b.WriteString("\n")
		if m.faqOpen[i] {
			answer := lipgloss.NewStyle().Foreground(m.theme.TextPrimary).Width(max(20, m.width-8)).Render(item.Answer)
			b.WriteString(indent(answer, "  "))
			b.WriteString("\n")
		}
	}
	if len(m.cfg.FAQ.Items) == 0 {
		b.WriteString(m.theme.Meta.Render("Nothing here yet."))
	}
	return m.theme.Pane.Width(max(24, m.width-2)).Render(strings.TrimRight(b.String(), "\n"))
}

func (m *Model) renderActiveChat() string {
	var chat string
	if m.ready {
		chat = m.chatVP.View()
	} else {
		chat = m.transcript(max(20, m.width-6))
	}

	typing := ""
	if m.conv != nil && m.conv.IsTyping {
		typing = m.theme.Typing.Render(spinnerFrames[m.spinnerPos] + " typing…")
	}

	input := m.theme.InputBox.Width(max(12, m.width-4)).Render(m.input.View())
	parts := []string{chat}
	if typing != "" {
		parts = append(parts, typing)
	}
	parts = append(parts, input)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m *Model) renderFooter() string {
	if m.inActiveChat {
		return m.theme.Footer.Render("enter send  1-9 pick option  /attach <path>  esc back  tab switch")
	}
	return m.theme.Footer.Render("enter select  tab switch  esc close")
}

func (m *Model) updateChatViewport() {
	if !m.ready {
		return
	}
	m.chatVP.SetContent(m.transcript(max(20, m.chatVP.Width-2)))
}

func (m *Model) transcript(width int) string {
	if m.conv == nil {
		return ""
	}
	var b strings.Builder
	for _, msg := range m.conv.Messages {
		b.WriteString(m.renderMessage(msg, width))
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *Model) renderMessage(msg widget.Message, width int) string {
	var head string
	switch msg.Speaker {
	case widget.SpeakerUser:
		head = m.theme.RoleYou.Render("YOU")
	default:
		head = m.theme.RoleBot.Render("BOT")
	}
	header := head + " " + m.theme.Meta.Render(msg.Timestamp.Format("15:04"))

	body := m.renderBody(msg.Text, width)
	if len(msg.Buttons) > 0 {
		body += "\n" + m.renderButtons(msg)
	}
	return header + "\n" + body
}

func (m *Model) renderBody(text string, width int) string {
	parsed := widget.ParseBody(text)
	switch parsed.Kind {
	case widget.BodyImage:
		return m.theme.MsgBody.Render("🖼  "+parsed.Name) + "\n" + m.theme.Meta.Render(parsed.URL)
	case widget.BodyFile:
		return m.theme.MsgBody.Render("📎 "+parsed.Name) + "\n" + m.theme.Meta.Render(parsed.URL)
	default:
		return m.theme.MsgBody.Width(width).Render(parsed.Text)
	}
}

func (m *Model) renderButtons(msg widget.Message) string {
	disabled := m.conv.ButtonsDisabled(msg.ID)
	selected, hasSel := m.conv.SelectedButton(msg.ID)

	rendered := make([]string, 0, len(msg.Buttons))
	for i, b := range msg.Buttons {
		label := fmt.Sprintf("%d %s", i+1, b.Label)
		switch {
		case hasSel && i == selected:
			rendered = append(rendered, m.theme.ButtonSelected.Render(label))
		case disabled:
			rendered = append(rendered, m.theme.ButtonDisabled.Render(label))
		default:
			rendered = append(rendered, m.theme.ButtonOpen.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func listMarker(selected bool, t Theme) (string, lipgloss.Style) {
	if selected {
		return "> ", t.ListSel
	}
	return "  ", t.ListItem
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = prefix + lines[i]
	}
	return strings.Join(lines, "\n")
}
