package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"chatwidget/internal/widget"
)

type Tab int

const (
	TabHome Tab = iota
	TabChats
	TabFAQ
)

func (t Tab) String() string {
	switch t {
	case TabHome:
		return "Home"
	case TabChats:
		return "Chats"
	case TabFAQ:
		return "FAQ"
	}
	return "?"
}

// Interactor is the protocol surface the widget drives; satisfied by
// *widget.ProtocolClient.
type Interactor interface {
	Interact(ctx context.Context, action widget.Action, message, conversationID, remoteSessionID string) (*widget.InteractResponse, error)
}

// Uploader is satisfied by *widget.FileUploadClient.
type Uploader interface {
	Upload(ctx context.Context, path string) (*widget.UploadResult, error)
}

type welcomeShowMsg struct{}
type welcomeHideMsg struct{}
type spinMsg struct{}
type revealMsg struct{}
type clearAlertMsg struct{}

type interactDoneMsg struct {
	resp *widget.InteractResponse
	err  error
}

type uploadDoneMsg struct {
	res *widget.UploadResult
	err error
}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Model is the widget's UI state machine. States derive from
// (open, tab, inActiveChat): closed launcher, Home, Chats-list, Chats-active
// and FAQ. The machine is cyclic; closing the widget keeps everything in
// memory so reopening resumes exactly where it left off.
type Model struct {
	cfg      widget.Config
	store    *widget.SessionStore
	client   Interactor
	uploader Uploader
	theme    Theme
	log      zerolog.Logger

	width  int
	height int
	ready  bool

	open         bool
	tab          Tab
	inActiveChat bool
	resumed      bool

	conv   *widget.ConversationState
	input  textarea.Model
	chatVP viewport.Model

	homeSel int
	histSel int
	faqSel  int
	faqOpen map[int]bool

	pending []widget.BotResponse
	sending bool

	bubbleVisible   bool
	bubbleDismissed bool

	alert      string
	spinnerPos int
}

func New(cfg widget.Config, store *widget.SessionStore, client Interactor, uploader Uploader, log zerolog.Logger) *Model {
	ta := textarea.New()
	ta.Placeholder = "Write a message…"
	ta.CharLimit = 4000
	ta.SetHeight(1)
	ta.Prompt = " "
	ta.ShowLineNumbers = false
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.BlurredStyle.CursorLine = lipgloss.NewStyle()

	m := &Model{
		cfg:      cfg,
		store:    store,
		client:   client,
		uploader: uploader,
		theme:    NewTheme(cfg.Appearance),
		log:      log,
		width:    80,
		height:   24,
		tab:      TabHome,
		input:    ta,
		faqOpen:  make(map[int]bool),
	}
	if !cfg.HomeEnabled() {
		m.tab = TabChats
	}

	sess := store.Init()
	if sess.CurrentConversationID != "" {
		if c, ok := store.LoadConversation(sess.CurrentConversationID); ok && c.HasUserInteraction {
			m.conv = widget.ResumeConversationState(c)
			m.resumed = true
		}
	}
	return m
}

func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textarea.Blink}
	if m.cfg.Welcome.Enabled {
		delay := time.Duration(m.cfg.Welcome.DelayMs) * time.Millisecond
		cmds = append(cmds, tea.Tick(delay, func(time.Time) tea.Msg { return welcomeShowMsg{} }))
	}
	return tea.Batch(cmds...)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		vpH := max(3, m.height-9)
		if !m.ready {
			m.chatVP = viewport.New(max(20, m.width-4), vpH)
			m.ready = true
		} else {
			m.chatVP.Width = max(20, m.width-4)
			m.chatVP.Height = vpH
		}
		m.input.SetWidth(max(10, m.width-8))
		m.updateChatViewport()
		return m, nil

	case welcomeShowMsg:
		if !m.open && !m.bubbleDismissed {
			m.bubbleVisible = true
			if s := m.cfg.Welcome.AutoDismissSeconds; s > 0 {
				return m, tea.Tick(time.Duration(s)*time.Second, func(time.Time) tea.Msg { return welcomeHideMsg{} })
			}
		}
		return m, nil

	case welcomeHideMsg:
		if m.bubbleVisible {
			m.dismissBubble()
		}
		return m, nil

	case spinMsg:
		m.spinnerPos = (m.spinnerPos + 1) % len(spinnerFrames)
		if m.busy() {
			return m, m.spinTick()
		}
		return m, nil

	case interactDoneMsg:
		return m.onInteractDone(msg)

	case revealMsg:
		return m.onReveal()

	case uploadDoneMsg:
		return m.onUploadDone(msg)

	case clearAlertMsg:
		m.alert = ""
		return m, nil

	case tea.KeyMsg:
		return m.onKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) onKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if !m.open {
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "enter", "o":
			m.openWidget()
			return m, nil
		case "w":
			if m.bubbleVisible {
				m.dismissBubble()
			}
			return m, nil
		}
		return m, nil
	}

	switch msg.String() {
	case "esc":
		if m.inActiveChat {
			// Back control: Chats-active returns to the chats list.
			m.inActiveChat = false
			m.input.Blur()
			return m, nil
		}
		// Closing hides the widget but keeps all state in memory.
		m.open = false
		return m, nil
	case "tab":
		m.nextTab()
		return m, nil
	}

	if m.inActiveChat {
		return m.onChatKey(msg)
	}

	switch m.tab {
	case TabHome:
		return m.onHomeKey(msg)
	case TabChats:
		return m.onChatsListKey(msg)
	case TabFAQ:
		return m.onFAQKey(msg)
	}
	return m, nil
}

func (m *Model) onChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := msg.String()
	switch {
	case s == "enter":
		return m, m.onSend()
	case s == "pgup":
		m.chatVP.ViewUp()
		return m, nil
	case s == "pgdown":
		m.chatVP.ViewDown()
		return m, nil
	case len(s) == 1 && s[0] >= '1' && s[0] <= '9' && m.input.Value() == "":
		return m, m.onButtonPress(int(s[0] - '1'))
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) onHomeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	items := len(m.cfg.Home.Buttons) + 1 // configured buttons plus "Start a new chat"
	switch msg.String() {
	case "up", "k":
		m.homeSel = clampSel(m.homeSel-1, items)
	case "down", "j":
		m.homeSel = clampSel(m.homeSel+1, items)
	case "enter":
		if m.homeSel < len(m.cfg.Home.Buttons) {
			return m, m.startChat(m.cfg.Home.Buttons[m.homeSel].Message)
		}
		return m, m.startChat("")
	}
	return m, nil
}

func (m *Model) onChatsListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	history := m.store.History()
	items := len(history) + 1 // "Start a new chat" heads the list
	switch msg.String() {
	case "up", "k":
		m.histSel = clampSel(m.histSel-1, items)
	case "down", "j":
		m.histSel = clampSel(m.histSel+1, items)
	case "n":
		return m, m.startChat("")
	case "enter":
		if m.histSel == 0 {
			return m, m.startChat("")
		}
		if m.histSel-1 < len(history) {
			m.resumeConversation(history[m.histSel-1])
		}
	}
	return m, nil
}

func (m *Model) onFAQKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	items := len(m.cfg.FAQ.Items)
	switch msg.String() {
	case "up", "k":
		m.faqSel = clampSel(m.faqSel-1, items)
	case "down", "j":
		m.faqSel = clampSel(m.faqSel+1, items)
	case "enter":
		m.faqOpen[m.faqSel] = !m.faqOpen[m.faqSel]
	}
	return m, nil
}

func (m *Model) openWidget() {
	m.open = true
	m.dismissBubble()
	if m.resumed && m.conv != nil {
		// Only the first open after load jumps into the resumed chat; later
		// reopens land wherever the user left the widget.
		m.resumed = false
		m.tab = TabChats
		m.inActiveChat = true
		m.input.Focus()
		m.updateChatViewport()
		m.chatVP.GotoBottom()
	}
}

func (m *Model) dismissBubble() {
	// Once dismissed the bubble never comes back this page view; a stale
	// show timer firing later is a no-op.
	m.bubbleVisible = false
	m.bubbleDismissed = true
}

func (m *Model) nextTab() {
	tabs := m.enabledTabs()
	if len(tabs) == 0 {
		return
	}
	idx := 0
	for i, t := range tabs {
		if t == m.tab {
			idx = i
			break
		}
	}
	m.tab = tabs[(idx+1)%len(tabs)]
	if m.tab != TabChats {
		m.inActiveChat = false
		m.input.Blur()
	}
}

func (m *Model) enabledTabs() []Tab {
	var tabs []Tab
	if m.cfg.HomeEnabled() {
		tabs = append(tabs, TabHome)
	}
	if m.cfg.ChatsEnabled() {
		tabs = append(tabs, TabChats)
	}
	if m.cfg.FAQEnabled() {
		tabs = append(tabs, TabFAQ)
	}
	if len(tabs) == 0 {
		tabs = []Tab{TabChats}
	}
	return tabs
}

// startChat begins a fresh conversation: best-effort remote reset, then
// launch. A non-empty initial message instead rides the text action with no
// conversation id; the response carries the newly assigned one.
func (m *Model) startChat(initial string) tea.Cmd {
	if m.busy() {
		return nil
	}
	m.tab = TabChats
	m.inActiveChat = true
	m.conv = widget.NewConversationState()
	m.conv.RemoteSessionID = widget.NewRemoteSessionID()
	m.resumed = false
	m.store.StartNewConversation()
	m.input.Reset()
	m.input.Focus()

	var cmd tea.Cmd
	if initial == "" {
		m.beginExchange()
		cmd = m.interactCmd(widget.ActionLaunch, "", true)
	} else {
		m.conv.AppendUser(initial)
		m.beginExchange()
		cmd = m.interactCmd(widget.ActionText, initial, true)
	}
	m.updateChatViewport()
	m.chatVP.GotoBottom()
	return tea.Batch(cmd, m.spinTick())
}

func (m *Model) resumeConversation(c widget.Conversation) {
	m.conv = widget.ResumeConversationState(c)
	m.store.SetCurrent(c.ID)
	m.inActiveChat = true
	m.input.Focus()
	m.updateChatViewport()
	m.chatVP.GotoBottom()
}

func (m *Model) onSend() tea.Cmd {
	val := strings.TrimSpace(m.input.Value())
	if val == "" || m.conv == nil {
		return nil
	}
	if path, ok := parseAttachCommand(val); ok {
		return m.onAttach(path)
	}
	// One exchange in flight per conversation: the send control is a no-op
	// while the engine is still answering.
	if m.busy() {
		return nil
	}

	m.input.Reset()
	m.conv.AppendUser(val)
	m.persistConversation()
	m.beginExchange()
	m.updateChatViewport()
	m.chatVP.GotoBottom()
	return tea.Batch(m.interactCmd(widget.ActionText, val, false), m.spinTick())
}

func (m *Model) onButtonPress(idx int) tea.Cmd {
	if m.conv == nil || m.busy() {
		return nil
	}
	actionable, ok := m.conv.LastActionable()
	if !ok || idx >= len(actionable.Buttons) {
		return nil
	}
	if !m.conv.SelectButton(actionable.ID, idx) {
		return nil
	}
	b := actionable.Buttons[idx]
	m.conv.AppendUser(b.Label)
	m.persistConversation()
	m.beginExchange()
	m.updateChatViewport()
	m.chatVP.GotoBottom()
	return tea.Batch(m.interactCmd(widget.ActionButton, b.Value, false), m.spinTick())
}

func (m *Model) onAttach(path string) tea.Cmd {
	if !m.cfg.FileUploadEnabled {
		return m.showAlert("File uploads are disabled for this agent.")
	}
	if !isRegularFile(path) {
		return m.showAlert("No such file: " + path)
	}
	m.input.Reset()
	uploader := m.uploader
	return func() tea.Msg {
		res, err := uploader.Upload(context.Background(), path)
		return uploadDoneMsg{res: res, err: err}
	}
}

func (m *Model) onInteractDone(msg interactDoneMsg) (tea.Model, tea.Cmd) {
	m.sending = false
	if m.conv == nil {
		return m, nil
	}
	if msg.err != nil || msg.resp == nil {
		// The user's message stays in the log; typing clears so the input is
		// immediately usable for a retry. No error bubble in the transcript.
		m.conv.IsTyping = false
		m.log.Error().Err(msg.err).Msg("interact failed")
		m.updateChatViewport()
		return m, nil
	}

	if m.conv.ConversationID == "" && msg.resp.ConversationID != "" {
		m.conv.ConversationID = msg.resp.ConversationID
		m.persistConversation()
	}

	m.pending = append(m.pending[:0], msg.resp.BotResponses...)
	if len(m.pending) == 0 {
		m.conv.IsTyping = false
		m.updateChatViewport()
		return m, nil
	}
	m.conv.IsTyping = true
	return m, m.revealTick()
}

// onReveal surfaces exactly one queued bot response. Order is exactly the
// protocol's response order; the typing indicator stays on between reveals
// and clears after the last.
func (m *Model) onReveal() (tea.Model, tea.Cmd) {
	if m.conv == nil || len(m.pending) == 0 {
		if m.conv != nil {
			m.conv.IsTyping = false
		}
		return m, nil
	}
	r := m.pending[0]
	m.pending = m.pending[1:]
	m.conv.AppendBot(r.Text, r.Buttons)
	m.updateChatViewport()
	m.chatVP.GotoBottom()
	if len(m.pending) > 0 {
		return m, m.revealTick()
	}
	m.conv.IsTyping = false
	m.persistConversation()
	return m, nil
}

func (m *Model) onUploadDone(msg uploadDoneMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.log.Error().Err(msg.err).Msg("upload failed")
		if errors.Is(msg.err, widget.ErrFileTooLarge) {
			return m, m.showAlert("That file is too large to send (10 MB limit).")
		}
		return m, m.showAlert("Upload failed. Please try again.")
	}
	if m.conv == nil || msg.res == nil {
		return m, nil
	}
	text := widget.EncodeAttachment(msg.res.FileName, msg.res.PublicURL)
	m.conv.AppendUser(text)
	m.persistConversation()
	m.beginExchange()
	m.updateChatViewport()
	m.chatVP.GotoBottom()
	return m, tea.Batch(m.interactCmd(widget.ActionText, text, false), m.spinTick())
}

func (m *Model) interactCmd(action widget.Action, message string, resetFirst bool) tea.Cmd {
	client := m.client
	convID := m.conv.ConversationID
	remote := m.conv.RemoteSessionID
	log := m.log
	return func() tea.Msg {
		ctx := context.Background()
		if resetFirst {
			if _, err := client.Interact(ctx, widget.ActionReset, "", "", remote); err != nil {
				log.Warn().Err(err).Msg("reset before launch failed, continuing")
			}
		}
		resp, err := client.Interact(ctx, action, message, convID, remote)
		return interactDoneMsg{resp: resp, err: err}
	}
}

func (m *Model) beginExchange() {
	m.sending = true
	m.conv.IsTyping = true
}

func (m *Model) busy() bool {
	return m.sending || (m.conv != nil && m.conv.IsTyping)
}

func (m *Model) persistConversation() {
	if m.conv == nil || m.conv.ConversationID == "" {
		return
	}
	m.store.SaveConversation(m.conv.ConversationID, m.conv.Snapshot(), m.conv.RemoteSessionID, m.conv.SelectionSnapshot(), m.conv.HasUserMessage())
}

func (m *Model) showAlert(text string) tea.Cmd {
	m.alert = text
	return tea.Tick(4*time.Second, func(time.Time) tea.Msg { return clearAlertMsg{} })
}

func (m *Model) revealTick() tea.Cmd {
	return tea.Tick(m.cfg.TypingDelay(), func(time.Time) tea.Msg { return revealMsg{} })
}

func (m *Model) spinTick() tea.Cmd {
	return tea.Tick(90*time.Millisecond, func(time.Time) tea.Msg { return spinMsg{} })
}

// clampSel keeps a list selection inside [0, n). An empty list clamps to 0.
func clampSel(v, n int) int {
	if n <= 0 || v < 0 {
		return 0
	}
	if v >= n {
		return n - 1
	}
	return v
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
