package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jwebster45206/talk-engine/internal/gamedata"
	"github.com/jwebster45206/talk-engine/pkg/conversation"
	"github.com/jwebster45206/talk-engine/pkg/state"
)

const PlaceHolderText = "Press Enter to answer..."

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config       *ConsoleConfig
	library      ScriptSource
	logger       *slog.Logger
	game         *state.GameState
	chatViewport viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model
	ready        bool
	width        int
	height       int
	err          error
	notice       string

	// NPC selection state
	showNPCModal bool
	masterIdx    int
	npcs         []npcEntry
	selectedNPC  int

	// Quit confirmation state
	showQuitModal bool

	talk       *talkSession
	transcript *transcript
	prompt     string
	ended      bool
	runes      bool
}

type npcEntry struct {
	npc  int
	name string
	err  error
}

type talkEventMsg struct {
	event conversation.Event
}

type talkEndedMsg struct {
	err error
}

var (
	chatPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	modalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey
)

func NewConsoleUI(cfg *ConsoleConfig, library ScriptSource, game *state.GameState, logger *slog.Logger) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 64
	ta.SetWidth(50)
	ta.SetHeight(1)
	ta.ShowLineNumbers = false

	chatVp := viewport.New(50, 20)
	chatVp.MouseWheelEnabled = true

	m := ConsoleUI{
		config:       cfg,
		library:      library,
		logger:       logger,
		game:         game,
		textarea:     ta,
		chatViewport: chatVp,
		metaViewport: viewport.New(20, 20),
		showNPCModal: true,
		runes:        cfg.Runes,
	}
	m.loadNPCs()
	return m
}

func (m *ConsoleUI) master() gamedata.MasterFile {
	return gamedata.MasterFiles[m.masterIdx]
}

func (m *ConsoleUI) loadNPCs() {
	m.npcs = m.npcs[:0]
	m.selectedNPC = 0
	for _, npc := range m.library.NPCs(m.master()) {
		entry := npcEntry{npc: npc}
		if script, err := m.library.Script(m.master(), npc); err != nil {
			entry.err = err
		} else {
			entry.name = script.Name()
		}
		m.npcs = append(m.npcs, entry)
	}
}

func waitForEvent(ts *talkSession) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ts.events
		if !ok {
			return talkEndedMsg{err: <-ts.done}
		}
		return talkEventMsg{event: ev}
	}
}

func writeMetadata(gs *state.GameState, ts *talkSession) string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("AVATAR") + "\n\n")
	content.WriteString(gs.AvatarName() + "\n\n")
	content.WriteString(fmt.Sprintf("Gold:  %d\n", gs.Gold()))
	content.WriteString(fmt.Sprintf("Karma: %d\n\n", gs.Karma()))

	content.WriteString("Party:\n")
	for _, member := range gs.Party() {
		content.WriteString(fmt.Sprintf("• %s\n", member.Spec.Name))
	}
	content.WriteString("\n")

	if ts != nil {
		content.WriteString("Talking to:\n")
		content.WriteString(fmt.Sprintf("%s #%d\n\n", ts.master, ts.npc))
	}

	content.WriteString("Commands:\n")
	content.WriteString("• Ctrl+C: Quit\n")
	content.WriteString("• Enter: Answer\n")
	content.WriteString("• /help: Help\n")
	content.WriteString("• /copy: Copy transcript\n")
	content.WriteString("• /runes: Toggle runes\n")
	content.WriteString("• /leave: Walk away\n")

	return content.String()
}

// writeChatContent renders the transcript for the current viewport width
func (m *ConsoleUI) writeChatContent() {
	chatWidth := m.chatViewport.Width - 6 // Account for left(3) + right(3) padding
	if chatWidth < 10 {
		chatWidth = 10
	}

	var content strings.Builder
	if m.transcript != nil {
		content.WriteString(wordwrap.String(m.transcript.String(), chatWidth))
	}
	if m.notice != "" {
		content.WriteString("\n\n" + noticeStyle.Render(m.notice))
	}
	if m.err != nil {
		content.WriteString("\n\n" + errorStyle.Render("Error: "+m.err.Error()))
	}

	m.chatViewport.SetContent(content.String())
	m.chatViewport.GotoBottom()
	m.metaViewport.SetContent(writeMetadata(m.game, m.talk))
}

func (m *ConsoleUI) resize() {
	chatWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - chatWidth - 6
	m.chatViewport.Width = chatWidth - 2
	m.chatViewport.Height = m.height - 7
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 4
	m.textarea.SetWidth(chatWidth - 4)
}

func (m ConsoleUI) Init() tea.Cmd {
	return textarea.Blink
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}
	if m.showNPCModal {
		return m.updateNPCModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.chatViewport, vpCmd = m.chatViewport.Update(msg)
		return m, vpCmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.ready = true
		m.writeChatContent()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEnter:
			input := strings.TrimSpace(m.textarea.Value())
			m.textarea.Reset()

			if strings.HasPrefix(input, "/") {
				return m.handleCommand(input)
			}
			if m.ended {
				m.openNPCModal()
				return m, nil
			}
			if m.talk == nil || m.prompt == "" {
				return m, nil
			}

			m.transcript.answer(input)
			m.prompt = ""
			m.textarea.Placeholder = PlaceHolderText
			m.talk.submit(input)
			m.writeChatContent()
			return m, nil
		}

	case talkEventMsg:
		if p := m.transcript.apply(msg.event); p != "" {
			m.prompt = p
			m.textarea.Placeholder = p
		}
		m.writeChatContent()
		return m, waitForEvent(m.talk)

	case talkEndedMsg:
		m.ended = true
		m.prompt = ""
		m.talk = nil
		if msg.err != nil && !m.leaving() {
			m.err = msg.err
			m.logger.Error("Conversation stopped", "error", msg.err)
		}
		m.notice = "The conversation is over. Press Enter to talk to someone else."
		m.textarea.Placeholder = PlaceHolderText
		m.writeChatContent()
		return m, nil
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.chatViewport, vpCmd = m.chatViewport.Update(msg)
	return m, tea.Batch(tiCmd, vpCmd)
}

func (m *ConsoleUI) leaving() bool {
	return strings.HasPrefix(m.notice, "You walk away")
}

func (m *ConsoleUI) openNPCModal() {
	m.showNPCModal = true
	m.ended = false
	m.notice = ""
	m.err = nil
	m.loadNPCs()
}

func (m ConsoleUI) handleCommand(input string) (tea.Model, tea.Cmd) {
	cmd := strings.ToLower(strings.TrimSpace(input))

	switch cmd {
	case "/help":
		m.notice = strings.TrimSpace(`
Commands:
• /help - Show this help
• /copy - Copy the transcript to the clipboard
• /runes - Show runic text as runes or as Latin
• /leave - Walk away from the conversation
• Ctrl+C - Quit

How to play:
• Type a keyword such as name, job or bye and press Enter
• Most people only know the first four letters of a word`)

	case "/copy":
		if m.transcript == nil {
			break
		}
		if err := clipboard.WriteAll(m.transcript.String()); err != nil {
			m.err = fmt.Errorf("failed to copy transcript: %w", err)
		} else {
			m.notice = "Transcript copied to the clipboard."
		}

	case "/runes":
		m.runes = !m.runes
		if m.transcript != nil {
			m.transcript.runes = m.runes
		}
		m.notice = fmt.Sprintf("Runes shown as runes: %t", m.runes)

	case "/leave":
		if m.talk != nil {
			m.notice = "You walk away."
			m.talk.stop()
		} else {
			m.openNPCModal()
			return m, nil
		}

	default:
		m.notice = "Unknown command: " + cmd
	}

	m.writeChatContent()
	return m, nil
}

func (m ConsoleUI) updateNPCModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyLeft:
			m.masterIdx = (m.masterIdx + len(gamedata.MasterFiles) - 1) % len(gamedata.MasterFiles)
			m.loadNPCs()
		case tea.KeyRight:
			m.masterIdx = (m.masterIdx + 1) % len(gamedata.MasterFiles)
			m.loadNPCs()
		case tea.KeyUp:
			if m.selectedNPC > 0 {
				m.selectedNPC--
			}
		case tea.KeyDown:
			if m.selectedNPC < len(m.npcs)-1 {
				m.selectedNPC++
			}
		case tea.KeyEnter:
			if len(m.npcs) == 0 {
				return m, nil
			}
			entry := m.npcs[m.selectedNPC]
			if entry.err != nil {
				return m, nil
			}
			ts, err := startTalk(m.library, m.game, m.master(), entry.npc, m.logger)
			if err != nil {
				m.err = err
				return m, nil
			}
			m.talk = ts
			m.transcript = newTranscript(m.library.Phrases(), m.runes)
			m.showNPCModal = false
			m.err = nil
			if m.width > 0 && m.height > 0 {
				m.resize()
			}
			m.ready = true
			m.writeChatContent()
			m.textarea.Focus()
			return m, tea.Batch(textarea.Blink, waitForEvent(ts))
		}
	}

	return m, nil
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m.quit()
		default:
			switch msg.String() {
			case "y", "Y":
				return m.quit()
			case "n", "N":
				m.showQuitModal = false
				if m.showNPCModal {
					return m, nil
				}
				m.textarea.Focus()
				return m, textarea.Blink
			}
		}

	case talkEventMsg, talkEndedMsg:
		// Keep draining the conversation while the modal is up.
		m.showQuitModal = false
		next, cmd := m.Update(msg)
		nm := next.(ConsoleUI)
		nm.showQuitModal = true
		return nm, cmd
	}

	return m, nil
}

func (m ConsoleUI) quit() (tea.Model, tea.Cmd) {
	if m.talk != nil {
		m.talk.stop()
	}
	return m, tea.Quit
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit?"))
	content.WriteString("\n\n")
	content.WriteString("Are you sure you want to leave Britannia?")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderNPCModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("◀ " + m.master().Filename() + " ▶"))
	content.WriteString("\n\n")

	if len(m.npcs) == 0 {
		content.WriteString(promptStyle.Render("Nobody here."))
		content.WriteString("\n")
	}

	// Keep the selection on screen for long lists.
	rows := m.height - 14
	if rows < 5 {
		rows = 5
	}
	start := 0
	if m.selectedNPC >= rows {
		start = m.selectedNPC - rows + 1
	}
	for i := start; i < len(m.npcs) && i < start+rows; i++ {
		entry := m.npcs[i]
		label := fmt.Sprintf("%3d  %s", entry.npc, entry.name)
		if entry.err != nil {
			label = fmt.Sprintf("%3d  (unreadable)", entry.npc)
		}
		if i == m.selectedNPC {
			content.WriteString(modalSelectedItemStyle.Render("▶ " + label))
		} else {
			content.WriteString(modalItemStyle.Render("  " + label))
		}
		content.WriteString("\n")
	}

	if m.err != nil {
		content.WriteString("\n" + errorStyle.Render(m.err.Error()) + "\n")
	}
	content.WriteString("\n")
	content.WriteString(promptStyle.Render("←/→ town type, ↑/↓ choose, Enter to talk, Ctrl+C to exit"))

	modal := modalStyle.Width(60).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}
	if m.showNPCModal {
		return m.renderNPCModal()
	}
	if !m.ready {
		return "\n  Initializing..."
	}

	chatWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - chatWidth - 6

	promptLine := ""
	if m.prompt != "" {
		promptLine = titleStyle.Render(m.prompt)
	}

	chatPanel := chatPanelStyle.Width(chatWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.chatViewport.View(),
			"",
			separatorStyle.Render(strings.Repeat("─", max(chatWidth-4, 1))),
			promptLine,
			m.textarea.View(),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, chatPanel, metaPanel)
}
