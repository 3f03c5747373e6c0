package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jwebster45206/combat-engine/pkg/combat"
	"github.com/muesli/reflow/wordwrap"
)

const PlaceHolderText = "attack, grapple, lock left_arm, use <move>, /help..."

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config       *ConsoleConfig
	arena        *Arena
	logViewport  viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model
	ready        bool
	width        int
	height       int

	lines  []string // fight log, unstyled
	styled []string
	paused bool

	showQuitModal bool
}

type tickMsg struct{}

var (
	logPanelStyle = lipgloss.NewStyle().
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

	youStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	rivalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")) // purple

	systemStyle = lipgloss.NewStyle().
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
)

var separatorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("240")) // dark grey

const helpText = `Intents (aimed at your rival):
• attack | hit          • use <move name>
• grapple               • lock <limb>
• release               • aim / fire
• defend                • flee
• finish                • stand
Control:
• mode <mode>           • template <name>
• propose spar|truce|surrender
• cancel                • leave
Console:
• /pause  /step  /copy  /templates  /help
• Esc or Ctrl+C to quit`

func NewConsoleUI(cfg *ConsoleConfig, arena *Arena) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 200
	ta.SetWidth(50)
	ta.SetHeight(1)
	ta.ShowLineNumbers = false

	logVp := viewport.New(50, 20)
	logVp.MouseWheelEnabled = true

	return ConsoleUI{
		config:       cfg,
		arena:        arena,
		textarea:     ta,
		logViewport:  logVp,
		metaViewport: viewport.New(20, 20),
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.tick())
}

func (m ConsoleUI) tick() tea.Cmd {
	return tea.Tick(m.config.Tick, func(time.Time) tea.Msg { return tickMsg{} })
}

// logLine appends one line to the fight log in the given style.
func (m *ConsoleUI) logLine(line string, style lipgloss.Style) {
	m.lines = append(m.lines, line)
	m.styled = append(m.styled, style.Render(line))
}

func (m *ConsoleUI) logEvents(evs []eventLine) {
	for _, ev := range evs {
		m.logLine(ev.text, ev.style)
	}
	m.writeLogContent()
	m.metaViewport.SetContent(m.writeMetadata())
}

type eventLine struct {
	text  string
	style lipgloss.Style
}

func (m ConsoleUI) describe(evs []combat.Event) []eventLine {
	out := make([]eventLine, 0, len(evs))
	for _, ev := range evs {
		text := m.arena.Describe(ev)
		if text == "" {
			continue
		}
		style := systemStyle
		switch ev.Actor {
		case playerID:
			style = youStyle
		case opponentID:
			style = rivalStyle
		}
		out = append(out, eventLine{fmt.Sprintf("[%d] %s", ev.Tick, text), style})
	}
	return out
}

// writeLogContent rewraps the whole log for the current viewport width.
func (m *ConsoleUI) writeLogContent() {
	width := m.logViewport.Width - 6
	if width < 20 {
		width = 20
	}
	var content strings.Builder
	content.WriteString(titleStyle.Render("COMBAT ENGINE") + "\n\n")
	content.WriteString(fmt.Sprintf("%s vs %s. Type /help for commands.\n\n", m.arena.name(playerID), m.arena.name(opponentID)))
	content.WriteString(separatorStyle.Render(strings.Repeat("─", width)) + "\n\n")
	for _, line := range m.styled {
		content.WriteString(wordwrap.String(line, width) + "\n")
	}
	if m.paused {
		content.WriteString("\n" + promptStyle.Render("(paused, /pause to resume, /step to advance)") + "\n")
	}
	m.logViewport.SetContent(content.String())
	m.logViewport.GotoBottom()
}

func (m ConsoleUI) writeMetadata() string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("FIGHTERS") + "\n\n")
	content.WriteString(m.arena.Status())
	content.WriteString("\nCommands:\n")
	content.WriteString("• Esc: Quit\n")
	content.WriteString("• Enter: Send\n")
	content.WriteString("• /help: Help\n")
	return content.String()
}

func (m *ConsoleUI) resize() {
	logWidth := int(float64(m.width)*0.7) - 4
	metaWidth := m.width - logWidth - 6

	m.logViewport.Width = logWidth - 2
	m.logViewport.Height = m.height - 7
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 4
	m.textarea.SetWidth(logWidth - 4)
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)
	ctx := context.Background()

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.logViewport, vpCmd = m.logViewport.Update(msg)
		m.metaViewport, mvCmd = m.metaViewport.Update(msg)
		return m, tea.Batch(vpCmd, mvCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.ready = true
		m.writeLogContent()
		m.metaViewport.SetContent(m.writeMetadata())

	case tickMsg:
		if !m.paused {
			m.logEvents(m.describe(m.arena.Step(ctx)))
		}
		return m, m.tick()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEnter:
			input := strings.TrimSpace(m.textarea.Value())
			m.textarea.Reset()
			if input == "" {
				return m, nil
			}
			if strings.HasPrefix(input, "/") {
				return m.handleCommand(ctx, input)
			}

			m.logLine("> "+input, promptStyle)
			reply, err := m.arena.Command(ctx, input)
			if err != nil {
				m.logLine("Error: "+err.Error(), errorStyle)
			} else if reply != "" {
				m.logLine(reply, systemStyle)
			}
			m.logEvents(m.describe(m.arena.Drain()))
			return m, nil
		}
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.logViewport, vpCmd = m.logViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd, mvCmd)
}

func (m ConsoleUI) handleCommand(ctx context.Context, input string) (tea.Model, tea.Cmd) {
	switch strings.ToLower(input) {
	case "/help":
		m.logLine(helpText, systemStyle)

	case "/pause":
		m.paused = !m.paused

	case "/step":
		m.logEvents(m.describe(m.arena.Step(ctx)))

	case "/templates":
		names := make([]string, 0, len(m.arena.templates))
		for _, t := range m.arena.templates {
			names = append(names, fmt.Sprintf("%s (%s)", t.Name, t.Mode))
		}
		sort.Strings(names)
		if len(names) == 0 {
			m.logLine("No templates loaded.", systemStyle)
		} else {
			m.logLine("Templates: "+strings.Join(names, ", "), systemStyle)
		}

	case "/copy":
		if err := clipboard.WriteAll(strings.Join(m.lines, "\n")); err != nil {
			m.logLine("Error: copy failed: "+err.Error(), errorStyle)
		} else {
			m.logLine(fmt.Sprintf("Copied %d lines to the clipboard.", len(m.lines)), systemStyle)
		}

	default:
		m.logLine("Unknown command "+input+" (try /help)", errorStyle)
	}

	m.writeLogContent()
	m.metaViewport.SetContent(m.writeMetadata())
	return m, nil
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()

	case tickMsg:
		// the fight waits while the modal is open
		return m, m.tick()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				m.textarea.Focus()
				return m, textarea.Blink
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Leave the Ring?"))
	content.WriteString("\n\n")
	content.WriteString("Are you sure you want to quit the fight?")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	logWidth := int(float64(m.width)*0.7) - 4
	metaWidth := m.width - logWidth - 6

	logPanel := logPanelStyle.Width(logWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.logViewport.View(),
			"",
			separatorStyle.Render(strings.Repeat("─", logWidth-4)),
			m.textarea.View(),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, logPanel, metaPanel)
}
