package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/mfierros/routina/internal/advisor"
	"github.com/mfierros/routina/internal/catalog"
	"github.com/mfierros/routina/internal/conversation"
	"github.com/mfierros/routina/internal/localstore"
)

// debounceInterval is how long filter input must be idle before the filter
// applies.
const debounceInterval = 180 * time.Millisecond

// maxVisibleProducts is the height of the product pane.
const maxVisibleProducts = 8

// maxVisibleMessages is how many transcript entries the chat pane shows.
const maxVisibleMessages = 12

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive product browser and assistant chat",
	Long: `Open the interactive session: filter and select products in the top
pane, chat with the assistant in the bottom pane.

Keys:
  tab          switch between the product pane and the chat input
  up/down      move the product cursor
  left/right   cycle the category filter
  enter        toggle the highlighted product / send the chat message
  ctrl+r       generate a routine from the current selection
  ctrl+t       toggle text direction (persisted)
  ctrl+c       quit`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().BoolVar(&searchFlag, "web-search", false, "augment messages with web search results")
}

func runChat(cmd *cobra.Command, args []string) error {
	products, err := loadSession(cmd.Context())
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	model := newChatModel(newAdvisor(), store, products)
	if _, err := tea.NewProgram(model).Run(); err != nil {
		return fmt.Errorf("chat UI error: %w", err)
	}
	return nil
}

// chatTheme holds the color scheme for the chat display.
type chatTheme struct {
	User      lipgloss.Color
	Assistant lipgloss.Color
	Error     lipgloss.Color
	Hint      lipgloss.Color
	Selected  lipgloss.Color
}

var defaultChatTheme = chatTheme{
	User:      lipgloss.Color("#5FAFD7"), // light blue
	Assistant: lipgloss.Color("#00D787"), // green
	Error:     lipgloss.Color("#FF005F"), // red
	Hint:      lipgloss.Color("#6C6C6C"), // dim gray
	Selected:  lipgloss.Color("#FFD787"), // amber
}

func (t chatTheme) userStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.User).Bold(true)
}

func (t chatTheme) assistantStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Assistant)
}

func (t chatTheme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t chatTheme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

func (t chatTheme) selectedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Selected)
}

// focusArea is which pane receives keystrokes.
type focusArea int

const (
	focusProducts focusArea = iota
	focusChat
)

// filterTickMsg fires when the debounce interval elapses. Only the tick
// carrying the newest sequence number applies; older ones are stale.
type filterTickMsg struct {
	seq int
}

// replyMsg carries the outcome of a completion back into the event loop.
type replyMsg struct {
	err error
}

// chatModel is the bubbletea model for the interactive session.
type chatModel struct {
	adv   *advisor.Advisor
	store *localstore.Store
	theme chatTheme

	products    []catalog.Product
	filtered    []catalog.Product
	categories  []string
	categoryIdx int
	cursor      int

	filterInput textinput.Model
	chatInput   textinput.Model
	focus       focusArea
	filterSeq   int

	spinner    spinner.Model
	waiting    bool
	failedLine string

	direction string
	width     int
	quitting  bool
}

// newChatModel creates the interactive session model.
func newChatModel(adv *advisor.Advisor, store *localstore.Store, products []catalog.Product) chatModel {
	filter := textinput.New()
	filter.Placeholder = "type to filter products"

	input := textinput.New()
	input.Placeholder = "ask the assistant"
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	direction := "ltr"
	if store != nil {
		var stored string
		if ok, err := store.Get(localstore.KeyDirection, &stored); err == nil && ok {
			direction = stored
		}
	}

	return chatModel{
		adv:         adv,
		store:       store,
		theme:       defaultChatTheme,
		products:    products,
		filtered:    products,
		categories:  append([]string{""}, catalog.Categories(products)...),
		filterInput: filter,
		chatInput:   input,
		focus:       focusChat,
		spinner:     sp,
		direction:   direction,
		width:       80,
	}
}

// Init returns the initial command.
func (m chatModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages and returns the updated model.
func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyPressMsg:
		return m.handleKey(msg)

	case filterTickMsg:
		// A newer keystroke superseded this tick
		if msg.seq != m.filterSeq {
			return m, nil
		}
		m.applyFilter()
		return m, nil

	case replyMsg:
		m.waiting = false
		if msg.err != nil {
			m.failedLine = completionErrorText(msg.err)
		}
		return m, nil

	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m chatModel) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "tab":
		if m.focus == focusProducts {
			m.focus = focusChat
			m.filterInput.Blur()
			return m, m.chatInput.Focus()
		}
		m.focus = focusProducts
		m.chatInput.Blur()
		return m, m.filterInput.Focus()

	case "ctrl+t":
		m.toggleDirection()
		return m, nil

	case "ctrl+r":
		return m.submitRoutine()
	}

	if m.focus == focusProducts {
		switch msg.String() {
		case "up":
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case "down":
			if m.cursor < len(m.filtered)-1 {
				m.cursor++
			}
			return m, nil
		case "left":
			m.cycleCategory(-1)
			return m, nil
		case "right":
			m.cycleCategory(1)
			return m, nil
		case "enter":
			m.toggleHighlighted()
			return m, nil
		}

		before := m.filterInput.Value()
		var cmd tea.Cmd
		m.filterInput, cmd = m.filterInput.Update(msg)
		if m.filterInput.Value() != before {
			return m, tea.Batch(cmd, m.scheduleFilter())
		}
		return m, cmd
	}

	if msg.String() == "enter" {
		return m.submitChat()
	}
	var cmd tea.Cmd
	m.chatInput, cmd = m.chatInput.Update(msg)
	return m, cmd
}

// scheduleFilter bumps the sequence counter and schedules a debounce tick
// for it. Earlier ticks still in flight arrive with a stale sequence and
// are dropped, so only the newest keystroke's tick applies.
func (m *chatModel) scheduleFilter() tea.Cmd {
	m.filterSeq++
	seq := m.filterSeq
	return tea.Tick(debounceInterval, func(time.Time) tea.Msg {
		return filterTickMsg{seq: seq}
	})
}

// applyFilter recomputes the visible product list from the current
// category and query.
func (m *chatModel) applyFilter() {
	category := m.categories[m.categoryIdx]
	query := strings.TrimSpace(m.filterInput.Value())

	if category == "" && query == "" {
		m.filtered = m.products
	} else {
		m.filtered = catalog.Filter(m.products, category, query)
	}
	if m.cursor >= len(m.filtered) {
		m.cursor = 0
	}
}

func (m *chatModel) cycleCategory(delta int) {
	m.categoryIdx = (m.categoryIdx + delta + len(m.categories)) % len(m.categories)
	m.applyFilter()
}

func (m *chatModel) toggleHighlighted() {
	if m.cursor >= len(m.filtered) {
		return
	}
	p := m.filtered[m.cursor]
	m.adv.Selections().Toggle(p.ID, p)
}

func (m *chatModel) toggleDirection() {
	if m.direction == "ltr" {
		m.direction = "rtl"
	} else {
		m.direction = "ltr"
	}
	if m.store != nil {
		// Preference writes are best-effort, like selection persistence
		m.store.Set(localstore.KeyDirection, m.direction)
	}
}

// submitChat starts one completion for the typed message. While one is
// outstanding further submissions are ignored; the advisor enforces the
// same guard underneath.
func (m chatModel) submitChat() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.chatInput.Value())
	if text == "" || m.waiting {
		return m, nil
	}

	m.chatInput.SetValue("")
	m.waiting = true
	m.failedLine = ""

	adv := m.adv
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		_, err := adv.Send(context.Background(), text)
		return replyMsg{err: err}
	})
}

func (m chatModel) submitRoutine() (tea.Model, tea.Cmd) {
	if m.waiting {
		return m, nil
	}
	if m.adv.Selections().Len() == 0 {
		m.failedLine = advisor.NoSelectionsReply
		return m, nil
	}

	m.waiting = true
	m.failedLine = ""

	adv := m.adv
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		_, err := adv.GenerateRoutine(context.Background())
		return replyMsg{err: err}
	})
}

// View renders the session.
func (m chatModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m chatModel) renderContent() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(m.renderProducts())
	b.WriteString("\n")
	b.WriteString(m.renderTranscript())
	b.WriteString("\n")

	if m.focus == focusProducts {
		b.WriteString("filter: " + m.filterInput.View() + "\n")
	} else {
		b.WriteString(m.chatInput.View() + "\n")
	}

	b.WriteString(m.theme.hintStyle().Render(
		"tab panes · enter toggle/send · ctrl+r routine · ctrl+t direction · ctrl+c quit"))
	b.WriteString("\n")
	return b.String()
}

func (m chatModel) renderProducts() string {
	var b strings.Builder

	category := m.categories[m.categoryIdx]
	if category == "" {
		category = "all"
	}
	b.WriteString(fmt.Sprintf("Products [%s] (%d shown, %d selected)\n",
		category, len(m.filtered), m.adv.Selections().Len()))

	if len(m.filtered) == 0 {
		b.WriteString(m.theme.hintStyle().Render("  no products match") + "\n")
		return b.String()
	}

	start := 0
	if m.cursor >= maxVisibleProducts {
		start = m.cursor - maxVisibleProducts + 1
	}
	end := min(start+maxVisibleProducts, len(m.filtered))

	for i := start; i < end; i++ {
		p := m.filtered[i]
		mark := "[ ]"
		if m.adv.Selections().Contains(p.ID) {
			mark = m.theme.selectedStyle().Render("[x]")
		}
		pointer := "  "
		if i == m.cursor && m.focus == focusProducts {
			pointer = "> "
		}
		b.WriteString(fmt.Sprintf("%s%s %s - %s (%s)\n", pointer, mark, p.Name, p.Brand, p.Category))
	}
	return b.String()
}

func (m chatModel) renderTranscript() string {
	var lines []string

	messages := m.adv.Transcript()
	for i, msg := range messages {
		switch msg.Role {
		case conversation.RoleSystem:
			// The seed prompt and injected search notes stay out of view
			if i == 0 {
				continue
			}
			lines = append(lines, m.theme.hintStyle().Render("(web results added to context)"))
		case conversation.RoleUser:
			lines = append(lines, m.theme.userStyle().Render("You: ")+msg.Content)
		case conversation.RoleAssistant:
			lines = append(lines, m.theme.assistantStyle().Render("Routina: ")+msg.Content)
		}
	}

	// The in-flight user message is already in the transcript: Send
	// appends it before calling the endpoint. Only the placeholder is
	// added here, so the message never shows twice.
	if m.waiting {
		lines = append(lines, m.spinner.View()+" "+m.theme.hintStyle().Render("Thinking..."))
	}
	if m.failedLine != "" {
		lines = append(lines, m.theme.errorStyle().Render(m.failedLine))
	}
	if len(lines) == 0 {
		lines = append(lines, m.theme.hintStyle().Render("Ask about the products, or select some and press ctrl+r."))
	}

	if len(lines) > maxVisibleMessages {
		lines = lines[len(lines)-maxVisibleMessages:]
	}

	if m.direction == "rtl" {
		aligned := lipgloss.NewStyle().Width(m.width).Align(lipgloss.Right)
		for i, line := range lines {
			lines[i] = aligned.Render(line)
		}
	}

	return strings.Join(lines, "\n") + "\n"
}

// completionErrorText renders a failed completion as the transcript's
// plain-text error line, surfacing the upstream status when there is one.
func completionErrorText(err error) string {
	if errors.Is(err, advisor.ErrNoSelections) {
		return advisor.NoSelectionsReply
	}
	if errors.Is(err, advisor.ErrBusy) {
		return "A request is already in progress."
	}
	return "Error: " + assistantErrorText(err)
}
