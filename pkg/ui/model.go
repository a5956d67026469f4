// Package ui is the terminal explorer: a bubbletea program over an
// orchestrator session.
package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/Yiozolm/Knode/pkg/conversation"
	"github.com/Yiozolm/Knode/pkg/flowchart"
	"github.com/Yiozolm/Knode/pkg/orchestrator"
	"github.com/Yiozolm/Knode/pkg/render"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

type errMsg error

// StateMsg carries a new session state into the program.
type StateMsg struct {
	State orchestrator.State
}

// Dispatcher queues events for the session. *orchestrator.Session
// implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev orchestrator.Event) error
}

type Mode string

const (
	ModeTree          Mode = "tree"
	ModeDetail        Mode = "detail"
	ModeInput         Mode = "input"
	ModeConversations Mode = "conversations"
)

type inputPurpose int

const (
	inputChat inputPurpose = iota
	inputAsk
	inputExcerpt
	inputRename
	inputSearch
)

type Model struct {
	ctx     context.Context
	session Dispatcher

	state    orchestrator.State
	diagram  *flowchart.Diagram
	options  flowchart.Options
	markdown *render.Markdown

	mode     Mode
	previous Mode
	purpose  inputPurpose
	// target is the node an ask or excerpt input explores from, or the
	// conversation a rename applies to.
	target string

	cursor     int
	listCursor int

	textArea textarea.Model
	viewport viewport.Model
	help     help.Model
	keyMap   KeyMap
	style    *Style

	width  int
	height int
	err    error
}

func NewModel(ctx context.Context, session Dispatcher, initial orchestrator.State, options flowchart.Options, markdown *render.Markdown) Model {
	ret := Model{
		ctx:      ctx,
		session:  session,
		options:  options,
		markdown: markdown,
		mode:     ModeTree,
		viewport: viewport.New(0, 0),
		help:     help.New(),
		keyMap:   DefaultKeyMap,
		style:    DefaultStyles(),
	}
	ret.textArea = textarea.New()
	ret.textArea.ShowLineNumbers = false
	ret.setState(initial)
	ret.updateKeyBindings()
	return ret
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.dispatch(orchestrator.Started{}))
}

func (m Model) Mode() Mode {
	return m.mode
}

// Selected returns the box under the cursor.
func (m Model) Selected() (flowchart.Box, bool) {
	if m.cursor < 0 || m.cursor >= len(m.diagram.Boxes) {
		return flowchart.Box{}, false
	}
	return m.diagram.Boxes[m.cursor], true
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case StateMsg:
		m.setState(msg.State)
		m.updateKeyBindings()
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recomputeSize()
		return m, nil

	case errMsg:
		m.err = msg
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keyMap.Quit) {
			return m, tea.Quit
		}
		switch m.mode {
		case ModeTree:
			cmd = m.updateTree(msg)
		case ModeDetail:
			cmd = m.updateDetail(msg)
		case ModeConversations:
			cmd = m.updateConversations(msg)
		case ModeInput:
			cmd = m.updateInput(msg)
		}
		m.updateKeyBindings()
		return m, cmd
	}

	if m.mode == ModeInput {
		m.textArea, cmd = m.textArea.Update(msg)
		cmds = append(cmds, cmd)
	}
	if m.mode == ModeDetail {
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) updateTree(msg tea.KeyMsg) tea.Cmd {
	box, ok := m.Selected()
	switch {
	case key.Matches(msg, m.keyMap.SelectPrev):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keyMap.SelectNext):
		if m.cursor < len(m.diagram.Boxes)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keyMap.Activate):
		if ok {
			m.mode = ModeDetail
			m.refreshDetail()
			return m.dispatch(orchestrator.NodeSelected{ID: box.ID})
		}
	case key.Matches(msg, m.keyMap.Explore):
		if ok && box.Hooks.Explore != "" {
			return m.dispatch(orchestrator.AnswerExplored{AnswerID: box.Hooks.Explore})
		}
	case key.Matches(msg, m.keyMap.Ask):
		if ok && settled(box) && box.AnswerID != "" {
			return m.openInput(inputAsk, string(box.AnswerID), "Ask about this answer...")
		}
	case key.Matches(msg, m.keyMap.Chat):
		return m.openInput(inputChat, "", "Ask a new question...")
	case key.Matches(msg, m.keyMap.Reset):
		m.cursor = 0
		return m.dispatch(orchestrator.ResetRequested{})
	case key.Matches(msg, m.keyMap.Conversations):
		m.mode = ModeConversations
		m.listCursor = 0
		return m.dispatch(orchestrator.ConversationsRefreshed{})
	case key.Matches(msg, m.keyMap.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return nil
}

func (m *Model) updateDetail(msg tea.KeyMsg) tea.Cmd {
	box, ok := m.Selected()
	switch {
	case key.Matches(msg, m.keyMap.Back):
		m.mode = ModeTree
		return m.dispatch(orchestrator.DetailClosed{})
	case key.Matches(msg, m.keyMap.Explore):
		if ok && box.Hooks.Explore != "" {
			return m.dispatch(orchestrator.AnswerExplored{AnswerID: box.Hooks.Explore})
		}
	case key.Matches(msg, m.keyMap.Excerpt):
		if ok && settled(box) {
			source := box.ID
			if box.AnswerID != "" {
				source = box.AnswerID
			}
			return m.openInput(inputExcerpt, string(source), "Paste the passage to explore...")
		}
	case key.Matches(msg, m.keyMap.Help):
		m.help.ShowAll = !m.help.ShowAll
	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return cmd
	}
	return nil
}

func (m *Model) updateConversations(msg tea.KeyMsg) tea.Cmd {
	list := m.conversationList()
	switch {
	case key.Matches(msg, m.keyMap.Back):
		m.mode = ModeTree
		if m.state.SearchQuery != "" {
			return m.dispatch(orchestrator.ConversationsSearched{})
		}
	case key.Matches(msg, m.keyMap.SelectPrev):
		if m.listCursor > 0 {
			m.listCursor--
		}
	case key.Matches(msg, m.keyMap.SelectNext):
		if m.listCursor < len(list)-1 {
			m.listCursor++
		}
	case key.Matches(msg, m.keyMap.Activate):
		if m.listCursor < len(list) {
			m.mode = ModeTree
			m.cursor = 0
			return m.dispatch(orchestrator.ConversationOpened{ID: list[m.listCursor].ID})
		}
	case key.Matches(msg, m.keyMap.Delete):
		if m.listCursor < len(list) {
			return m.dispatch(orchestrator.ConversationRemoved{ID: list[m.listCursor].ID})
		}
	case key.Matches(msg, m.keyMap.Rename):
		if m.listCursor < len(list) {
			cmd := m.openInput(inputRename, list[m.listCursor].ID, "New title...")
			m.textArea.SetValue(list[m.listCursor].Title)
			return cmd
		}
	case key.Matches(msg, m.keyMap.Search):
		return m.openInput(inputSearch, "", "Search conversations...")
	}
	return nil
}

func (m *Model) updateInput(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keyMap.Back):
		m.closeInput()
		return nil
	case key.Matches(msg, m.keyMap.Submit):
		value := strings.TrimSpace(m.textArea.Value())
		purpose, target := m.purpose, m.target
		m.closeInput()
		if value == "" && purpose != inputSearch {
			return nil
		}
		var ev orchestrator.Event
		switch purpose {
		case inputChat:
			ev = orchestrator.ChatSubmitted{Content: value}
		case inputAsk:
			ev = orchestrator.ExplorationRequested{ParentID: conversation.NodeID(target), Prompt: value}
		case inputExcerpt:
			ev = orchestrator.ExcerptExplored{NodeID: conversation.NodeID(target), Excerpt: value}
		case inputRename:
			ev = orchestrator.ConversationRetitled{ID: target, Title: value}
		case inputSearch:
			m.listCursor = 0
			ev = orchestrator.ConversationsSearched{Query: value}
		}
		return m.dispatch(ev)
	}
	var cmd tea.Cmd
	m.textArea, cmd = m.textArea.Update(msg)
	return cmd
}

func (m *Model) openInput(purpose inputPurpose, target, placeholder string) tea.Cmd {
	m.previous = m.mode
	m.mode = ModeInput
	m.purpose = purpose
	m.target = target
	m.textArea.Reset()
	m.textArea.Placeholder = placeholder
	m.textArea.Focus()
	return textarea.Blink
}

func (m *Model) closeInput() {
	m.textArea.Blur()
	m.textArea.Reset()
	m.mode = m.previous
	if m.mode == "" || m.mode == ModeInput {
		m.mode = ModeTree
	}
}

func (m *Model) setState(s orchestrator.State) {
	m.state = s
	m.diagram = flowchart.Build(s.Tree, m.options)
	if m.cursor >= len(m.diagram.Boxes) {
		m.cursor = len(m.diagram.Boxes) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.listCursor >= len(m.conversationList()) {
		m.listCursor = 0
	}
	if m.mode == ModeDetail {
		if _, ok := m.Selected(); !ok {
			m.mode = ModeTree
		}
		m.refreshDetail()
	}
}

func (m Model) conversationList() []conversationItem {
	src := m.state.Conversations
	if m.state.SearchQuery != "" {
		src = m.state.SearchResults
	}
	out := make([]conversationItem, 0, len(src))
	for _, c := range src {
		out = append(out, conversationItem{ID: c.ID, Title: c.Title, Updated: c.UpdatedAt.Format("2006-01-02 15:04")})
	}
	return out
}

type conversationItem struct {
	ID      string
	Title   string
	Updated string
}

func (m *Model) refreshDetail() {
	box, ok := m.Selected()
	if !ok {
		m.viewport.SetContent("")
		return
	}
	content := render.DetailMarkdown(box)
	if m.markdown != nil {
		content = m.markdown.Detail(box)
	}
	m.viewport.SetContent(content)
}

// settled reports whether box can be explored further. Loading and failed
// boxes carry a placeholder id that the backend never sees.
func settled(box flowchart.Box) bool {
	switch box.State {
	case flowchart.BoxLoading, flowchart.BoxError:
		return false
	}
	return !box.ID.IsPlaceholder()
}

func (m *Model) updateKeyBindings() {
	tree := m.mode == ModeTree
	detail := m.mode == ModeDetail
	list := m.mode == ModeConversations
	input := m.mode == ModeInput
	box, ok := m.Selected()
	explorable := ok && settled(box)

	m.keyMap.SelectPrev.SetEnabled(tree || list)
	m.keyMap.SelectNext.SetEnabled(tree || list)
	m.keyMap.Activate.SetEnabled(tree || list)
	m.keyMap.Explore.SetEnabled(tree || detail)
	m.keyMap.Ask.SetEnabled(tree && explorable)
	m.keyMap.Excerpt.SetEnabled(detail && explorable)
	m.keyMap.Chat.SetEnabled(tree)
	m.keyMap.Submit.SetEnabled(input)
	m.keyMap.Back.SetEnabled(!tree)
	m.keyMap.Reset.SetEnabled(tree)
	m.keyMap.Conversations.SetEnabled(tree)
	m.keyMap.Delete.SetEnabled(list)
	m.keyMap.Rename.SetEnabled(list)
	m.keyMap.Search.SetEnabled(list)
	m.keyMap.ScrollUp.SetEnabled(detail)
	m.keyMap.ScrollDown.SetEnabled(detail)
}

func (m *Model) recomputeSize() {
	headerHeight := lipgloss.Height(m.headerView())
	footerHeight := lipgloss.Height(m.statusView()) + lipgloss.Height(m.help.View(m.keyMap))
	frameW, frameH := m.style.Detail.GetFrameSize()

	height := m.height - headerHeight - footerHeight - frameH
	if height < 0 {
		height = 0
	}
	m.viewport.Width = m.width - frameW
	m.viewport.Height = height
	m.textArea.SetWidth(m.width - frameW)
	m.help.Width = m.width

	if m.markdown != nil {
		m.refreshDetail()
	}
}

func (m Model) dispatch(ev orchestrator.Event) tea.Cmd {
	return func() tea.Msg {
		if err := m.session.Dispatch(m.ctx, ev); err != nil {
			return errMsg(err)
		}
		return nil
	}
}

func (m Model) View() string {
	var body string
	switch m.mode {
	case ModeDetail:
		body = m.style.Detail.Render(m.viewport.View())
	case ModeConversations:
		body = m.conversationsView()
	case ModeInput:
		if m.previous == ModeConversations {
			body = m.conversationsView()
		} else {
			body = m.treeView()
		}
		body += "\n" + m.style.FocusedInput.Render(m.textArea.View())
	default:
		body = m.treeView()
	}
	return m.headerView() + "\n" + body + "\n" + m.statusView() + "\n" + m.help.View(m.keyMap)
}

func (m Model) headerView() string {
	title := m.state.Title
	if title == "" {
		title = "New conversation"
	}
	v := fmt.Sprintf("KNODE · %s", title)
	if id := m.state.ConversationID(); id != "" {
		v += fmt.Sprintf("  [%s v%d]", id, m.state.Tree.Version)
	}
	if m.state.Busy() {
		v += "  ⟳"
	}
	return m.style.Header.Render(v)
}

func (m Model) statusView() string {
	if m.err != nil {
		return m.style.Status[orchestrator.StatusError].Render(m.wrap("Error: " + m.err.Error()))
	}
	if !m.state.Status.Visible() {
		return ""
	}
	return m.style.Status[m.state.Status.Kind].Render(m.wrap(m.state.Status.Message))
}

var stateMarkers = map[flowchart.BoxState]string{
	flowchart.BoxAnswered:   "●",
	flowchart.BoxUnanswered: "○",
	flowchart.BoxLoading:    "…",
	flowchart.BoxError:      "✗",
}

func (m Model) treeView() string {
	if len(m.diagram.Boxes) == 0 {
		return m.style.Unselected.Render("No questions yet. Press i to ask one.")
	}
	lines := make([]string, 0, len(m.diagram.Boxes))
	for i, b := range m.diagram.Boxes {
		var answer string
		switch b.State {
		case flowchart.BoxAnswered:
			answer = "A: " + b.AnswerLabel
		case flowchart.BoxLoading:
			answer = render.LoadingText
		case flowchart.BoxError:
			answer = "Error: " + b.ErrorMessage
		}
		line := fmt.Sprintf("%s%s Q: %s", strings.Repeat("  ", b.Level), stateMarkers[b.State], b.QuestionLabel)
		if answer != "" {
			line += "  │ " + answer
		}
		line = m.style.States[b.State].Render(line)
		if i == m.cursor {
			line = m.style.Selected.Render(line)
		} else {
			line = m.style.Unselected.Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(m.window(lines, m.cursor), "\n")
}

func (m Model) conversationsView() string {
	list := m.conversationList()
	header := "Conversations"
	if m.state.SearchQuery != "" {
		header = fmt.Sprintf("Search results for %q", m.state.SearchQuery)
	}
	if len(list) == 0 {
		return header + "\n" + m.style.Unselected.Render("(none)")
	}
	lines := make([]string, 0, len(list))
	for i, c := range list {
		marker := " "
		if c.ID == m.state.ConversationID() {
			marker = "*"
		}
		line := fmt.Sprintf("%s %s  %s", marker, c.Title, c.Updated)
		if i == m.listCursor {
			line = m.style.Selected.Render(line)
		} else {
			line = m.style.Unselected.Render(line)
		}
		lines = append(lines, line)
	}
	return header + "\n" + strings.Join(m.window(lines, m.listCursor), "\n")
}

// window keeps the lines around cursor that fit the viewport height.
func (m Model) window(lines []string, cursor int) []string {
	height := m.viewport.Height
	if height <= 0 || len(lines) <= height {
		return lines
	}
	start := cursor - height/2
	if start < 0 {
		start = 0
	}
	if start+height > len(lines) {
		start = len(lines) - height
	}
	return lines[start : start+height]
}

func (m Model) wrap(s string) string {
	if m.width <= 0 {
		return s
	}
	return wordwrap.String(s, m.width)
}
