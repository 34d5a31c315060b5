// Package tui is an interactive terminal front end for searching the
// knowledge base and chatting with the assistant.
package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"crerag/internal/chat"
	"crerag/internal/domain"
	"crerag/internal/embedding/tfidf"
)

// Searcher is the retrieval surface the TUI needs.
type Searcher interface {
	Search(ctx context.Context, text string, topK int) []domain.SearchResult
}

// Chatter answers chat messages. It may be nil, which disables chat mode.
type Chatter interface {
	Chat(ctx context.Context, req chat.Request) (chat.Response, error)
}

type mode int

const (
	modeSearch mode = iota
	modeChat
)

func (m mode) String() string {
	if m == modeChat {
		return "chat"
	}
	return "search"
}

const searchTopK = 10

type searchDoneMsg struct {
	query   string
	results []domain.SearchResult
}

type chatDoneMsg struct {
	resp chat.Response
	err  error
}

// Model is the Bubble Tea model for the TUI application.
type Model struct {
	search    Searcher
	chat      Chatter
	userID    string
	header    string
	input     textinput.Model
	viewport  viewport.Model
	mode      mode
	results   []domain.SearchResult
	cursor    int
	lastQuery string
	sessionID string
	history   []string
	status    string
	busy      bool
	ready     bool
}

// New creates a TUI model. header is shown under the title, typically the
// knowledge-base stats.
func New(search Searcher, chatter Chatter, userID, header string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Search listings and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	status := "Type to search. Tab switches to chat."
	if chatter == nil {
		status = "Type to search."
	}
	return Model{
		search:   search,
		chat:     chatter,
		userID:   userID,
		header:   header,
		input:    ti,
		viewport: vp,
		status:   status,
	}
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and completion events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // title and header, status, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-rh)
		m.refresh()
		return m, nil

	case searchDoneMsg:
		m.busy = false
		m.results = msg.results
		m.cursor = 0
		m.lastQuery = msg.query
		if len(msg.results) == 0 {
			m.status = fmt.Sprintf("No results for %q", msg.query)
		} else {
			m.status = fmt.Sprintf("%d results for %q", len(msg.results), msg.query)
		}
		m.refresh()
		return m, nil

	case chatDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else {
			m.sessionID = msg.resp.SessionID
			m.history = append(m.history, "Assistant: "+msg.resp.Response)
			m.status = "Session " + shortID(m.sessionID)
		}
		m.refresh()
		m.viewport.GotoBottom()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "tab":
			if m.chat != nil {
				m.toggleMode()
				return m, nil
			}
		case "enter":
			text := strings.TrimSpace(m.input.Value())
			if text == "" || m.busy {
				return m, nil
			}
			m.busy = true
			m.input.SetValue("")
			if m.mode == modeChat {
				m.history = append(m.history, "You: "+text)
				m.status = "Thinking..."
				m.refresh()
				return m, m.chatCmd(text)
			}
			m.status = "Searching..."
			return m, m.searchCmd(text)
		case "down":
			if m.mode == modeSearch && len(m.results) > 0 {
				m.cursor = (m.cursor + 1) % len(m.results)
				m.refresh()
				return m, nil
			}
		case "up":
			if m.mode == modeSearch && len(m.results) > 0 {
				m.cursor = (m.cursor - 1 + len(m.results)) % len(m.results)
				m.refresh()
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) toggleMode() {
	if m.mode == modeSearch {
		m.mode = modeChat
		m.input.Placeholder = "Ask the assistant and press Enter"
		m.status = "Chat mode. Tab returns to search."
	} else {
		m.mode = modeSearch
		m.input.Placeholder = "Search listings and press Enter"
		m.status = "Search mode. Tab switches to chat."
	}
	m.refresh()
}

func (m Model) searchCmd(query string) tea.Cmd {
	s := m.search
	return func() tea.Msg {
		return searchDoneMsg{query: query, results: s.Search(context.Background(), query, searchTopK)}
	}
}

func (m Model) chatCmd(message string) tea.Cmd {
	c, req := m.chat, chat.Request{UserID: m.userID, Message: message, SessionID: m.sessionID}
	return func() tea.Msg {
		resp, err := c.Chat(context.Background(), req)
		return chatDoneMsg{resp: resp, err: err}
	}
}

// View renders the layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	title := lipgloss.NewStyle().Bold(true).Render("Commercial Real Estate Assistant  [" + m.mode.String() + "]")
	header := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.header)
	body := resultBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	return title + "\n" + header + "\n" + body + "\n" + input + "\n" + status
}

func (m *Model) refresh() {
	if m.mode == modeChat {
		m.viewport.SetContent(m.renderChat())
		return
	}
	m.viewport.SetContent(m.renderCurrentResult())
}

func (m Model) renderChat() string {
	if len(m.history) == 0 {
		return "No messages yet."
	}
	return lipgloss.NewStyle().Width(max(20, m.viewport.Width-2)).Render(strings.Join(m.history, "\n\n"))
}

func (m Model) renderCurrentResult() string {
	if len(m.results) == 0 {
		return "No results yet."
	}
	r := m.results[m.cursor]
	title := fmt.Sprintf("Result %d/%d  chunk=%d  score=%.3f", m.cursor+1, len(m.results), r.Index, r.Score)
	return title + "\n\n" + highlightBestSentence(r.Text, m.lastQuery)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	sentenceRe     = regexp.MustCompile(`[^.!?\n]+[.!?]*`)
)

// highlightBestSentence emphasises the sentence sharing the most content
// words with query.
func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	var sentences []string
	for _, s := range sentenceRe.FindAllString(text, -1) {
		if s = strings.TrimSpace(s); s != "" {
			sentences = append(sentences, s)
		}
	}
	if len(sentences) == 0 {
		return strings.TrimSpace(text)
	}
	qTokens := tokenSet(query)
	if len(qTokens) == 0 {
		return strings.Join(sentences, " ")
	}
	bestIdx, bestScore := 0, 0
	for i, s := range sentences {
		if score := overlap(qTokens, s); score > bestScore {
			bestIdx, bestScore = i, score
		}
	}
	if bestScore > 0 {
		sentences[bestIdx] = highlightStyle.Render(sentences[bestIdx])
	}
	return strings.Join(sentences, " ")
}

func tokenSet(s string) map[string]struct{} {
	tokens := tfidf.Tokenize(s)
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

func overlap(query map[string]struct{}, sentence string) int {
	score := 0
	for t := range tokenSet(sentence) {
		if _, ok := query[t]; ok {
			score++
		}
	}
	return score
}
