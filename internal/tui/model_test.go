package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crerag/internal/chat"
	"crerag/internal/domain"
)

type fakeSearcher struct {
	queries []string
	results []domain.SearchResult
}

func (f *fakeSearcher) Search(_ context.Context, text string, _ int) []domain.SearchResult {
	f.queries = append(f.queries, text)
	return f.results
}

type fakeChatter struct {
	err error
	got []chat.Request
}

func (f *fakeChatter) Chat(_ context.Context, req chat.Request) (chat.Response, error) {
	f.got = append(f.got, req)
	if f.err != nil {
		return chat.Response{}, f.err
	}
	return chat.Response{Response: "Suite 300 is available.", SessionID: "0123456789abcdef"}, nil
}

func sized(t *testing.T, m Model) Model {
	t.Helper()
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return next.(Model)
}

func submit(t *testing.T, m Model, text string) Model {
	t.Helper()
	m.input.SetValue(text)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	next, _ = next.(Model).Update(cmd())
	return next.(Model)
}

func TestSearchFlow(t *testing.T) {
	s := &fakeSearcher{results: []domain.SearchResult{
		{Index: 4, Score: 0.82, Text: "Lobby renovated in 2024. Suite 300 offers 20,000 SF."},
		{Index: 1, Score: 0.40, Text: "Parking garage."},
	}}
	m := sized(t, New(s, nil, "u1", "2 chunks"))

	m = submit(t, m, "suite 300")
	assert.Equal(t, []string{"suite 300"}, s.queries)
	assert.Len(t, m.results, 2)
	assert.Contains(t, m.status, "2 results")
	assert.Contains(t, m.renderCurrentResult(), "Result 1/2")
	assert.Contains(t, m.renderCurrentResult(), "chunk=4")

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	assert.Equal(t, 1, m.cursor)
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	assert.Equal(t, 0, m.cursor)
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 1, next.(Model).cursor)
}

func TestSearch_NoResults(t *testing.T) {
	m := sized(t, New(&fakeSearcher{}, nil, "u1", ""))
	m = submit(t, m, "warehouse")
	assert.Equal(t, `No results for "warehouse"`, m.status)
	assert.Equal(t, "No results yet.", m.renderCurrentResult())
}

func TestEmptyInputIgnored(t *testing.T) {
	s := &fakeSearcher{}
	m := sized(t, New(s, nil, "u1", ""))
	m.input.SetValue("   ")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Empty(t, s.queries)
}

func TestTabWithoutChatStaysInSearch(t *testing.T) {
	m := sized(t, New(&fakeSearcher{}, nil, "u1", ""))
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, modeSearch, next.(Model).mode)
}

func TestChatFlow(t *testing.T) {
	c := &fakeChatter{}
	m := sized(t, New(&fakeSearcher{}, c, "u1", ""))
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = next.(Model)
	require.Equal(t, modeChat, m.mode)

	m = submit(t, m, "Is suite 300 free?")
	m = submit(t, m, "What is the rent?")

	require.Len(t, c.got, 2)
	assert.Empty(t, c.got[0].SessionID)
	assert.Equal(t, "0123456789abcdef", c.got[1].SessionID)
	assert.Equal(t, "u1", c.got[1].UserID)
	assert.Len(t, m.history, 4)
	assert.Equal(t, "Session 01234567", m.status)
	assert.Contains(t, m.renderChat(), "Assistant: Suite 300 is available.")
}

func TestChatError(t *testing.T) {
	c := &fakeChatter{err: errors.New("empty message")}
	m := sized(t, New(&fakeSearcher{}, c, "u1", ""))
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = submit(t, next.(Model), "hi")
	assert.Equal(t, "Error: empty message", m.status)
	assert.False(t, m.busy)
}

func TestHighlightBestSentence(t *testing.T) {
	text := "The lobby was renovated. Suite 300 offers 20,000 SF. Parking is free."
	out := highlightBestSentence(text, "suite 300 size")
	assert.Contains(t, out, "Suite 300 offers 20,000 SF.")
	assert.Contains(t, out, "The lobby was renovated.")

	assert.Equal(t, "", highlightBestSentence("", "x"))
	assert.Equal(t, "One. Two.", highlightBestSentence("One.  Two.", ""))
}

func TestOverlap(t *testing.T) {
	q := tokenSet("office space downtown")
	assert.Equal(t, 2, overlap(q, "Downtown office tower"))
	assert.Equal(t, 0, overlap(q, "the and of"))
}
