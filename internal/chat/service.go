// Package chat answers user messages with retrieval-augmented completions
// and keeps per-session conversation history.
package chat

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"crerag/internal/domain"
	"crerag/internal/metrics"
)

// Response tags.
const (
	TagResolved  = "Resolved"
	TagInquiring = "Inquiring"
)

const (
	contextPrefix  = "Use the following context if helpful:\n"
	titleMaxRunes  = 50
	defaultHistory = 10
	defaultContext = 3
)

// resolutionPhrases mark an assistant reply as answering the question.
var resolutionPhrases = []string{
	"the rent is", "you can find it at", "is available at", "it is located",
	"yes", "no", "sure", "certainly",
}

// ErrEmptyMessage is returned for blank chat input.
var ErrEmptyMessage = errors.New("message is empty")

// Request is one user turn.
type Request struct {
	UserID    string `json:"user_id"`
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// Response is the assistant's reply.
type Response struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

// Turn is one logged message.
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Tag       string    `json:"tag"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is a conversation owned by one user.
// MessageCount is filled in on the copies Session and Sessions return.
type Session struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
	Turns        []Turn    `json:"turns,omitempty"`
}

// Options configures a Service.
type Options struct {
	HistoryLimit  int
	ContextChunks int
	Logger        *zap.Logger
	Metrics       *metrics.Metrics
}

// Service runs chat exchanges. Sessions live in memory.
type Service struct {
	retriever domain.Retriever
	model     domain.ChatModel

	historyLimit  int
	contextChunks int
	logger        *zap.Logger
	metrics       *metrics.Metrics
	now           func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewService creates a chat service. model may be nil, in which case every
// reply reports that no language model is configured.
func NewService(retriever domain.Retriever, model domain.ChatModel, opts Options) *Service {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = defaultHistory
	}
	if opts.ContextChunks <= 0 {
		opts.ContextChunks = defaultContext
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Service{
		retriever:     retriever,
		model:         model,
		historyLimit:  opts.HistoryLimit,
		contextChunks: opts.ContextChunks,
		logger:        opts.Logger.Named("chat"),
		metrics:       opts.Metrics,
		now:           time.Now,
		sessions:      make(map[string]*Session),
	}
}

// Chat answers req. Model failures become an "Error: ..." reply rather
// than an error so the exchange is still logged.
func (s *Service) Chat(ctx context.Context, req Request) (Response, error) {
	if strings.TrimSpace(req.Message) == "" {
		return Response{}, ErrEmptyMessage
	}

	sess, history := s.openSession(req)

	messages := make([]domain.Message, 0, len(history)+2)
	contextDocs := s.retriever.Query(ctx, req.Message, s.contextChunks)
	if len(contextDocs) > 0 {
		messages = append(messages, domain.Message{Role: "system", Content: contextPrefix + strings.Join(contextDocs, "\n")})
	}
	messages = append(messages, history...)
	messages = append(messages, domain.Message{Role: "user", Content: req.Message})

	var reply string
	if s.model == nil {
		reply = "Error: no language model configured"
	} else if out, err := s.model.Complete(ctx, messages); err != nil {
		s.logger.Warn("model call failed", zap.String("session", sess), zap.Error(err))
		reply = "Error: " + err.Error()
	} else {
		reply = strings.TrimSpace(out)
	}

	tag := AutoTag(reply)
	s.record(sess, req.Message, reply, tag)
	s.metrics.ObserveChat(tag)
	s.logger.Info("chat exchange",
		zap.String("session", sess),
		zap.String("user", req.UserID),
		zap.String("tag", tag),
		zap.Int("context_chunks", len(contextDocs)),
		zap.Int("history", len(history)))
	return Response{Response: reply, SessionID: sess}, nil
}

// openSession returns the session id for req, creating a session when the
// id is empty or unknown, plus the most recent history as model messages.
func (s *Service) openSession(req Request) (string, []domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	sess, ok := s.sessions[req.SessionID]
	if !ok || req.SessionID == "" {
		sess = &Session{
			ID:        uuid.NewString(),
			UserID:    req.UserID,
			Title:     Title(req.Message),
			CreatedAt: now,
		}
		s.sessions[sess.ID] = sess
	}
	sess.UpdatedAt = now

	turns := sess.Turns
	if len(turns) > s.historyLimit {
		turns = turns[len(turns)-s.historyLimit:]
	}
	history := make([]domain.Message, len(turns))
	for i, t := range turns {
		history[i] = domain.Message{Role: t.Role, Content: t.Content}
	}
	return sess.ID, history
}

func (s *Service) record(id, message, reply, tag string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return
	}
	now := s.now().UTC()
	sess.Turns = append(sess.Turns,
		Turn{Role: "user", Content: message, Tag: TagInquiring, Timestamp: now},
		Turn{Role: "assistant", Content: reply, Tag: tag, Timestamp: now},
	)
}

// Session returns a copy of the session with id.
func (s *Service) Session(id string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, false
	}
	out := *sess
	out.Turns = append([]Turn(nil), sess.Turns...)
	out.MessageCount = len(sess.Turns)
	return out, true
}

// Sessions lists a user's sessions, most recently updated first, without turns.
func (s *Service) Sessions(userID string) []Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Session, 0)
	for _, sess := range s.sessions {
		if sess.UserID == userID {
			cp := *sess
			cp.MessageCount = len(sess.Turns)
			cp.Turns = nil
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out
}

// AutoTag classifies an assistant reply.
func AutoTag(reply string) string {
	lower := strings.ToLower(reply)
	for _, p := range resolutionPhrases {
		if strings.Contains(lower, p) {
			return TagResolved
		}
	}
	return TagInquiring
}

// Title derives a session title from the first message.
func Title(first string) string {
	r := []rune(first)
	if len(r) > titleMaxRunes {
		return string(r[:titleMaxRunes]) + "..."
	}
	return first
}
