package services

import (
	"strings"
	"sync"
)

// maxContextTurns caps how many recent turns are rendered into the composed
// session context handed to the model.
const maxContextTurns = 6

// ConversationStage tracks where a consultation conversation is, advanced by
// explicit orchestrator transitions rather than inferred from text alone.
type ConversationStage int

const (
	StageGreeting ConversationStage = iota
	StageAnalysis                   // a timeline/analysis answer has been delivered
	StageRemedy                     // remedies have been delivered
)

// ChatTurn is one user/AI exchange. Turns are immutable once appended.
type ChatTurn struct {
	User string
	AI   string
}

// SessionStore is the conversation memory consumed by the consultation
// service. Implementations may be backed by an external keyed store; the
// in-memory implementation below is the default for a single-process
// deployment. All methods must be safe for concurrent use.
type SessionStore interface {
	SaveContext(sessionID, contextText string) error
	AppendTurn(sessionID, userMsg, aiMsg string) error
	GetContext(sessionID string) (string, error)
	Stage(sessionID string) (ConversationStage, error)
	AdvanceStage(sessionID string, stage ConversationStage) error
	Clear(sessionID string) error
}

type sessionState struct {
	contextText string
	history     []ChatTurn
	stage       ConversationStage
}

// MemorySessionStore keeps all session state in a process-local map guarded
// by a single mutex. State does not survive a restart and is not shared
// across instances.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]*sessionState
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]*sessionState),
	}
}

func (s *MemorySessionStore) getOrCreate(sessionID string) *sessionState {
	st, ok := s.sessions[sessionID]
	if !ok {
		st = &sessionState{}
		s.sessions[sessionID] = st
	}
	return st
}

// SaveContext replaces the free-text context stored for the session. The last
// value wins. An empty session id is a no-op.
func (s *MemorySessionStore) SaveContext(sessionID, contextText string) error {
	if sessionID == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getOrCreate(sessionID).contextText = contextText
	return nil
}

// AppendTurn adds one exchange to the session history. The session is created
// on first use and history grows without bound.
func (s *MemorySessionStore) AppendTurn(sessionID, userMsg, aiMsg string) error {
	if sessionID == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.getOrCreate(sessionID)
	st.history = append(st.history, ChatTurn{User: userMsg, AI: aiMsg})
	return nil
}

// GetContext renders the stored context plus the most recent turns as a
// single text block:
//
//	User-provided context:
//	<text>
//
//	User: ...
//	AI: ...
//
// Unknown or empty session ids yield an empty string.
func (s *MemorySessionStore) GetContext(sessionID string) (string, error) {
	if sessionID == "" {
		return "", nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.sessions[sessionID]
	if !ok {
		return "", nil
	}

	var parts []string
	if st.contextText != "" {
		parts = append(parts, "User-provided context:\n"+st.contextText)
	}

	if len(st.history) > 0 {
		turns := st.history
		if len(turns) > maxContextTurns {
			turns = turns[len(turns)-maxContextTurns:]
		}
		var lines []string
		for _, turn := range turns {
			lines = append(lines, "User: "+turn.User)
			if turn.AI != "" {
				lines = append(lines, "AI: "+turn.AI)
			}
		}
		parts = append(parts, strings.Join(lines, "\n"))
	}

	return strings.Join(parts, "\n\n"), nil
}

func (s *MemorySessionStore) Stage(sessionID string) (ConversationStage, error) {
	if sessionID == "" {
		return StageGreeting, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[sessionID]
	if !ok {
		return StageGreeting, nil
	}
	return st.stage, nil
}

// AdvanceStage moves the session forward. Stages never move backwards.
func (s *MemorySessionStore) AdvanceStage(sessionID string, stage ConversationStage) error {
	if sessionID == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.getOrCreate(sessionID)
	if stage > st.stage {
		st.stage = stage
	}
	return nil
}

// Clear removes all stored state for the session.
func (s *MemorySessionStore) Clear(sessionID string) error {
	if sessionID == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}
