// Package bot implements the report-collection conversation and the
// admin review workflow on top of the Telegram Bot API.
package bot

import (
	"sync"

	"github.com/scamwatch/reportbot/internal/captcha"
)

// State identifies the current step of a submitter's conversation.
type State string

// conversation states, in the order the form walks through them
const (
	StateCaptcha       State = "captcha"
	StateAccusedHandle State = "accused_handle"
	StateDescription   State = "description"
	StateProof         State = "proof"
	StateContact       State = "contact"
	StateConfirm       State = "confirm"
)

// Session is the in-progress draft of one submitter. It is volatile:
// a restart drops all drafts. Each field is populated only by the state
// that validated it.
type Session struct {
	State State

	Challenge    captcha.Challenge
	AttemptsLeft int

	AccusedHandle string
	AccusedID     int64
	Description   string
	ProofFileID   string
	Contact       string
}

// SessionStore keeps one live session per submitter id.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[int64]*Session
}

// NewSessionStore creates an empty store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[int64]*Session)}
}

// Get returns the submitter's session, or nil when none is open.
func (s *SessionStore) Get(userID int64) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[userID]
}

// Put stores the submitter's session, replacing any existing one.
func (s *SessionStore) Put(userID int64, sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[userID] = sess
}

// Delete discards the submitter's session.
func (s *SessionStore) Delete(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

// Len returns the number of open sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
