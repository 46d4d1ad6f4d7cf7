package services

import (
	"sync"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

type session struct {
	mu   sync.Mutex
	conv *Conversation
}

// SessionRegistry holds one Conversation per session id. A session handles a
// single utterance at a time.
type SessionRegistry struct {
	mu           sync.Mutex
	sessions     map[string]*session
	historyLimit int
}

func NewSessionRegistry(historyLimit int) *SessionRegistry {
	return &SessionRegistry{
		sessions:     make(map[string]*session),
		historyLimit: historyLimit,
	}
}

// Create starts a session with empty history and returns its id.
func (r *SessionRegistry) Create() string {
	id := uuid.New().String()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = &session{conv: NewConversation(id, r.historyLimit)}
	return id
}

// Acquire locks the session for one utterance. The returned release func must
// be called when the utterance is done.
func (r *SessionRegistry) Acquire(id string) (*Conversation, func(), error) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return nil, nil, goerr.Wrap(ErrSessionNotFound, "no such session", goerr.V("session_id", id))
	}

	if !s.mu.TryLock() {
		return nil, nil, goerr.Wrap(ErrBusy, "session is handling another utterance", goerr.V("session_id", id))
	}
	return s.conv, s.mu.Unlock, nil
}

// Reset clears the transcript and history of a session. It waits for an
// in-flight utterance to finish.
func (r *SessionRegistry) Reset(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return goerr.Wrap(ErrSessionNotFound, "no such session", goerr.V("session_id", id))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.conv.Reset()
	return nil
}

// End forgets a session.
func (r *SessionRegistry) End(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return goerr.Wrap(ErrSessionNotFound, "no such session", goerr.V("session_id", id))
	}
	delete(r.sessions, id)
	return nil
}

func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
