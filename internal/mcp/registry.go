package mcp

import (
	"errors"
	"fmt"
	"sync"

	"github.com/felixgeelhaar/codequest/internal/quiz"
	"github.com/google/uuid"
)

// ErrSessionNotFound is returned for unknown or ended session IDs
var ErrSessionNotFound = errors.New("session not found")

// registry holds the open quiz sessions of this process
type registry struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*quiz.Session
}

func newRegistry() *registry {
	return &registry{sessions: make(map[uuid.UUID]*quiz.Session)}
}

func (r *registry) add(sess *quiz.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sess.ID()] = sess
}

func (r *registry) get(id string) (*quiz.Session, error) {
	key, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrSessionNotFound, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

// remove closes and forgets the session
func (r *registry) remove(id string) error {
	sess, err := r.get(id)
	if err != nil {
		return err
	}
	r.mu.Lock()
	delete(r.sessions, sess.ID())
	r.mu.Unlock()
	sess.Close()
	return nil
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *registry) closeAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[uuid.UUID]*quiz.Session)
	r.mu.Unlock()

	for _, sess := range sessions {
		sess.Close()
	}
}
