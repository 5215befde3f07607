package notify

import (
	"errors"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/example/respondr-dispatch/internal/models"
)

// ErrNoSession means the responder has no live websocket connection.
var ErrNoSession = errors.New("no ws session")

// WSSession is one connected responder app.
type WSSession struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *WSSession) Send(offer models.AssignmentOffer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(offer)
}

// WSRegistry holds live responder sessions keyed by responder id.
type WSRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*WSSession
}

func NewWSRegistry() *WSRegistry {
	return &WSRegistry{sessions: make(map[string]*WSSession)}
}

func (r *WSRegistry) Add(responderID string, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[responderID] = &WSSession{conn: conn}
}

func (r *WSRegistry) Remove(responderID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, responderID)
}

func (r *WSRegistry) Offer(responderID string, offer models.AssignmentOffer) error {
	r.mu.RLock()
	s, ok := r.sessions[responderID]
	r.mu.RUnlock()
	if !ok {
		return ErrNoSession
	}
	if err := s.Send(offer); err != nil {
		// A dead connection stays dead; drop it so the fallback
		// transport takes over immediately next time.
		r.Remove(responderID)
		return err
	}
	return nil
}
