package net

import (
	"cmp"
	"slices"

	"github.com/buxx/civ/internal/game"
	"github.com/buxx/civ/internal/message"
)

// SessionStore tracks the live sessions. Game loop only.
type SessionStore struct {
	sessions map[uint64]*Session
	byClient map[game.ClientID]*Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[uint64]*Session),
		byClient: make(map[game.ClientID]*Session),
	}
}

func (st *SessionStore) Add(s *Session) {
	st.sessions[s.ID] = s
	st.byClient[s.Client] = s
}

func (st *SessionStore) Remove(id uint64) {
	if s, ok := st.sessions[id]; ok {
		delete(st.byClient, s.Client)
		delete(st.sessions, id)
	}
}

func (st *SessionStore) Get(client game.ClientID) (*Session, bool) {
	s, ok := st.byClient[client]
	return s, ok
}

func (st *SessionStore) Len() int {
	return len(st.sessions)
}

// Sessions returns the sessions ordered by id, so they are served in
// connection order.
func (st *SessionStore) Sessions() []*Session {
	out := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b *Session) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func (st *SessionStore) ForEach(fn func(*Session)) {
	for _, s := range st.Sessions() {
		fn(s)
	}
}

// Send buffers msg for client. It reports false when the client has no
// live session.
func (st *SessionStore) Send(client game.ClientID, msg message.ServerMessage) bool {
	s, ok := st.byClient[client]
	if !ok || s.IsClosed() {
		return false
	}
	s.Send(msg)
	return true
}
