package session

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"lyrics-viewer/internal/song"
)

// Manager 按 id 管理所有会话
type Manager struct {
	mu         sync.Mutex
	sessions   map[string]*Session
	repo       song.Repository
	translator Translator
	opts       Options
}

func NewManager(repo song.Repository, translator Translator, opts Options) *Manager {
	return &Manager{
		sessions:   make(map[string]*Session),
		repo:       repo,
		translator: translator,
		opts:       opts,
	}
}

// Create 新建会话，id 为随机 uuid
func (m *Manager) Create(pub Publisher) *Session {
	s := New(uuid.NewString(), m.repo, m.translator, pub, m.opts)

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Remove 关闭并移除会话
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		s.Close()
	}
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close 停止所有会话的驱动后返回
func (m *Manager) Close() {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		all = append(all, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, s := range all {
		s.Close()
	}
	log.Info().Int("sessions", len(all)).Msg("All sessions closed")
}
