package bot

import (
	"sync"
	"time"

	"auditchat/pkg/domain"
)

// contextMaxAge bounds how long a previous turn stays usable for follow-up
// questions.
const contextMaxAge = 15 * time.Minute

// ContextStore keeps the previous turn's NLP results per channel so
// follow-ups like "what about yesterday?" can inherit the user reference.
// Safe for concurrent use; same-key races are last-write-wins.
type ContextStore struct {
	mu       sync.RWMutex
	contexts map[string]domain.ConversationContext
	maxAge   time.Duration
}

// NewContextStore constructs an empty store.
func NewContextStore() *ContextStore {
	return &ContextStore{
		contexts: make(map[string]domain.ConversationContext),
		maxAge:   contextMaxAge,
	}
}

// Get returns the stored context for a channel if it is still fresh.
func (s *ContextStore) Get(channelID string, now time.Time) (domain.ConversationContext, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.contexts[channelID]
	if !ok || now.Sub(stored.UpdatedAt) > s.maxAge {
		return domain.ConversationContext{}, false
	}
	return stored, true
}

// Put stores the current turn's context and lazily evicts stale entries so
// the map stays bounded by active channels.
func (s *ContextStore) Put(channelID string, conv domain.ConversationContext) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, stored := range s.contexts {
		if conv.UpdatedAt.Sub(stored.UpdatedAt) > s.maxAge {
			delete(s.contexts, key)
		}
	}
	s.contexts[channelID] = conv
}
