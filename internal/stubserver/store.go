package stubserver

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lumenweb/webchat-core/internal/chatapi"
)

// storedMessage is one message in a stub conversation.
type storedMessage struct {
	ID        string
	Role      string
	Content   string
	Timestamp int64
	Channel   string // "admin" for operator replies
}

// conversation is the stub's durable record for one widget session.
type conversation struct {
	ID            string
	SessionID     string
	LeadID        string
	Lang          string
	Page          string
	Handoff       bool
	LastMessageAt int64
	Messages      []storedMessage
}

// memoryStore keeps everything in process memory. Good enough for
// development and tests; the real backend is out of scope here.
type memoryStore struct {
	mu     sync.Mutex
	bySess map[string]*conversation
	byLead map[string]*conversation
	byID   map[string]*conversation
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		bySess: make(map[string]*conversation),
		byLead: make(map[string]*conversation),
		byID:   make(map[string]*conversation),
	}
}

// findOrCreate returns the conversation for a session, assigning a lead
// id on first contact.
func (s *memoryStore) findOrCreate(sessionID, lang, page string) *conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	if conv, ok := s.bySess[sessionID]; ok {
		return conv
	}
	conv := &conversation{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		LeadID:    uuid.New().String(),
		Lang:      lang,
		Page:      page,
	}
	s.bySess[sessionID] = conv
	s.byLead[conv.LeadID] = conv
	s.byID[conv.ID] = conv
	return conv
}

func (s *memoryStore) byLeadID(leadID string) (*conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.byLead[leadID]
	return conv, ok
}

func (s *memoryStore) byConvID(id string) (*conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.byID[id]
	return conv, ok
}

func (s *memoryStore) list() []chatapi.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]chatapi.Conversation, 0, len(s.byID))
	for _, conv := range s.byID {
		out = append(out, chatapi.Conversation{
			ID:            conv.ID,
			SessionID:     conv.SessionID,
			LeadID:        conv.LeadID,
			Lang:          conv.Lang,
			Channel:       "web",
			Page:          conv.Page,
			Handoff:       conv.Handoff,
			LastMessageAt: conv.LastMessageAt,
		})
	}
	return out
}

// append adds a message under the store lock and bumps LastMessageAt.
func (s *memoryStore) append(conv *conversation, role, content, channel string) storedMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := storedMessage{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UnixMilli(),
		Channel:   channel,
	}
	conv.Messages = append(conv.Messages, msg)
	conv.LastMessageAt = msg.Timestamp
	return msg
}

func (s *memoryStore) setHandoff(conv *conversation, handoff bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv.Handoff = handoff
}

// assistantAfter returns assistant messages newer than after.
func (s *memoryStore) assistantAfter(conv *conversation, after int64) []storedMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []storedMessage
	for _, m := range conv.Messages {
		if m.Role == "assistant" && m.Timestamp > after {
			out = append(out, m)
		}
	}
	return out
}

func (s *memoryStore) thread(conv *conversation) []chatapi.AdminMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]chatapi.AdminMessage, 0, len(conv.Messages))
	for _, m := range conv.Messages {
		out = append(out, chatapi.AdminMessage{
			ID:        m.ID,
			Role:      m.Role,
			Content:   m.Content,
			Timestamp: m.Timestamp,
			Channel:   m.Channel,
		})
	}
	return out
}
