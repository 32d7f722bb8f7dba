package convlog

import (
	"sort"
	"strings"
	"sync"
)

// Log is the in-memory ordered conversation log for one widget mount.
// Local appends are append-only; the only mutations ever made are the
// incremental fill of an AI placeholder and the removal of an aborted
// placeholder.
type Log struct {
	mu       sync.Mutex
	messages []Message
	seen     map[string]struct{}

	// onAppend fires after each append while the panel is open; the UI
	// layer hooks its scroll-to-bottom here.
	onAppend func(Message)
}

// NewLog creates an empty log.
func NewLog() *Log {
	return &Log{seen: make(map[string]struct{})}
}

// OnAppend registers the append side-effect hook. Pass nil to clear.
func (l *Log) OnAppend(fn func(Message)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onAppend = fn
}

// Append adds a message to the tail and marks its id seen.
func (l *Log) Append(msg Message) {
	l.mu.Lock()
	l.messages = append(l.messages, msg)
	if msg.ID != "" {
		l.seen[msg.ID] = struct{}{}
	}
	hook := l.onAppend
	l.mu.Unlock()

	if hook != nil {
		hook(msg)
	}
}

// Messages returns a snapshot of the log.
func (l *Log) Messages() []Message {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// Len returns the number of messages.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.messages)
}

// UpdateText replaces the text of the message with the given id. Only
// the placeholder-fill path calls this.
func (l *Log) UpdateText(id, text string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.messages {
		if l.messages[i].ID == id {
			l.messages[i].Text = text
			return true
		}
	}
	return false
}

// Remove deletes the message with the given id. Only the abort path
// calls this; the id stays in the seen-set.
func (l *Log) Remove(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.messages {
		if l.messages[i].ID == id {
			l.messages = append(l.messages[:i], l.messages[i+1:]...)
			return true
		}
	}
	return false
}

// Seen reports whether an id was already appended.
func (l *Log) Seen(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, ok := l.seen[id]
	return ok
}

// Reset drops everything, empties the seen-set and seeds the log with a
// fresh welcome message.
func (l *Log) Reset(welcome Message) {
	l.mu.Lock()
	l.messages = l.messages[:0]
	l.seen = make(map[string]struct{})
	l.messages = append(l.messages, welcome)
	if welcome.ID != "" {
		l.seen[welcome.ID] = struct{}{}
	}
	hook := l.onAppend
	l.mu.Unlock()

	if hook != nil {
		hook(welcome)
	}
}

// PolledItem is a normalized poll feed entry.
type PolledItem struct {
	ID        string
	Role      string
	Text      string
	Timestamp int64
	Admin     bool
}

// MergePolled folds a poll page into the log. Non-assistant roles and
// empty texts are dropped. maxTS is the maximum timestamp across all
// valid items, including already-seen duplicates, so the caller can
// advance its cursor even from an all-duplicate page. Items whose id is
// new are appended in timestamp order, tagged SourceAdmin when the feed
// marks an operator origin.
func (l *Log) MergePolled(items []PolledItem) (appended []Message, maxTS int64) {
	valid := make([]PolledItem, 0, len(items))
	for _, it := range items {
		if it.Role != "assistant" || strings.TrimSpace(it.Text) == "" {
			continue
		}
		if it.Timestamp > maxTS {
			maxTS = it.Timestamp
		}
		valid = append(valid, it)
	}
	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].Timestamp < valid[j].Timestamp
	})

	for _, it := range valid {
		if it.ID != "" && l.Seen(it.ID) {
			continue
		}
		src := SourceAI
		if it.Admin {
			src = SourceAdmin
		}
		msg := Message{
			ID:        it.ID,
			Role:      RoleAI,
			Text:      it.Text,
			Timestamp: it.Timestamp,
			Source:    src,
			Kind:      KindNormal,
		}
		l.Append(msg)
		appended = append(appended, msg)
	}
	return appended, maxTS
}
