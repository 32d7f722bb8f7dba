package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lumenweb/webchat-core/pkg/logging"
)

// Identity owns the session id and lead id for one widget mount.
// Storage failures never surface to callers: the identity degrades to
// process-lifetime values and logs at debug, matching the widget's
// private-browsing behavior.
type Identity struct {
	store  Store
	logger *logging.Logger

	mu        sync.Mutex
	sessionID string
	leadID    string
	leadRead  bool
}

// NewIdentity creates an identity backed by store.
func NewIdentity(store Store, logger *logging.Logger) *Identity {
	if logger == nil {
		logger = logging.Default()
	}
	return &Identity{store: store, logger: logger}
}

// SessionID returns the persisted session id, creating and persisting a
// new one if none exists. Calling it twice without Clear returns the
// same id.
func (i *Identity) SessionID(ctx context.Context) string {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.sessionID != "" {
		return i.sessionID
	}

	if v, ok, err := i.store.Get(ctx, KeySessionID); err == nil && ok && v != "" {
		i.sessionID = v
		return v
	} else if err != nil {
		i.logger.Debug("session: store read failed, using ephemeral id", "error", err)
	}

	id := newSessionID()
	i.sessionID = id
	if err := i.store.Set(ctx, KeySessionID, id); err != nil {
		i.logger.Debug("session: store write failed, id not persisted", "error", err)
	}
	return id
}

// LeadID returns the persisted lead id, or "" when the backend has not
// issued one yet.
func (i *Identity) LeadID(ctx context.Context) string {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.leadRead {
		return i.leadID
	}
	if v, ok, err := i.store.Get(ctx, KeyLeadID); err == nil && ok {
		i.leadID = v
	} else if err != nil {
		i.logger.Debug("session: lead read failed", "error", err)
	}
	i.leadRead = true
	return i.leadID
}

// SetLeadID persists a backend-issued lead id. Empty or whitespace input
// is a no-op.
func (i *Identity) SetLeadID(ctx context.Context, id string) {
	if strings.TrimSpace(id) == "" {
		return
	}
	i.mu.Lock()
	defer i.mu.Unlock()

	i.leadID = id
	i.leadRead = true
	if err := i.store.Set(ctx, KeyLeadID, id); err != nil {
		i.logger.Debug("session: lead write failed", "error", err)
	}
}

// Clear removes both ids from storage and from the cache. Only the hard
// reset path calls this; the next SessionID call mints a fresh id.
func (i *Identity) Clear(ctx context.Context) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.sessionID = ""
	i.leadID = ""
	i.leadRead = true
	if err := i.store.Delete(ctx, KeySessionID); err != nil {
		i.logger.Debug("session: session delete failed", "error", err)
	}
	if err := i.store.Delete(ctx, KeyLeadID); err != nil {
		i.logger.Debug("session: lead delete failed", "error", err)
	}
}

// newSessionID prefers a random UUID and falls back to a manually
// composed random-hex + timestamp string.
func newSessionID() string {
	if id, err := uuid.NewRandom(); err == nil {
		return id.String()
	}
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return "sess-" + strconv.FormatInt(time.Now().UnixNano(), 16)
	}
	return hex.EncodeToString(b) + "-" + strconv.FormatInt(time.Now().UnixMilli(), 16)
}
