package handoff

import (
	"context"
	"sync"

	"github.com/lumenweb/webchat-core/internal/session"
	"github.com/lumenweb/webchat-core/pkg/logging"
)

// Mode is who is expected to answer the conversation.
type Mode string

const (
	// ModeAI: the assistant answers.
	ModeAI Mode = "ai"
	// ModeOperator: a human operator answers; the AI only acknowledges.
	ModeOperator Mode = "operator"
)

// Reason identifies what caused a transition.
type Reason string

const (
	ReasonUserRequest     Reason = "user_request"     // explicit "talk to operator"
	ReasonIntentDetected  Reason = "intent_detected"  // keyword match on outgoing text
	ReasonServerConfirmed Reason = "server_confirmed" // handoff field in a chat response
	ReasonAdminMessage    Reason = "admin_message"    // polled operator reply
	ReasonUserDisabled    Reason = "user_disabled"    // explicit "operator off"
	ReasonReset           Reason = "reset"            // hard reset
)

// Machine is the two-state handoff machine for one session. Every
// transition is persisted immediately; the persisted value seeds the
// initial state on the next mount. Storage errors degrade to
// in-memory state only.
type Machine struct {
	store  session.Store
	logger *logging.Logger

	mu        sync.Mutex
	sessionID string
	mode      Mode
}

// NewMachine loads the persisted mode for sessionID, defaulting to ModeAI.
func NewMachine(ctx context.Context, store session.Store, sessionID string, logger *logging.Logger) *Machine {
	if logger == nil {
		logger = logging.Default()
	}
	m := &Machine{store: store, logger: logger, sessionID: sessionID, mode: ModeAI}
	if v, ok, err := store.Get(ctx, session.KeyHandoff(sessionID)); err == nil && ok && v == "1" {
		m.mode = ModeOperator
	} else if err != nil {
		logger.Debug("handoff: persisted mode unreadable, starting in ai mode", "error", err)
	}
	return m
}

// Mode returns the current mode.
func (m *Machine) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// Apply transitions to target for the given reason and returns the
// previous and new mode. A no-op transition (same mode) is still
// persisted and returned, so callers can treat Apply as idempotent.
func (m *Machine) Apply(ctx context.Context, reason Reason, target Mode) (prev, next Mode) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev = m.mode
	m.mode = target
	m.persistLocked(ctx)

	if prev != target {
		m.logger.Info("handoff: mode changed",
			"session_id", m.sessionID,
			"from", string(prev),
			"to", string(target),
			"reason", string(reason),
		)
	}
	return prev, target
}

// Rebind points the machine at a new session after a hard reset: mode
// goes back to ModeAI under the new session's key.
func (m *Machine) Rebind(ctx context.Context, sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessionID = sessionID
	m.mode = ModeAI
	m.persistLocked(ctx)
}

func (m *Machine) persistLocked(ctx context.Context) {
	v := "0"
	if m.mode == ModeOperator {
		v = "1"
	}
	if err := m.store.Set(ctx, session.KeyHandoff(m.sessionID), v); err != nil {
		m.logger.Debug("handoff: persist failed", "error", err)
	}
}
