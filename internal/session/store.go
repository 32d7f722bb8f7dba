package session

import (
	"context"
	"errors"
	"fmt"
)

// ErrInvalidDriver is returned by NewStore for unknown driver names.
var ErrInvalidDriver = errors.New("session: invalid store driver")

// Store is durable client-side state: session id, lead id, handoff flag
// and poll cursors all live here. Implementations must be safe for
// concurrent use. A Get miss is (value "", ok false), not an error.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Driver names accepted by NewStore.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverRedis  = "redis"
)

// Config selects and configures a Store driver.
type Config struct {
	Driver   string
	FilePath string
	Redis    RedisOptions
}

// NewStore builds a Store from config.
func NewStore(cfg Config) (Store, error) {
	switch cfg.Driver {
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverFile:
		return NewFileStore(cfg.FilePath)
	case DriverRedis:
		return NewRedisStore(cfg.Redis)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidDriver, cfg.Driver)
	}
}

// Storage keys. Logical names only; drivers may prefix them.
const (
	KeySessionID = "chat_session_id"
	KeyLeadID    = "chat_lead_id"
)

// KeyHandoff returns the per-session handoff flag key.
func KeyHandoff(sessionID string) string {
	return "chat_handoff:" + sessionID
}

// KeyLastSeen returns the per-lead poll cursor key.
func KeyLastSeen(leadID string) string {
	return "chat_last_seen:" + leadID
}
