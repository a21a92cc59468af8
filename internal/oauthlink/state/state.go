// Package state keeps the single-use OAuth state tokens that tie a provider
// callback to the session that started the consent flow.
package state

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound covers unknown, already used and expired tokens alike.
var ErrNotFound = errors.New("state not found or expired")

// State is stored between the consent redirect and the callback.
type State struct {
	Token     string    `json:"token"`
	UserID    uuid.UUID `json:"user_id"`
	Provider  string    `json:"provider"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Store interface {
	Create(ctx context.Context, s *State) error
	// GetAndDelete consumes a token; a second call for the same token fails.
	GetAndDelete(ctx context.Context, token string) (*State, error)
}

// GenerateToken returns 32 random bytes, base64url encoded without padding.
func GenerateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func validate(s *State) error {
	if s.Token == "" {
		return fmt.Errorf("state token is required")
	}
	if s.UserID == uuid.Nil {
		return fmt.Errorf("user ID is required")
	}
	if s.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	return nil
}

// RedisStore implements Store on Redis with key expiry.
type RedisStore struct {
	client     *redis.Client
	keyPrefix  string
	expiration time.Duration
}

func NewRedisStore(client *redis.Client, keyPrefix string, expiration time.Duration) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = "oauth:state:"
	}
	if expiration <= 0 {
		expiration = 10 * time.Minute
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix, expiration: expiration}
}

func (r *RedisStore) Create(ctx context.Context, s *State) error {
	if err := validate(s); err != nil {
		return err
	}
	now := time.Now()
	s.CreatedAt = now
	s.ExpiresAt = now.Add(r.expiration)

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	if err := r.client.Set(ctx, r.keyPrefix+s.Token, data, r.expiration).Err(); err != nil {
		return fmt.Errorf("failed to store state in redis: %w", err)
	}
	return nil
}

var getAndDelete = redis.NewScript(`
local value = redis.call("GET", KEYS[1])
if value then
	redis.call("DEL", KEYS[1])
	return value
end
return nil
`)

func (r *RedisStore) GetAndDelete(ctx context.Context, token string) (*State, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	result, err := getAndDelete.Run(ctx, r.client, []string{r.keyPrefix + token}).Text()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get and delete state: %w", err)
	}

	var s State
	if err := json.Unmarshal([]byte(result), &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	if time.Now().After(s.ExpiresAt) {
		return nil, ErrNotFound
	}
	return &s, nil
}

// MemoryStore is a process-local Store for tests and single-instance
// development setups.
type MemoryStore struct {
	mu         sync.Mutex
	expiration time.Duration
	now        func() time.Time
	states     map[string]State
}

func NewMemoryStore(expiration time.Duration) *MemoryStore {
	if expiration <= 0 {
		expiration = 10 * time.Minute
	}
	return &MemoryStore{expiration: expiration, now: time.Now, states: map[string]State{}}
}

func (m *MemoryStore) Create(_ context.Context, s *State) error {
	if err := validate(s); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s.CreatedAt = m.now()
	s.ExpiresAt = s.CreatedAt.Add(m.expiration)
	m.states[s.Token] = *s
	return nil
}

func (m *MemoryStore) GetAndDelete(_ context.Context, token string) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[token]
	if !ok {
		return nil, ErrNotFound
	}
	delete(m.states, token)
	if m.now().After(s.ExpiresAt) {
		return nil, ErrNotFound
	}
	return &s, nil
}
