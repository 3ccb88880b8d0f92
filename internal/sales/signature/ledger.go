package signature

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"

	"github.com/odyssey-erp/odyssey-crm/internal/shared"
)

// ErrSubmissionInFlight is returned when the same token is being processed by
// another request.
var ErrSubmissionInFlight = fmt.Errorf("%w: signature submission already in progress", shared.ErrConflict)

const (
	ledgerPrefix    = "crm:sigtoken:"
	stateInFlight   = "inflight"
	stateConsumed   = "consumed"
	defaultInFlight = 2 * time.Minute
	defaultConsumed = 30 * 24 * time.Hour
)

// Ledger tracks signature tokens this service has seen used. Only
// fingerprints are stored.
type Ledger interface {
	// Reserve claims the token for one submission. It fails with
	// ErrInvalidToken when the token was consumed and ErrSubmissionInFlight
	// when another submission holds it.
	Reserve(ctx context.Context, token string) error
	// Consume marks the token used for good.
	Consume(ctx context.Context, token string) error
	// Release drops an in-flight reservation so the signer may retry.
	Release(ctx context.Context, token string) error
	// Consumed reports whether the token was used.
	Consumed(ctx context.Context, token string) (bool, error)
}

// Fingerprint hashes a token for storage and logs.
func Fingerprint(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:16])
}

// RedisLedger shares the ledger between service replicas.
type RedisLedger struct {
	client      *redis.Client
	inFlightTTL time.Duration
	consumedTTL time.Duration
}

// NewRedisLedger builds a ledger. Zero TTLs fall back to defaults.
func NewRedisLedger(client *redis.Client, inFlightTTL, consumedTTL time.Duration) *RedisLedger {
	if inFlightTTL <= 0 {
		inFlightTTL = defaultInFlight
	}
	if consumedTTL <= 0 {
		consumedTTL = defaultConsumed
	}
	return &RedisLedger{client: client, inFlightTTL: inFlightTTL, consumedTTL: consumedTTL}
}

func (l *RedisLedger) key(token string) string {
	return ledgerPrefix + Fingerprint(token)
}

func (l *RedisLedger) Reserve(ctx context.Context, token string) error {
	if l.client == nil {
		return errors.New("signature ledger: redis client not configured")
	}
	key := l.key(token)
	ok, err := l.client.SetNX(ctx, key, stateInFlight, l.inFlightTTL).Result()
	if err != nil {
		return fmt.Errorf("reserve token: %w", err)
	}
	if ok {
		return nil
	}
	state, err := l.client.Get(ctx, key).Result()
	switch {
	case errors.Is(err, redis.Nil):
		// The holder released or expired between the two calls.
		return ErrSubmissionInFlight
	case err != nil:
		return fmt.Errorf("read token state: %w", err)
	case state == stateConsumed:
		return fmt.Errorf("%w: already used", shared.ErrInvalidToken)
	default:
		return ErrSubmissionInFlight
	}
}

func (l *RedisLedger) Consume(ctx context.Context, token string) error {
	if l.client == nil {
		return errors.New("signature ledger: redis client not configured")
	}
	if err := l.client.Set(ctx, l.key(token), stateConsumed, l.consumedTTL).Err(); err != nil {
		return fmt.Errorf("consume token: %w", err)
	}
	return nil
}

func (l *RedisLedger) Release(ctx context.Context, token string) error {
	if l.client == nil {
		return nil
	}
	const script = `if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`
	key := l.key(token)
	if err := l.client.Eval(ctx, script, []string{key}, stateInFlight).Err(); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unknown command") {
			state, getErr := l.client.Get(ctx, key).Result()
			if getErr == nil && state == stateInFlight {
				return l.client.Del(ctx, key).Err()
			}
			return nil
		}
		return fmt.Errorf("release token: %w", err)
	}
	return nil
}

func (l *RedisLedger) Consumed(ctx context.Context, token string) (bool, error) {
	if l.client == nil {
		return false, nil
	}
	state, err := l.client.Get(ctx, l.key(token)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read token state: %w", err)
	}
	return state == stateConsumed, nil
}

// MemoryLedger is a process-local ledger for tests and single-instance runs.
type MemoryLedger struct {
	mu          sync.Mutex
	entries     map[string]memoryEntry
	inFlightTTL time.Duration
	now         func() time.Time
}

type memoryEntry struct {
	state   string
	expires time.Time
}

// NewMemoryLedger builds an in-process ledger.
func NewMemoryLedger(inFlightTTL time.Duration) *MemoryLedger {
	if inFlightTTL <= 0 {
		inFlightTTL = defaultInFlight
	}
	return &MemoryLedger{entries: make(map[string]memoryEntry), inFlightTTL: inFlightTTL, now: time.Now}
}

func (l *MemoryLedger) Reserve(ctx context.Context, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	fp := Fingerprint(token)
	if e, ok := l.entries[fp]; ok {
		if e.state == stateConsumed {
			return fmt.Errorf("%w: already used", shared.ErrInvalidToken)
		}
		if l.now().Before(e.expires) {
			return ErrSubmissionInFlight
		}
	}
	l.entries[fp] = memoryEntry{state: stateInFlight, expires: l.now().Add(l.inFlightTTL)}
	return nil
}

func (l *MemoryLedger) Consume(ctx context.Context, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[Fingerprint(token)] = memoryEntry{state: stateConsumed}
	return nil
}

func (l *MemoryLedger) Release(ctx context.Context, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	fp := Fingerprint(token)
	if e, ok := l.entries[fp]; ok && e.state == stateInFlight {
		delete(l.entries, fp)
	}
	return nil
}

func (l *MemoryLedger) Consumed(ctx context.Context, token string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[Fingerprint(token)]
	return ok && e.state == stateConsumed, nil
}
