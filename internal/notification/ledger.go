package notification

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Ledger remembers which tickets already had their confirmation sent, so a
// redelivered purchase event does not mail the user twice.
type Ledger interface {
	Sent(ctx context.Context, ticketID string) (bool, error)
	MarkSent(ctx context.Context, ticketID string) error
}

// DefaultLedgerTTL bounds how long a sent marker is kept.
const DefaultLedgerTTL = 7 * 24 * time.Hour

// RedisLedger stores sent markers as expiring Redis keys.
type RedisLedger struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisLedger(rdb *redis.Client, ttl time.Duration) *RedisLedger {
	if ttl <= 0 {
		ttl = DefaultLedgerTTL
	}
	return &RedisLedger{rdb: rdb, ttl: ttl}
}

func ledgerKey(ticketID string) string { return "notification:sent:" + ticketID }

func (l *RedisLedger) Sent(ctx context.Context, ticketID string) (bool, error) {
	n, err := l.rdb.Exists(ctx, ledgerKey(ticketID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (l *RedisLedger) MarkSent(ctx context.Context, ticketID string) error {
	return l.rdb.SetNX(ctx, ledgerKey(ticketID), time.Now().UTC().Format(time.RFC3339), l.ttl).Err()
}
