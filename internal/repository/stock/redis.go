package stock

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"storecheckout/internal/clock"
	"storecheckout/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	itemKeyPrefix   = "stock:holds:"
	holderKeyPrefix = "stock:holder:"
	// keys outlive their latest hold so a late sweep still sees them.
	keyGrace = time.Minute
)

// upsertHoldScript checks and writes one hold atomically.
// KEYS[1] = item hash (field holder -> "qty:expiresAtMillis")
// KEYS[2] = holder set of item ids
// ARGV[1] = holder id, ARGV[2] = item id, ARGV[3] = quantity
// ARGV[4] = available, ARGV[5] = now millis, ARGV[6] = expires millis
// ARGV[7] = key grace millis
var upsertHoldScript = redis.NewScript(`
local holder = ARGV[1]
local qty = tonumber(ARGV[3])
local available = tonumber(ARGV[4])
local now = tonumber(ARGV[5])
local expires = tonumber(ARGV[6])
local grace = tonumber(ARGV[7])

local reserved = 0
local latest = expires
local entries = redis.call("HGETALL", KEYS[1])
for i = 1, #entries, 2 do
    local field = entries[i]
    local value = entries[i + 1]
    local sep = string.find(value, ":", 1, true)
    local q = tonumber(string.sub(value, 1, sep - 1))
    local exp = tonumber(string.sub(value, sep + 1))
    if exp <= now then
        redis.call("HDEL", KEYS[1], field)
    elseif field ~= holder then
        reserved = reserved + q
        if exp > latest then
            latest = exp
        end
    end
end

if available - reserved < qty then
    return 0
end

redis.call("HSET", KEYS[1], holder, qty .. ":" .. expires)
redis.call("PEXPIRE", KEYS[1], math.max(latest - now, 0) + grace)

redis.call("SADD", KEYS[2], ARGV[2])
local want = math.max(expires - now, 0) + grace
if redis.call("PTTL", KEYS[2]) < want then
    redis.call("PEXPIRE", KEYS[2], want)
end
return 1
`)

// reservedScript sums active holds on one item.
// KEYS[1] = item hash, ARGV[1] = excluded holder, ARGV[2] = now millis
var reservedScript = redis.NewScript(`
local exclude = ARGV[1]
local now = tonumber(ARGV[2])
local reserved = 0
local entries = redis.call("HGETALL", KEYS[1])
for i = 1, #entries, 2 do
    local value = entries[i + 1]
    local sep = string.find(value, ":", 1, true)
    local exp = tonumber(string.sub(value, sep + 1))
    if exp > now and entries[i] ~= exclude then
        reserved = reserved + tonumber(string.sub(value, 1, sep - 1))
    end
end
return reserved
`)

// deleteHoldsScript drops every hold recorded in the holder set.
// KEYS[1] = holder set, ARGV[1] = holder id, ARGV[2] = item key prefix
var deleteHoldsScript = redis.NewScript(`
local items = redis.call("SMEMBERS", KEYS[1])
local removed = 0
for _, item in ipairs(items) do
    removed = removed + redis.call("HDEL", ARGV[2] .. item, ARGV[1])
end
redis.call("DEL", KEYS[1])
return removed
`)

// pruneScript removes expired fields of one item hash.
// KEYS[1] = item hash, ARGV[1] = now millis
var pruneScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local removed = 0
local entries = redis.call("HGETALL", KEYS[1])
for i = 1, #entries, 2 do
    local value = entries[i + 1]
    local sep = string.find(value, ":", 1, true)
    if tonumber(string.sub(value, sep + 1)) <= now then
        redis.call("HDEL", KEYS[1], entries[i])
        removed = removed + 1
    end
end
return removed
`)

type redisLedger struct {
	client redis.UniversalClient
	clock  clock.Clock
	logger *log.Logger
}

func NewRedis(client redis.UniversalClient, clk clock.Clock, logger *log.Logger) Ledger {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &redisLedger{client: client, clock: clk, logger: logger}
}

func (l *redisLedger) ReservedQuantity(ctx context.Context, itemID, excludeHolderID string) (int, error) {
	n, err := reservedScript.Run(ctx, l.client, []string{itemKeyPrefix + itemID}, excludeHolderID, l.clock.Now().UnixMilli()).Int()
	if err != nil {
		return 0, fmt.Errorf("redis reserved quantity: %w", err)
	}
	return n, nil
}

func (l *redisLedger) UpsertHold(ctx context.Context, req HoldRequest) error {
	if err := validate(req); err != nil {
		return err
	}
	now := l.clock.Now()
	keys := []string{itemKeyPrefix + req.ItemID, holderKeyPrefix + req.HolderID}
	ok, err := upsertHoldScript.Run(ctx, l.client, keys,
		req.HolderID, req.ItemID, req.Quantity, req.Available,
		now.UnixMilli(), now.Add(req.TTL).UnixMilli(), keyGrace.Milliseconds(),
	).Int()
	if err != nil {
		return fmt.Errorf("redis upsert hold: %w", err)
	}
	if ok != 1 {
		l.logger.Printf("stock ledger: hold rejected holder=%s item=%s qty=%d available=%d", req.HolderID, req.ItemID, req.Quantity, req.Available)
		return domain.ErrInsufficientStock
	}
	return nil
}

func (l *redisLedger) DeleteHolds(ctx context.Context, holderID string) error {
	n, err := deleteHoldsScript.Run(ctx, l.client, []string{holderKeyPrefix + holderID}, holderID, itemKeyPrefix).Int()
	if err != nil {
		return fmt.Errorf("redis delete holds: %w", err)
	}
	if n > 0 {
		l.logger.Printf("stock ledger: released holder=%s rows=%d", holderID, n)
	}
	return nil
}

func (l *redisLedger) SweepExpired(ctx context.Context) (int, error) {
	now := l.clock.Now().UnixMilli()
	removed := 0
	iter := l.client.Scan(ctx, 0, itemKeyPrefix+"*", 200).Iterator()
	for iter.Next(ctx) {
		n, err := pruneScript.Run(ctx, l.client, []string{iter.Val()}, now).Int()
		if err != nil {
			return removed, fmt.Errorf("redis prune %s: %w", iter.Val(), err)
		}
		removed += n
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("redis scan holds: %w", err)
	}
	return removed, nil
}
