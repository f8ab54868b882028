package mailqueue

import "github.com/redis/go-redis/v9"

// Moves retries whose due time has passed onto the ready list, oldest first.
// KEYS: delayed zset, ready list. ARGV: now (ms), batch size.
const promoteDueScript = `
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, tonumber(ARGV[2]))
for _, job in ipairs(due) do
    redis.call('ZREM', KEYS[1], job)
    redis.call('RPUSH', KEYS[2], job)
end
return #due
`

// Returns in-flight jobs past their visibility deadline to the ready list.
// KEYS: in-flight zset, in-flight job hash, ready list.
// ARGV: now (ms), batch size, marker key prefix.
const recoverStaleScript = `
local stale = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, tonumber(ARGV[2]))
local recovered = 0
for _, id in ipairs(stale) do
    local job = redis.call('HGET', KEYS[2], id)
    redis.call('ZREM', KEYS[1], id)
    redis.call('HDEL', KEYS[2], id)
    redis.call('DEL', ARGV[3] .. id)
    if job then
        redis.call('RPUSH', KEYS[3], job)
        recovered = recovered + 1
    end
end
return recovered
`

var (
	promoteDue   = redis.NewScript(promoteDueScript)
	recoverStale = redis.NewScript(recoverStaleScript)
)
