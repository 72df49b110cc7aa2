package util

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ariebrainware/doctor-appointment/config"
	"github.com/redis/go-redis/v9"
)

func sessionKey(token string) string {
	return fmt.Sprintf("session:%s", token)
}

func subjectSetKey(roleID uint32, subjectID uint) string {
	return fmt.Sprintf("sessions:%d:%d", roleID, subjectID)
}

// CacheSession stores session:<token> = "<subject>:<role>" with the token's
// remaining lifetime and records the token in the subject's set.
// It is a no-op when Redis is not configured.
func CacheSession(ctx context.Context, token string, subjectID uint, roleID uint32, ttl time.Duration) error {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return nil
	}
	value := fmt.Sprintf("%d:%d", subjectID, roleID)
	if err := rdb.Set(ctx, sessionKey(token), value, ttl).Err(); err != nil {
		return err
	}
	return rdb.SAdd(ctx, subjectSetKey(roleID, subjectID), token).Err()
}

// LookupCachedSession returns the subject and role cached for token.
// found is false on a cache miss or when Redis is not configured.
func LookupCachedSession(ctx context.Context, token string) (subjectID uint, roleID uint32, found bool, err error) {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return 0, 0, false, nil
	}
	val, err := rdb.Get(ctx, sessionKey(token)).Result()
	if err == redis.Nil {
		return 0, 0, false, nil
	}
	if err != nil {
		return 0, 0, false, err
	}

	parts := strings.SplitN(val, ":", 2)
	if len(parts) != 2 {
		return 0, 0, false, fmt.Errorf("malformed session cache value %q", val)
	}
	uid, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return 0, 0, false, fmt.Errorf("malformed session cache value %q", val)
	}
	rid, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return 0, 0, false, fmt.Errorf("malformed session cache value %q", val)
	}
	return uint(uid), uint32(rid), true, nil
}

// removeFromSetScript drops a token and deletes the set once it is empty.
const removeFromSetScript = `
	local removed = redis.call('SREM', KEYS[1], ARGV[1])
	if removed > 0 then
		if redis.call('SCARD', KEYS[1]) == 0 then
			redis.call('DEL', KEYS[1])
		end
	end
	return removed
`

// RemoveCachedSession forgets a single session token.
func RemoveCachedSession(ctx context.Context, token string, subjectID uint, roleID uint32) error {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return nil
	}
	if err := rdb.Del(ctx, sessionKey(token)).Err(); err != nil {
		return err
	}
	return rdb.Eval(ctx, removeFromSetScript, []string{subjectSetKey(roleID, subjectID)}, token).Err()
}

// InvalidateSubjectSessions deletes every cached token of the subject.
func InvalidateSubjectSessions(ctx context.Context, subjectID uint, roleID uint32) error {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return nil
	}
	setKey := subjectSetKey(roleID, subjectID)
	members, err := rdb.SMembers(ctx, setKey).Result()
	if err != nil && err != redis.Nil {
		return err
	}
	for _, tok := range members {
		_ = rdb.Del(ctx, sessionKey(tok)).Err()
	}
	return rdb.Del(ctx, setKey).Err()
}
