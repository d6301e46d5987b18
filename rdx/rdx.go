package rdx

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
)

var Conn = redis.NewClient(&redis.Options{
	Addr: redisAddr(),
})

func redisAddr() string {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return addr
	}
	return "localhost:6379"
}

func unreadKey(userID string) string {
	return fmt.Sprintf("notif:%s:unread", userID)
}

// IncrUnread bumps the cached unread-notification counter for a user.
func IncrUnread(ctx context.Context, userID string) error {
	return Conn.Incr(ctx, unreadKey(userID)).Err()
}

// ResetUnread clears the counter when the user marks everything read.
func ResetUnread(ctx context.Context, userID string) error {
	return Conn.Del(ctx, unreadKey(userID)).Err()
}

// DecrUnread lowers the counter, clamping at zero so replayed acks cannot
// drive it negative.
func DecrUnread(ctx context.Context, userID string) error {
	n, err := Conn.Decr(ctx, unreadKey(userID)).Result()
	if err != nil {
		return err
	}
	if n < 0 {
		return Conn.Set(ctx, unreadKey(userID), 0, 0).Err()
	}
	return nil
}

// GetUnread returns the cached counter. ok is false when no counter exists,
// letting the caller rebuild from the document store instead of reporting a
// stale zero.
func GetUnread(ctx context.Context, userID string) (int64, bool, error) {
	n, err := Conn.Get(ctx, unreadKey(userID)).Int64()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	if n < 0 {
		n = 0
	}
	return n, true, nil
}

// SetUnread seeds the counter after a rebuild from the store.
func SetUnread(ctx context.Context, userID string, n int64) error {
	return Conn.Set(ctx, unreadKey(userID), n, 0).Err()
}
