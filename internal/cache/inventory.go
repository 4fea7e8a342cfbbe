package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix   = "user:%s"
	ThreadKeyPrefix = "thread:%s"
)

const (
	UserTTL   = 5 * time.Minute
	ThreadTTL = 2 * time.Minute
)

func UserKey(userID string) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func ThreadKey(threadID string) string {
	return fmt.Sprintf(ThreadKeyPrefix, threadID)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, userID string) {
	Invalidate(ctx, UserKey(userID))
}

func InvalidateThread(ctx context.Context, threadID string) {
	Invalidate(ctx, ThreadKey(threadID))
}
