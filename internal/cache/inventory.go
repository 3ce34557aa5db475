package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix     = "user:%d"
	CategoryKeyPrefix = "category:%s"
)

const (
	UserTTL     = 5 * time.Minute
	CategoryTTL = 10 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func CategoryKey(slug string) string {
	return fmt.Sprintf(CategoryKeyPrefix, slug)
}

// Invalidate drops key. It is a no-op without a client.
func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

func InvalidateCategory(ctx context.Context, slug string) {
	Invalidate(ctx, CategoryKey(slug))
}
