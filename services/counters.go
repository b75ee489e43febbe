package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"mindcare/models"

	"github.com/go-redis/redis/v8"
)

const (
	UNREAD_KEY_PREFIX = "unread:" // Префикс ключей кеша непрочитанных
	UNREAD_CACHE_TTL  = 5 * time.Minute
)

func unreadCacheKey(userID int64) string {
	return fmt.Sprintf("%s%d", UNREAD_KEY_PREFIX, userID)
}

// GetCachedUnreadCounts возвращает счетчики из Redis, redis.Nil при промахе
func GetCachedUnreadCounts(ctx context.Context, userID int64) (*models.UnreadCounts, error) {
	if RedisClient == nil {
		return nil, fmt.Errorf("redis not available")
	}
	val, err := RedisClient.Get(ctx, unreadCacheKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	var counts models.UnreadCounts
	if err := json.Unmarshal([]byte(val), &counts); err != nil {
		return nil, err
	}
	return &counts, nil
}

// CacheUnreadCounts кеширует счетчики с TTL
func CacheUnreadCounts(ctx context.Context, userID int64, counts *models.UnreadCounts) {
	if RedisClient == nil {
		return
	}
	data, err := json.Marshal(counts)
	if err != nil {
		return
	}
	RedisClient.Set(ctx, unreadCacheKey(userID), data, UNREAD_CACHE_TTL)
}

// InvalidateUnreadCounts сбрасывает кеш после отправки или прочтения
func InvalidateUnreadCounts(ctx context.Context, userID int64) {
	if RedisClient == nil {
		return
	}
	RedisClient.Del(ctx, unreadCacheKey(userID))
}

// IsCacheMiss сообщает, был ли промах кеша
func IsCacheMiss(err error) bool {
	return err == redis.Nil
}
