package cache

import (
	"fmt"
	"time"

	"github.com/raushan728/studyhub-backend/internal/models"
	"github.com/vmihailenco/msgpack/v5"
)

// ConversationListTTL bounds staleness of the cached list; every
// mutation also invalidates it for the affected participants.
const ConversationListTTL = 2 * time.Minute

// ConversationCache caches each user's rendered conversation list. All
// methods are safe on a nil receiver so the app runs without Redis.
type ConversationCache struct {
	redis *RedisCache
}

func NewConversationCache(redis *RedisCache) *ConversationCache {
	return &ConversationCache{redis: redis}
}

func listKey(userID uint) string {
	return fmt.Sprintf("chatlist:%d", userID)
}

// GetList retrieves a cached conversation list for a user.
func (cc *ConversationCache) GetList(userID uint) ([]models.ConversationSummary, bool) {
	if cc == nil || cc.redis == nil {
		return nil, false
	}
	data, err := cc.redis.Get(listKey(userID))
	if err != nil || data == nil {
		return nil, false
	}

	var summaries []models.ConversationSummary
	if err := msgpack.Unmarshal(data, &summaries); err != nil {
		return nil, false
	}
	return summaries, true
}

// SetList caches a user's conversation list.
func (cc *ConversationCache) SetList(userID uint, summaries []models.ConversationSummary) error {
	if cc == nil || cc.redis == nil {
		return nil
	}
	data, err := msgpack.Marshal(summaries)
	if err != nil {
		return err
	}
	return cc.redis.Set(listKey(userID), data, ConversationListTTL)
}

// InvalidateList drops the cached list for one user.
func (cc *ConversationCache) InvalidateList(userID uint) error {
	if cc == nil || cc.redis == nil {
		return nil
	}
	return cc.redis.Delete(listKey(userID))
}

// InvalidateLists drops the cached list for every given participant,
// used after an append or read changes their summaries.
func (cc *ConversationCache) InvalidateLists(userIDs []uint) {
	if cc == nil || cc.redis == nil {
		return
	}
	for _, id := range userIDs {
		_ = cc.redis.Delete(listKey(id))
	}
}
