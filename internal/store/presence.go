package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

// ActiveUser 某位置/日期下的一个活跃查看者
type ActiveUser struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	LastSeen    time.Time `json:"last_seen"`
	CurrentRoom string    `json:"current_room,omitempty"`
	DetailOpen  bool      `json:"detail_open"`
}

// PresenceStore 活跃查看者集合（Redis hash，按位置+日期一个 key）
// Best-effort presence data, not source of truth: entries expire with the
// key TTL and stale fields are pruned on read.
type PresenceStore struct {
	c          *redis.Client
	staleAfter time.Duration
	keyTTL     time.Duration
}

func NewPresenceStore(c *redis.Client, staleAfter, keyTTL time.Duration) *PresenceStore {
	return &PresenceStore{c: c, staleAfter: staleAfter, keyTTL: keyTTL}
}

func presenceKey(locationID int64, date string) string {
	return fmt.Sprintf("linencount:active:%d:%s", locationID, strings.ReplaceAll(date, "-", ""))
}

// Touch 记录/刷新一个查看者的活跃状态
func (s *PresenceStore) Touch(ctx context.Context, locationID int64, date string, user ActiveUser) error {
	user.LastSeen = time.Now()
	payload, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal presence entry: %w", err)
	}

	key := presenceKey(locationID, date)
	pipe := s.c.Pipeline()
	pipe.HSet(ctx, key, user.UserID, payload)
	pipe.Expire(ctx, key, s.keyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record presence: %w", err)
	}
	return nil
}

// ActiveUsers 返回位置/日期下的活跃查看者，剔除过期条目和 excludeUserID
func (s *PresenceStore) ActiveUsers(ctx context.Context, locationID int64, date, excludeUserID string) ([]ActiveUser, error) {
	key := presenceKey(locationID, date)
	entries, err := s.c.HGetAll(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return []ActiveUser{}, nil
		}
		return nil, fmt.Errorf("failed to read presence set: %w", err)
	}

	cutoff := time.Now().Add(-s.staleAfter)
	users := []ActiveUser{}
	var stale []string

	for userID, raw := range entries {
		var user ActiveUser
		if err := json.Unmarshal([]byte(raw), &user); err != nil {
			stale = append(stale, userID)
			continue
		}
		if user.LastSeen.Before(cutoff) {
			stale = append(stale, userID)
			continue
		}
		if userID == excludeUserID {
			continue
		}
		users = append(users, user)
	}

	if len(stale) > 0 {
		_ = s.c.HDel(ctx, key, stale...).Err()
	}
	return users, nil
}
