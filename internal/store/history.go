package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/notification-pipeline/internal/notify"
)

const notificationTTL = 7 * 24 * time.Hour

var ErrNotFound = errors.New("notification not found")

// History persists each notification by id for a multi-day audit window and
// keeps a capped most-recent-first list of ids per user. Both writes are
// best effort; the caller logs failures and moves on.
type History struct {
	client  *redis.Client
	userCap int64
}

func NewHistory(client *redis.Client, userCap int64) *History {
	return &History{client: client, userCap: userCap}
}

func notificationKey(id string) string {
	return "notification:" + id
}

func userKey(userID string) string {
	return fmt.Sprintf("user:%s:notifications", userID)
}

func (h *History) Save(ctx context.Context, n notify.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification %s: %w", n.ID, err)
	}
	if err := h.client.Set(ctx, notificationKey(n.ID), body, notificationTTL).Err(); err != nil {
		return fmt.Errorf("store notification %s: %w", n.ID, err)
	}

	userID, _ := n.Payload["userId"].(string)
	if userID == "" {
		return nil
	}
	_, err = h.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, userKey(userID), n.ID)
		pipe.LTrim(ctx, userKey(userID), 0, h.userCap-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("store user history for %s: %w", userID, err)
	}
	return nil
}

func (h *History) Get(ctx context.Context, id string) (notify.Notification, error) {
	body, err := h.client.Get(ctx, notificationKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return notify.Notification{}, ErrNotFound
	}
	if err != nil {
		return notify.Notification{}, fmt.Errorf("get notification %s: %w", id, err)
	}
	var n notify.Notification
	if err := json.Unmarshal(body, &n); err != nil {
		return notify.Notification{}, fmt.Errorf("decode notification %s: %w", id, err)
	}
	return n, nil
}

// ListUser resolves a user's recent notification ids to notifications,
// skipping ids whose audit record has already expired.
func (h *History) ListUser(ctx context.Context, userID string) ([]notify.Notification, error) {
	ids, err := h.client.LRange(ctx, userKey(userID), 0, h.userCap-1).Result()
	if err != nil {
		return nil, fmt.Errorf("list user %s history: %w", userID, err)
	}
	out := make([]notify.Notification, 0, len(ids))
	for _, id := range ids {
		n, err := h.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// RecentDashboard returns the dashboard's capped recent-notifications list
// as raw JSON records.
func (h *History) RecentDashboard(ctx context.Context, key string, limit int64) ([]json.RawMessage, error) {
	entries, err := h.client.LRange(ctx, key, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", key, err)
	}
	out := make([]json.RawMessage, 0, len(entries))
	for _, e := range entries {
		out = append(out, json.RawMessage(e))
	}
	return out, nil
}
