package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	queueKey        = "nudge:queue"
	entryKeyPattern = "nudge:entry:%d"

	// entryTTL bounds how long an orphaned payload can outlive its queue
	// member if a crash lands between the two deletes.
	entryTTL = 72 * time.Hour
)

// RedisStore keeps the reminder queue in a sorted set scored by fire time,
// with one JSON payload per user beside it.
type RedisStore struct {
	client *redis.Client
	log    *slog.Logger
}

// NewRedisStore initializes a Redis-backed Store implementation.
func NewRedisStore(client *redis.Client, log *slog.Logger) Store {
	if log == nil {
		log = slog.Default()
	}

	return &RedisStore{
		client: client,
		log:    log,
	}
}

// Schedule inserts or replaces the user's pending reminder. The queue
// member and the payload are written in one transaction.
func (s *RedisStore) Schedule(ctx context.Context, entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode schedule entry: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, queueKey, redis.Z{
		Score:  float64(entry.FireAt.UTC().Unix()),
		Member: queueMember(entry.UserID),
	})
	pipe.Set(ctx, entryKey(entry.UserID), data, entryTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Error("failed to schedule reminder", "user_id", entry.UserID, "error", err)
		return fmt.Errorf("schedule reminder: %w", err)
	}

	return nil
}

// Cancel removes the user's pending reminder, if any.
func (s *RedisStore) Cancel(ctx context.Context, userID int64) error {
	pipe := s.client.TxPipeline()
	pipe.ZRem(ctx, queueKey, queueMember(userID))
	pipe.Del(ctx, entryKey(userID))

	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Error("failed to cancel reminder", "user_id", userID, "error", err)
		return fmt.Errorf("cancel reminder: %w", err)
	}

	return nil
}

// Pending returns the user's queued entry or nil when none exists.
func (s *RedisStore) Pending(ctx context.Context, userID int64) (*Entry, error) {
	if err := s.client.ZScore(ctx, queueKey, queueMember(userID)).Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("check pending reminder: %w", err)
	}

	data, err := s.client.Get(ctx, entryKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load pending reminder: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		return nil, fmt.Errorf("decode pending reminder: %w", err)
	}

	return &entry, nil
}

// PopDue claims due entries. Removing the queue member is the claim: ZRem
// returns 1 for exactly one caller, so duplicated delivery cannot happen
// even with several dispatchers polling.
func (s *RedisStore) PopDue(ctx context.Context, now time.Time, limit int) ([]*Entry, error) {
	members, err := s.client.ZRangeByScore(ctx, queueKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.UTC().Unix(), 10),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("range due reminders: %w", err)
	}

	var entries []*Entry
	for _, member := range members {
		removed, err := s.client.ZRem(ctx, queueKey, member).Result()
		if err != nil {
			return entries, fmt.Errorf("claim reminder %s: %w", member, err)
		}
		if removed == 0 {
			// Another dispatcher claimed it first.
			continue
		}

		userID, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			s.log.Error("malformed queue member", "member", member)
			continue
		}

		data, err := s.client.GetDel(ctx, entryKey(userID)).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				s.log.Warn("claimed reminder has no payload", "user_id", userID)
				continue
			}
			return entries, fmt.Errorf("load claimed reminder for user %d: %w", userID, err)
		}

		var entry Entry
		if err := json.Unmarshal([]byte(data), &entry); err != nil {
			s.log.Error("failed to decode claimed reminder", "user_id", userID, "error", err)
			continue
		}

		entries = append(entries, &entry)
	}

	return entries, nil
}

// Len reports how many reminders are queued in total.
func (s *RedisStore) Len(ctx context.Context) (int64, error) {
	size, err := s.client.ZCard(ctx, queueKey).Result()
	if err != nil {
		return 0, fmt.Errorf("count queued reminders: %w", err)
	}
	return size, nil
}

func queueMember(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

func entryKey(userID int64) string {
	return fmt.Sprintf(entryKeyPattern, userID)
}
