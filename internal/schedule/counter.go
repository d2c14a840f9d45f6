package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sentKeyPattern = "nudge:sent:%s:%d"

	// counterTTL keeps yesterday's counters around long enough for any
	// timezone to finish its day before they expire.
	counterTTL = 48 * time.Hour
)

// DeliveryCounter tracks how many reminders were delivered to a user
// during one local day. Counters are durable so restarts cannot reset the
// daily cap.
type DeliveryCounter struct {
	client *redis.Client
}

// NewDeliveryCounter initializes a Redis-backed delivery counter.
func NewDeliveryCounter(client *redis.Client) *DeliveryCounter {
	return &DeliveryCounter{client: client}
}

// Delivered returns how many reminders the user has received on the given
// local day.
func (c *DeliveryCounter) Delivered(ctx context.Context, userID int64, localDay time.Time) (int, error) {
	count, err := c.client.Get(ctx, sentKey(userID, localDay)).Int()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, fmt.Errorf("read delivery counter: %w", err)
	}

	return count, nil
}

// Record increments the user's counter for the given local day and returns
// the new total.
func (c *DeliveryCounter) Record(ctx context.Context, userID int64, localDay time.Time) (int, error) {
	key := sentKey(userID, localDay)

	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, counterTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("record delivery: %w", err)
	}

	return int(incr.Val()), nil
}

func sentKey(userID int64, localDay time.Time) string {
	return fmt.Sprintf(sentKeyPattern, localDay.Format("2006-01-02"), userID)
}
