package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"phishguard/internal/models"
)

const QueueName = "phishguard:tasks"

// ErrEmpty is returned by Pop when no task arrived before the timeout.
var ErrEmpty = errors.New("queue empty")

// Tasks is a FIFO of analysis tasks backed by a Redis list.
type Tasks struct {
	rdb  *redis.Client
	name string
}

func NewTasks(rdb *redis.Client) *Tasks {
	return &Tasks{rdb: rdb, name: QueueName}
}

// Push appends tasks in order with one RPUSH.
func (q *Tasks) Push(ctx context.Context, tasks ...models.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	values := make([]any, 0, len(tasks))
	for _, t := range tasks {
		raw, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("encode task: %w", err)
		}
		values = append(values, raw)
	}
	return q.rdb.RPush(ctx, q.name, values...).Err()
}

// Pop blocks up to timeout for the next task.
func (q *Tasks) Pop(ctx context.Context, timeout time.Duration) (models.Task, error) {
	// BLPOP returns: [queue_name, value]
	result, err := q.rdb.BLPop(ctx, timeout, q.name).Result()
	if errors.Is(err, redis.Nil) {
		return models.Task{}, ErrEmpty
	}
	if err != nil {
		return models.Task{}, err
	}

	var task models.Task
	if err := json.Unmarshal([]byte(result[1]), &task); err != nil {
		return models.Task{}, fmt.Errorf("malformed task %q: %w", result[1], err)
	}
	return task, nil
}

// Len is the number of tasks waiting.
func (q *Tasks) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, q.name).Result()
}
