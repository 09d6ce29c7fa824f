package tasks

import (
	"github.com/hibiken/asynq"

	"docintake/internal/platform/redis"
)

// QueueIntake is the single queue all intake workers compete on.
const QueueIntake = "intake"

type Client struct{ c *asynq.Client }

func New(r *redis.Service) *Client { return &Client{c: asynq.NewClient(r.AsynqRedisOpt())} }

func (t *Client) Close() error { return t.c.Close() }

// Enqueue submits a task for exactly-one-worker delivery. maxRetries is 0 for
// intake jobs: a failed job is terminal and must be resubmitted as a new job.
func (t *Client) Enqueue(task *asynq.Task, queue string, maxRetries int) error {
	_, err := t.c.Enqueue(task, asynq.Queue(queue), asynq.MaxRetry(maxRetries))
	return err
}
