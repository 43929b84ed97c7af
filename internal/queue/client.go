package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/nikhilbhutani/pdfprecheck/internal/config"
)

// ErrAlreadyQueued is returned when a task for the same batch is still known
// to the queue.
var ErrAlreadyQueued = errors.New("batch already queued")

const (
	precheckMaxRetry = 2
	precheckTimeout  = 10 * time.Minute
)

// RedisOpt converts the shared Redis settings into asynq's connection option.
func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

type Client struct {
	client    *asynq.Client
	retention time.Duration
}

// NewClient returns an enqueuer. Completed tasks are kept for retention so
// their IDs keep rejecting duplicates while the batch state lives.
func NewClient(cfg config.RedisConfig, retention time.Duration) *Client {
	return &Client{
		client:    asynq.NewClient(RedisOpt(cfg)),
		retention: retention,
	}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueuePrecheck queues one batch. The batch ID doubles as the task ID.
func (c *Client) EnqueuePrecheck(payload PrecheckProcessPayload) error {
	task, err := NewPrecheckTask(payload)
	if err != nil {
		return err
	}

	opts := []asynq.Option{asynq.TaskID(payload.BatchID)}
	if c.retention > 0 {
		opts = append(opts, asynq.Retention(c.retention))
	}

	if _, err := c.client.Enqueue(task, opts...); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return fmt.Errorf("%s: %w", payload.BatchID, ErrAlreadyQueued)
		}
		return fmt.Errorf("enqueue %s: %w", task.Type(), err)
	}
	return nil
}

// NewPrecheckTask builds the task with its retry and timeout policy attached.
func NewPrecheckTask(payload PrecheckProcessPayload) (*asynq.Task, error) {
	if payload.BatchID == "" {
		return nil, errors.New("payload has no batch_id")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(TypePrecheckProcess, data,
		asynq.MaxRetry(precheckMaxRetry),
		asynq.Timeout(precheckTimeout),
	), nil
}
