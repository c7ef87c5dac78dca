package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/nikhilbhutani/resumeprocessor/internal/config"
)

const (
	// MaxRetry bounds redeliveries of a processing task. Permanent failures
	// skip the remaining retries.
	MaxRetry       = 3
	processTimeout = 10 * time.Minute
)

// queueName is where processing tasks are enqueued.
const queueName = "default"

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

type inspector interface {
	GetTaskInfo(queue, id string) (*asynq.TaskInfo, error)
	DeleteTask(queue, id string) error
	Close() error
}

type Client struct {
	client    enqueuer
	inspector inspector
}

func NewClient(cfg config.RedisConfig) *Client {
	return &Client{
		client:    asynq.NewClient(RedisOpt(cfg)),
		inspector: asynq.NewInspector(RedisOpt(cfg)),
	}
}

// RedisOpt maps the redis settings onto asynq's connection options.
func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

func (c *Client) Close() error {
	err := c.client.Close()
	if c.inspector != nil {
		err = errors.Join(err, c.inspector.Close())
	}
	return err
}

// EnqueueResumeProcess queues one processing task per résumé. A task that is
// still pending, scheduled, retrying or running absorbs the request. A task
// left archived or completed by an earlier run is removed so the résumé can
// run again.
func (c *Client) EnqueueResumeProcess(ctx context.Context, payload ResumeProcessPayload) error {
	taskID := TypeResumeProcess + ":" + payload.ResumeID
	opts := []asynq.Option{
		asynq.Queue(queueName),
		asynq.MaxRetry(MaxRetry),
		asynq.Timeout(processTimeout),
		asynq.TaskID(taskID),
	}

	err := c.enqueue(ctx, TypeResumeProcess, payload, opts...)
	if !errors.Is(err, asynq.ErrTaskIDConflict) {
		return err
	}

	cleared, err := c.clearFinished(taskID)
	if err != nil {
		return err
	}
	if cleared {
		slog.Info("requeueing finished resume task", "resume_id", payload.ResumeID)
		err = c.enqueue(ctx, TypeResumeProcess, payload, opts...)
		if !errors.Is(err, asynq.ErrTaskIDConflict) {
			return err
		}
	}
	slog.Info("resume already queued", "resume_id", payload.ResumeID)
	return nil
}

// clearFinished deletes the task with id when it can no longer run and
// reports whether the id is free again.
func (c *Client) clearFinished(id string) (bool, error) {
	if c.inspector == nil {
		return false, nil
	}
	info, err := c.inspector.GetTaskInfo(queueName, id)
	if errors.Is(err, asynq.ErrTaskNotFound) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("inspect task %s: %w", id, err)
	}
	if info.State != asynq.TaskStateArchived && info.State != asynq.TaskStateCompleted {
		return false, nil
	}
	if err := c.inspector.DeleteTask(queueName, id); err != nil && !errors.Is(err, asynq.ErrTaskNotFound) {
		return false, fmt.Errorf("delete %s task %s: %w", info.State, id, err)
	}
	return true, nil
}

// Dispatch queues id for processing by the worker.
func (c *Client) Dispatch(ctx context.Context, id string) error {
	return c.EnqueueResumeProcess(ctx, ResumeProcessPayload{ResumeID: id})
}

func (c *Client) enqueue(ctx context.Context, taskType string, payload interface{}, opts ...asynq.Option) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(taskType, data)
	_, err = c.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	return nil
}
