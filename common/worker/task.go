package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lyzr/colorsort/common/clients"
	"github.com/lyzr/colorsort/common/logger"
	"github.com/lyzr/colorsort/common/queue"
)

// KindComputeSequence is the task kind computing one color sort sequence
const KindComputeSequence = "compute_sequence"

// Task is a unit of background work
type Task interface {
	Kind() string
	Key() string
}

// Envelope is the wire format of a queued task
type Envelope struct {
	Version   string          `json:"version"`
	Kind      string          `json:"kind"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt int64           `json:"created_at"`
}

// ComputeSequenceTask computes the sequence of one pending record
type ComputeSequenceTask struct {
	SequenceID   uuid.UUID `json:"sequence_id"`
	CollectionID int64     `json:"collection_id"`
	Color        string    `json:"color"`
}

func (t ComputeSequenceTask) Kind() string { return KindComputeSequence }
func (t ComputeSequenceTask) Key() string  { return t.SequenceID.String() }

// TaskQueue submits tasks to a queue topic
type TaskQueue struct {
	queue queue.Queue
	topic string
	log   *logger.Logger
}

// NewTaskQueue creates a task queue publishing to topic
func NewTaskQueue(q queue.Queue, topic string, log *logger.Logger) *TaskQueue {
	return &TaskQueue{queue: q, topic: topic, log: log}
}

// Submit enqueues a task
func (q *TaskQueue) Submit(ctx context.Context, task Task) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal %s task: %w", task.Kind(), err)
	}

	env := Envelope{
		Version:   "1.0",
		Kind:      task.Kind(),
		Payload:   payload,
		CreatedAt: time.Now().Unix(),
	}
	if requestID, ok := clients.GetRequestID(ctx); ok {
		env.RequestID = requestID
	}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal task envelope: %w", err)
	}

	if err := q.queue.Publish(ctx, q.topic, task.Key(), data); err != nil {
		return fmt.Errorf("failed to submit %s task: %w", task.Kind(), err)
	}

	q.log.WithContext(ctx).Debug("task submitted", "kind", task.Kind(), "key", task.Key(), "topic", q.topic)
	return nil
}

// HandlerFunc handles the payload of one task kind
type HandlerFunc func(ctx context.Context, payload []byte) error

// Dispatcher routes queued envelopes to handlers by kind
type Dispatcher struct {
	handlers map[string]HandlerFunc
	log      *logger.Logger
}

// NewDispatcher creates an empty dispatcher
func NewDispatcher(log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		log:      log,
	}
}

// Register sets the handler of a task kind
func (d *Dispatcher) Register(kind string, fn HandlerFunc) {
	d.handlers[kind] = fn
}

// Dispatch decodes an envelope and runs its handler. It is a queue.MessageHandler.
func (d *Dispatcher) Dispatch(ctx context.Context, key string, value []byte) error {
	var env Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		return fmt.Errorf("failed to unmarshal task envelope %s: %w", key, err)
	}

	fn, ok := d.handlers[env.Kind]
	if !ok {
		return fmt.Errorf("no handler for task kind %q", env.Kind)
	}

	ctx = clients.WithRequestID(ctx, env.RequestID)
	d.log.WithContext(ctx).Debug("dispatching task", "kind", env.Kind, "key", key)

	return fn(ctx, env.Payload)
}
