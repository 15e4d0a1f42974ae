package worker

import (
	"context"
	"fmt"

	"github.com/lyzr/colorsort/common/logger"
	"github.com/lyzr/colorsort/common/queue"
	"golang.org/x/sync/errgroup"
)

// Pool runs a fixed number of queue consumers feeding a dispatcher
type Pool struct {
	queue       queue.Queue
	topic       string
	concurrency int
	dispatcher  *Dispatcher
	log         *logger.Logger
}

// NewPool creates a worker pool
func NewPool(q queue.Queue, topic string, concurrency int, dispatcher *Dispatcher, log *logger.Logger) *Pool {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Pool{
		queue:       q,
		topic:       topic,
		concurrency: concurrency,
		dispatcher:  dispatcher,
		log:         log,
	}
}

// Start subscribes the consumers and returns once they are running
func (p *Pool) Start(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < p.concurrency; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return p.queue.Subscribe(ctx, p.topic, p.dispatcher.Dispatch)
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to start worker pool: %w", err)
	}

	p.log.Info("worker pool started", "topic", p.topic, "concurrency", p.concurrency)
	return nil
}

// Run starts the pool and blocks until ctx is cancelled
func (p *Pool) Run(ctx context.Context) error {
	if err := p.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	p.log.Info("worker pool stopped", "topic", p.topic)
	return nil
}
