package output

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nantokaworks/brother-label/internal/shared/logger"
	"go.uber.org/zap"
)

var (
	ErrQueueFull   = errors.New("print queue is full")
	ErrQueueClosed = errors.New("print queue is closed")
)

// Task is a queued print. Done, if set, receives the outcome of Run.
type Task struct {
	ID   string
	Run  func(ctx context.Context) error
	Done func(err error)
}

// Queue runs print tasks one at a time in submission order.
type Queue struct {
	tasks  chan Task
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 100
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		tasks:  make(chan Task, size),
		ctx:    ctx,
		cancel: cancel,
	}
	q.wg.Add(1)
	go q.run()
	return q
}

func (q *Queue) run() {
	defer q.wg.Done()
	for task := range q.tasks {
		logger.Debug("Processing print task", zap.String("job_id", task.ID))
		err := q.runTask(task)
		if err != nil {
			logger.Error("Print task failed", zap.String("job_id", task.ID), zap.Error(err))
		} else {
			logger.Info("Print task completed", zap.String("job_id", task.ID))
		}
		if task.Done != nil {
			task.Done(err)
		}
	}
}

// runTask runs one task. A panic fails the task instead of the worker.
func (q *Queue) runTask(task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Print task panicked",
				zap.String("job_id", task.ID),
				zap.Any("panic", r),
				zap.Stack("stack"))
			err = fmt.Errorf("print task %s panicked: %v", task.ID, r)
		}
	}()
	return task.Run(q.ctx)
}

// Enqueue adds a task without blocking.
func (q *Queue) Enqueue(task Task) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.tasks <- task:
		return nil
	default:
		logger.Error("Print queue is full, dropping job", zap.String("job_id", task.ID))
		return ErrQueueFull
	}
}

// Len returns the number of tasks waiting to run.
func (q *Queue) Len() int {
	return len(q.tasks)
}

// Close stops accepting tasks, runs the ones already queued and waits for the
// worker. Cancelling ctx aborts the remaining tasks through their context.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.tasks)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.cancel()
		return nil
	case <-ctx.Done():
		q.cancel()
		<-done
		return ctx.Err()
	}
}
