// Package queue runs playback cycles one at a time on a single worker.
package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var (
	// ErrQueueFull is returned when the queue is at capacity.
	ErrQueueFull = errors.New("queue is full")
	// ErrQueueClosed is returned when attempting to enqueue to a closed queue.
	ErrQueueClosed = errors.New("queue is closed")
)

// PlaybackHandler runs one playback cycle. ctx is cancelled when the cycle is
// interrupted or replaced.
type PlaybackHandler func(ctx context.Context, job *PlaybackJob) error

// IdleCallback is called when no job has run for the idle timeout.
type IdleCallback func()

// JobCompletedCallback is called after the handler returns, whatever the outcome.
type JobCompletedCallback func(job *PlaybackJob)

// Queue is a bounded queue with a single playback worker.
type Queue struct {
	mu            sync.Mutex
	jobs          []*PlaybackJob
	capacity      int
	logger        *slog.Logger
	closed        bool
	idleTimeout   time.Duration
	idleCallback  IdleCallback
	completedFunc JobCompletedCallback
	playbackFunc  PlaybackHandler
	current       *PlaybackJob
	cancelCurrent context.CancelFunc
	currentDone   chan struct{}
	wg            sync.WaitGroup
	stopCh        chan struct{}
	enqueueCh     chan struct{}
}

// NewQueue creates a new bounded queue. An idleTimeout of 0 disables the idle callback.
func NewQueue(capacity int, idleTimeout time.Duration, logger *slog.Logger) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{
		jobs:        make([]*PlaybackJob, 0, capacity),
		capacity:    capacity,
		logger:      logger,
		idleTimeout: idleTimeout,
		stopCh:      make(chan struct{}),
		enqueueCh:   make(chan struct{}, 1),
	}
}

// SetPlaybackHandler sets the function called to run each job.
func (q *Queue) SetPlaybackHandler(fn PlaybackHandler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.playbackFunc = fn
}

// SetIdleCallback sets the function called when the queue becomes idle.
func (q *Queue) SetIdleCallback(fn IdleCallback) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.idleCallback = fn
}

// SetJobCompletedCallback sets the function called after each job.
func (q *Queue) SetJobCompletedCallback(fn JobCompletedCallback) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.completedFunc = fn
}

// Enqueue adds a job behind any pending ones.
func (q *Queue) Enqueue(job *PlaybackJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.enqueueLocked(job)
}

func (q *Queue) enqueueLocked(job *PlaybackJob) error {
	if q.closed {
		return ErrQueueClosed
	}
	if len(q.jobs) >= q.capacity {
		return ErrQueueFull
	}

	q.jobs = append(q.jobs, job)
	q.logger.Debug("job enqueued", "job_id", job.ID, "queue_depth", len(q.jobs))

	select {
	case q.enqueueCh <- struct{}{}:
	default:
	}
	return nil
}

// Replace interrupts the running job, waits for its handler to return, drops
// pending jobs and enqueues job. Nothing from the replaced cycle runs after
// Replace returns.
func (q *Queue) Replace(job *PlaybackJob) error {
	q.Interrupt()

	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = q.jobs[:0]
	return q.enqueueLocked(job)
}

// Interrupt cancels the running job, clears pending jobs and waits until the
// running handler has returned. It must not be called from a handler.
func (q *Queue) Interrupt() {
	q.mu.Lock()
	if q.cancelCurrent != nil {
		q.cancelCurrent()
		q.cancelCurrent = nil
	}
	done := q.currentDone
	cleared := len(q.jobs)
	q.jobs = q.jobs[:0]
	q.mu.Unlock()

	if done != nil {
		<-done
	}
	q.logger.Debug("queue interrupted", "jobs_cleared", cleared)
}

// Len returns the number of pending jobs.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// Current returns the running job, or nil.
func (q *Queue) Current() *PlaybackJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.current
}

// Start begins the playback worker goroutine.
func (q *Queue) Start() {
	q.wg.Add(1)
	go q.worker()
}

// Stop cancels the running job and stops the worker.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	if q.cancelCurrent != nil {
		q.cancelCurrent()
	}
	q.mu.Unlock()

	close(q.stopCh)
	q.wg.Wait()
}

// worker is the single playback goroutine.
func (q *Queue) worker() {
	defer q.wg.Done()

	var idleTimer *time.Timer
	var idleTimerCh <-chan time.Time

	stopIdleTimer := func() {
		if idleTimer != nil {
			idleTimer.Stop()
			idleTimerCh = nil
		}
	}

	for {
		select {
		case <-q.stopCh:
			stopIdleTimer()
			return
		default:
		}

		if c := q.next(); c != nil {
			stopIdleTimer()
			q.processJob(c)
			continue
		}

		if idleTimerCh == nil && q.idleTimeout > 0 {
			idleTimer = time.NewTimer(q.idleTimeout)
			idleTimerCh = idleTimer.C
		}

		select {
		case <-q.stopCh:
			stopIdleTimer()
			return
		case <-q.enqueueCh:
			continue
		case <-idleTimerCh:
			q.mu.Lock()
			callback := q.idleCallback
			q.mu.Unlock()

			if callback != nil {
				q.logger.Info("idle timeout reached")
				callback()
			}
			idleTimer = nil
			idleTimerCh = nil
			// Only fire again after another job has run.
			q.waitForWork()
		}
	}
}

// waitForWork blocks until a job is enqueued or the queue stops.
func (q *Queue) waitForWork() {
	if q.Len() > 0 {
		return
	}
	select {
	case <-q.stopCh:
	case <-q.enqueueCh:
		select {
		case q.enqueueCh <- struct{}{}:
		default:
		}
	}
}

// cycle is a dequeued job together with the handles Interrupt uses on it.
type cycle struct {
	job    *PlaybackJob
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// next removes the next job and makes it current under one lock, so an
// Interrupt always finds the job either pending or cancellable.
func (q *Queue) next() *cycle {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.jobs) == 0 {
		return nil
	}
	job := q.jobs[0]
	q.jobs = q.jobs[1:]

	ctx, cancel := context.WithCancel(context.Background())
	c := &cycle{job: job, ctx: ctx, cancel: cancel, done: make(chan struct{})}
	q.current = job
	q.cancelCurrent = cancel
	q.currentDone = c.done
	return c
}

// processJob runs a dequeued job and clears it as current when the handler returns.
func (q *Queue) processJob(c *cycle) {
	job, ctx, cancel, done := c.job, c.ctx, c.cancel, c.done

	q.mu.Lock()
	handler := q.playbackFunc
	q.mu.Unlock()

	defer func() {
		cancel()
		q.mu.Lock()
		q.current = nil
		q.cancelCurrent = nil
		q.currentDone = nil
		completed := q.completedFunc
		q.mu.Unlock()
		close(done)

		if completed != nil {
			completed(job)
		}
	}()

	if handler == nil {
		q.logger.Warn("no playback handler set, skipping job", "job_id", job.ID)
		return
	}

	q.logger.Debug("processing job", "job_id", job.ID, "replay", job.Replay, "queued_for", job.Age())

	if err := handler(ctx, job); err != nil {
		if errors.Is(err, context.Canceled) {
			q.logger.Debug("job cancelled", "job_id", job.ID)
		} else {
			q.logger.Error("job failed", "job_id", job.ID, "error", err)
		}
		return
	}
	q.logger.Debug("job completed", "job_id", job.ID)
}
