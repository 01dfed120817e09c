package worker

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/wb-go/wbf/zlog"
)

var ErrPoolClosed = errors.New("worker pool is closed")

// Task is a blocking unit of work, typically one model inference.
type Task func() (image.Image, error)

type job struct {
	task   Task
	result chan<- outcome
}

type outcome struct {
	img image.Image
	err error
}

// Pool runs blocking tasks on a fixed number of goroutines so that
// inference never runs on the goroutines that schedule requests.
type Pool struct {
	jobs chan job
	wg   sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewPool starts size workers. A size below one starts a single worker.
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	p := &Pool{jobs: make(chan job)}
	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.run(i)
	}
	zlog.Logger.Info().Int("workers", size).Msg("inference worker pool started")
	return p
}

func (p *Pool) run(id int) {
	defer p.wg.Done()
	for j := range p.jobs {
		start := time.Now()
		img, err := execute(j.task)
		j.result <- outcome{img: img, err: err}

		zlog.Logger.Debug().
			Int("worker", id).
			Dur("duration", time.Since(start)).
			Bool("failed", err != nil).
			Msg("task finished")
	}
}

func execute(task Task) (img image.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			zlog.Logger.Error().Interface("panic", r).Msg("task panicked")
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return task()
}

// Submit hands task to a free worker and waits for its result. If ctx ends
// first Submit returns ctx.Err(); a task that already started still runs to
// completion and its result is dropped.
func (p *Pool) Submit(ctx context.Context, task Task) (image.Image, error) {
	result := make(chan outcome, 1)

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return nil, ErrPoolClosed
	}
	select {
	case p.jobs <- job{task: task, result: result}:
		p.mu.RUnlock()
	case <-ctx.Done():
		p.mu.RUnlock()
		return nil, ctx.Err()
	}

	select {
	case o := <-result:
		return o.img, o.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops accepting tasks and waits for running ones to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
	zlog.Logger.Info().Msg("inference worker pool stopped")
}
