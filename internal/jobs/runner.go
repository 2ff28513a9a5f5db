// Package jobs isimli, parametresiz işleri istekten bağımsız olarak çalıştırır.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrUnknownJob = errors.New("unknown job")
	ErrQueueFull  = errors.New("job queue is full")
	ErrStopped    = errors.New("job runner stopped")
)

const defaultTimeout = 2 * time.Minute

type Func func(ctx context.Context) error

type Runner struct {
	mu       sync.RWMutex
	handlers map[string]Func

	queue   chan string
	workers int
	timeout time.Duration
	logger  *zap.Logger

	wg       sync.WaitGroup
	cancel   context.CancelFunc
	stopped  chan struct{}
	stopOnce sync.Once
}

func NewRunner(workers, queueSize int, logger *zap.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		handlers: make(map[string]Func),
		queue:    make(chan string, queueSize),
		workers:  workers,
		timeout:  defaultTimeout,
		logger:   logger,
		stopped:  make(chan struct{}),
	}
}

func (r *Runner) Register(name string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = fn
}

// Enqueue işi kuyruğa bırakır ve hemen döner; kuyruk doluysa beklemez.
func (r *Runner) Enqueue(name string) error {
	if _, ok := r.handler(name); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}

	select {
	case <-r.stopped:
		return ErrStopped
	default:
	}

	select {
	case r.queue <- name:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrQueueFull, name)
	}
}

// Execute işi çağıranın goroutine'inde çalıştırır (zamanlayıcı bunu kullanır).
func (r *Runner) Execute(ctx context.Context, name string) error {
	fn, ok := r.handler(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return r.run(ctx, name, fn)
}

func (r *Runner) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go r.work(ctx)
	}
	r.logger.Info("job runner started", zap.Int("workers", r.workers))
}

// Stop yeni işleri reddeder, çalışan işlerin bitmesini bekler. Kuyrukta kalanlar atılır.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopped)
		if r.cancel != nil {
			r.cancel()
		}
		r.wg.Wait()
		r.logger.Info("job runner stopped", zap.Int("dropped", len(r.queue)))
	})
}

func (r *Runner) work(ctx context.Context) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case name := <-r.queue:
			fn, ok := r.handler(name)
			if !ok {
				continue
			}
			// hata istemciye değil log'a gider
			_ = r.run(ctx, name, fn)
		}
	}
}

func (r *Runner) run(ctx context.Context, name string, fn Func) (err error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("job %s panicked: %v", name, p)
		}
		if err != nil {
			r.logger.Error("job failed", zap.String("job", name), zap.Duration("took", time.Since(start)), zap.Error(err))
			return
		}
		r.logger.Info("job finished", zap.String("job", name), zap.Duration("took", time.Since(start)))
	}()

	return fn(ctx)
}

func (r *Runner) handler(name string) (Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.handlers[name]
	return fn, ok
}
