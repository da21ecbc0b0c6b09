// Package jobs runs fire-and-forget background work with bounded concurrency.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrStopped is returned by Submit once the manager is stopping.
var ErrStopped = errors.New("jobs: manager stopped")

// Job is one unit of background work.
type Job struct {
	// Type groups jobs in logs, e.g. "calendar.create".
	Type string
	// Key identifies the subject of the job, e.g. a task id.
	Key string
	Run func(ctx context.Context) error
}

// Config contains manager configuration.
type Config struct {
	MaxConcurrent int
	JobTimeout    time.Duration
}

// DefaultConfig returns the default manager configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxConcurrent: 16,
		JobTimeout:    30 * time.Second,
	}
}

// Manager executes submitted jobs in the background.
// Failures are logged and never reported back to the submitter.
type Manager struct {
	mu      sync.RWMutex
	stopped bool

	logger    *zap.Logger
	config    *Config
	semaphore chan struct{}

	// ctx is cancelled on Stop so in-flight jobs can abort.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates a new job manager.
func NewManager(logger *zap.Logger, config *Config) *Manager {
	if config == nil {
		config = DefaultConfig()
	}
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = DefaultConfig().MaxConcurrent
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		logger:    logger.Named("jobs"),
		config:    config,
		semaphore: make(chan struct{}, config.MaxConcurrent),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Submit schedules job for background execution.
func (m *Manager) Submit(job Job) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.stopped {
		return ErrStopped
	}

	m.wg.Add(1)
	go m.execute(job)
	return nil
}

// Stop waits for running jobs to finish, up to ctx's deadline, then cancels the rest.
func (m *Manager) Stop(ctx context.Context) {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	m.mu.Unlock()

	m.logger.Info("stopping job manager")

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		m.logger.Warn("job manager stop deadline reached, cancelling in-flight jobs")
		m.cancel()
		<-done
	}
	m.cancel()

	m.logger.Info("job manager stopped")
}

// Wait blocks until every submitted job has finished.
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) execute(job Job) {
	defer m.wg.Done()

	select {
	case <-m.ctx.Done():
		return
	case m.semaphore <- struct{}{}:
		defer func() { <-m.semaphore }()
	}

	ctx := m.ctx
	if m.config.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.config.JobTimeout)
		defer cancel()
	}

	start := time.Now()
	err := m.run(ctx, job)
	fields := []zap.Field{
		zap.String("type", job.Type),
		zap.String("key", job.Key),
		zap.Duration("duration", time.Since(start)),
	}
	if err != nil {
		m.logger.Warn("job failed", append(fields, zap.Error(err))...)
		return
	}
	m.logger.Debug("job completed", fields...)
}

func (m *Manager) run(ctx context.Context, job Job) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return job.Run(ctx)
}
