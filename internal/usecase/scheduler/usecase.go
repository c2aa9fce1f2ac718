package scheduler

import (
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Task identifies one scheduled call. A task stays current until the next
// Schedule or Cancel.
type Task uint64

type useCase struct {
	delay      time.Duration
	generation *atomic.Uint64
	timer      *time.Timer
	mu         *sync.Mutex
	logger     *zap.Logger
}

func New(delay time.Duration, logger *zap.Logger) *useCase {
	return &useCase{
		delay:      delay,
		generation: atomic.NewUint64(0),
		mu:         &sync.Mutex{},
		logger:     logger,
	}
}

// Schedule replaces any pending task with fn, run after the configured delay.
// fn is skipped when the task is no longer current at fire time, and callers
// should check IsCurrent again under their own lock before acting.
func (u *useCase) Schedule(fn func(task Task)) Task {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.stopLocked()
	task := Task(u.generation.Inc())
	u.timer = time.AfterFunc(u.delay, func() {
		if !u.IsCurrent(task) {
			u.logger.Debug("skipping stale task", zap.Uint64("task", uint64(task)))
			return
		}
		fn(task)
	})
	u.logger.Debug("task scheduled", zap.Uint64("task", uint64(task)), zap.Duration("delay", u.delay))
	return task
}

// Cancel stops the pending task, if any, and invalidates it.
func (u *useCase) Cancel() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.stopLocked()
	u.generation.Inc()
}

func (u *useCase) IsCurrent(task Task) bool {
	return u.generation.Load() == uint64(task)
}

func (u *useCase) stopLocked() {
	if u.timer != nil {
		u.timer.Stop()
		u.timer = nil
	}
}
