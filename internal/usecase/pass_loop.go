package usecase

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// PassRunner is the trigger surface shared by the ticker loop and the HTTP handler.
type PassRunner interface {
	Run(ctx context.Context, now time.Time) (PassSummary, error)
}

// PassLoop invokes a PassRunner every interval until stopped.
type PassLoop struct {
	runner   PassRunner
	interval time.Duration
	clock    func() time.Time
	logger   *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewPassLoop(runner PassRunner, interval time.Duration, logger *zap.Logger) *PassLoop {
	if interval <= 0 {
		interval = time.Minute
	}
	return &PassLoop{runner: runner, interval: interval, clock: time.Now, logger: logger}
}

func (l *PassLoop) Start(ctx context.Context) {
	l.mu.Lock()
	if l.cancel != nil {
		l.mu.Unlock()
		l.logger.Debug("pass loop already running")
		return
	}
	childCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.done = make(chan struct{})
	done := l.done
	l.mu.Unlock()

	go func() {
		defer close(done)
		l.run(childCtx)
	}()
}

func (l *PassLoop) Stop() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		l.logger.Warn("timeout stopping pass loop")
	}
}

func (l *PassLoop) run(ctx context.Context) {
	l.logger.Info("pass loop started", zap.Duration("interval", l.interval))
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("pass loop stopped")
			return
		case <-ticker.C:
			l.tick(ctx)
		}
	}
}

func (l *PassLoop) tick(ctx context.Context) {
	if _, err := l.runner.Run(ctx, l.clock().UTC()); err != nil {
		l.logger.Error("scheduled pass failed", zap.Error(err))
	}
}
