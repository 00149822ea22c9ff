package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"ticket-fulfillment/pkg/logger"

	"go.uber.org/zap"
)

var ErrAlreadyRunning = errors.New("worker already running")

// periodicTask 啟動時先跑一次，之後每個 interval 跑一次，直到 ctx 結束或 Stop
type periodicTask struct {
	name     string
	interval time.Duration
	run      func(ctx context.Context)

	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

func newPeriodicTask(name string, interval time.Duration, run func(ctx context.Context)) *periodicTask {
	return &periodicTask{
		name:     name,
		interval: interval,
		run:      run,
	}
}

func (p *periodicTask) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return ErrAlreadyRunning
	}
	p.running = true
	p.stopCh = make(chan struct{})

	logger.WithComponent("worker").Info("starting periodic task",
		zap.String("task", p.name),
		zap.Duration("interval", p.interval),
	)

	p.wg.Add(1)
	go p.loop(ctx, p.stopCh)
	return nil
}

func (p *periodicTask) loop(ctx context.Context, stopCh <-chan struct{}) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.run(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			p.run(ctx)
		}
	}
}

// Stop 等待進行中的一輪結束才返回
func (p *periodicTask) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopCh)
	p.mu.Unlock()

	p.wg.Wait()
	logger.WithComponent("worker").Info("periodic task stopped", zap.String("task", p.name))
}
