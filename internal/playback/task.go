package playback

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Task 可取消的周期驱动。Stop 返回时 goroutine 已经退出，
// 保证同一个时钟不会同时被两个驱动推进。
type Task struct {
	name   string
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	reset  func(time.Duration)
	once   sync.Once
}

// StartTask 每隔 interval 调用一次 step
func StartTask(ctx context.Context, name string, interval time.Duration, step func()) *Task {
	ticker := time.NewTicker(interval)
	t := newTask(ctx, name, ticker.Reset)
	go t.run(ticker.C, ticker.Stop, step)
	return t
}

// StartTaskWithTicks 由调用方提供 tick 通道，测试中可以逐步驱动
func StartTaskWithTicks(ctx context.Context, name string, ticks <-chan time.Time, step func()) *Task {
	t := newTask(ctx, name, nil)
	go t.run(ticks, func() {}, step)
	return t
}

func newTask(ctx context.Context, name string, reset func(time.Duration)) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{
		name:   name,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		reset:  reset,
	}
	return t
}

func (t *Task) run(ticks <-chan time.Time, stopTicker func(), step func()) {
	defer close(t.done)
	defer stopTicker()

	log.Debug().Str("task", t.name).Msg("Driver started")
	for {
		select {
		case <-t.ctx.Done():
			log.Debug().Str("task", t.name).Msg("Driver stopped")
			return
		case _, ok := <-ticks:
			if !ok {
				return
			}
			step()
		}
	}
}

// Reset 修改 tick 间隔，可以在 step 内调用
func (t *Task) Reset(interval time.Duration) {
	if t.reset != nil && interval > 0 {
		t.reset(interval)
	}
}

// Stop 取消并等待驱动退出。不能在 step 内调用。
func (t *Task) Stop() {
	t.once.Do(t.cancel)
	<-t.done
}

// Done 驱动退出后关闭
func (t *Task) Done() <-chan struct{} {
	return t.done
}
