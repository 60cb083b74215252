// Package viewmodel 把仓库和播放器的数据镜像到可观察状态中
package viewmodel

import (
	"context"
	"sync"
)

// scope 绑定一个 view model 的生命周期，Close 时取消并等待所有后台任务
type scope struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	lastErr error
}

func newScope() *scope {
	ctx, cancel := context.WithCancel(context.Background())
	return &scope{ctx: ctx, cancel: cancel}
}

func (s *scope) launch(fn func(ctx context.Context)) {
	s.launchIn(s.ctx, fn)
}

func (s *scope) launchIn(ctx context.Context, fn func(ctx context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn(ctx)
	}()
}

func (s *scope) setErr(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

// Err returns the last background failure, if any.
func (s *scope) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Close cancels background work and waits for it to finish.
func (s *scope) Close() {
	s.cancel()
	s.wg.Wait()
}
