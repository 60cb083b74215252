// Package state 提供可观察的状态容器，最后一次写入生效
package state

import "sync"

// Store 保存一个值并把每次更新推送给订阅者。
// 订阅者只保证看到最新值，处理慢时中间值会被覆盖
type Store[T any] struct {
	mu     sync.Mutex
	value  T
	nextID int
	subs   map[int]chan T
}

// New creates a store holding initial.
func New[T any](initial T) *Store[T] {
	return &Store[T]{
		value: initial,
		subs:  make(map[int]chan T),
	}
}

// Value returns the current value.
func (s *Store[T]) Value() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Set 替换当前值
func (s *Store[T]) Set(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = v
	s.publish(v)
}

// Update 在锁内基于当前值计算新值，避免并发的读-改-写丢失更新
func (s *Store[T]) Update(fn func(T) T) T {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = fn(s.value)
	s.publish(s.value)
	return s.value
}

// Subscribe 返回的通道会立即收到当前值。cancel 后通道关闭
func (s *Store[T]) Subscribe() (<-chan T, func()) {
	ch := make(chan T, 1)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	ch <- s.value
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			close(ch)
			s.mu.Unlock()
		})
	}
}

// publish must be called with mu held.
func (s *Store[T]) publish(v T) {
	for _, ch := range s.subs {
		select {
		case ch <- v:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- v
		}
	}
}

// Observable 是 Store 的只读视图，交给 UI 层订阅
type Observable[T any] interface {
	Value() T
	Subscribe() (<-chan T, func())
}

var _ Observable[int] = (*Store[int])(nil)
