package content

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"SpotiFM/logger"

	"github.com/fsnotify/fsnotify"
)

// Change 资源文件变化通知
type Change struct {
	Resource string `json:"resource"`
	Event    string `json:"event"`
}

// Watcher 监听资源目录，文件变化时使 Bundle 缓存失效并广播给订阅者
type Watcher struct {
	bundle  *Bundle
	watcher *fsnotify.Watcher

	mu     sync.Mutex
	nextID int
	subs   map[int]chan Change
}

// NewWatcher 创建资源目录监听器
func NewWatcher(bundle *Bundle) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := w.Add(bundle.Dir()); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", bundle.Dir(), err)
	}
	return &Watcher{
		bundle:  bundle,
		watcher: w,
		subs:    make(map[int]chan Change),
	}, nil
}

// Subscribe 订阅变化通知。返回的 cancel 必须调用以释放订阅
func (w *Watcher) Subscribe() (<-chan Change, func()) {
	ch := make(chan Change, 8)

	w.mu.Lock()
	id := w.nextID
	w.nextID++
	w.subs[id] = ch
	w.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			w.mu.Lock()
			if _, ok := w.subs[id]; ok {
				delete(w.subs, id)
				close(ch)
			}
			w.mu.Unlock()
		})
	}
}

// Run 处理 fsnotify 事件直到 ctx 结束
func (w *Watcher) Run(ctx context.Context) {
	defer w.shutdown()
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("resource watcher error", logger.ErrorField(err))
		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	name := filepath.Base(event.Name)
	w.bundle.Invalidate(name)

	change := Change{Resource: name, Event: "changed"}
	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		change.Event = "removed"
	}
	logger.Debug("bundled resource changed", logger.String("resource", name), logger.String("op", event.Op.String()))
	w.broadcast(change)
}

func (w *Watcher) broadcast(change Change) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, ch := range w.subs {
		select {
		case ch <- change:
		default:
			// 订阅者处理太慢时丢弃，下一次变化会再次通知
		}
	}
}

func (w *Watcher) shutdown() {
	w.watcher.Close()
	w.mu.Lock()
	for id, ch := range w.subs {
		delete(w.subs, id)
		close(ch)
	}
	w.mu.Unlock()
}
