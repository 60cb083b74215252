// Package player 定义媒体播放器能力，以及基于 mpv 的实现
package player

// Listener 接收播放器的回调
type Listener interface {
	OnIsPlayingChanged(isPlaying bool)
	OnPlayerError(err error)
}

// MediaPlayer 是播放状态同步器依赖的播放器能力。位置和时长单位为毫秒
type MediaPlayer interface {
	SetMedia(uri string) error
	Prepare() error
	Play() error
	Pause() error
	SeekTo(positionMs int64) error

	IsPlaying() bool
	CurrentPosition() int64
	Duration() int64

	AddListener(l Listener)
	RemoveListener(l Listener)
}

// listeners 监听器集合，调用方负责加锁
type listeners struct {
	items []Listener
}

func (ls *listeners) add(l Listener) {
	for _, existing := range ls.items {
		if existing == l {
			return
		}
	}
	ls.items = append(ls.items, l)
}

func (ls *listeners) remove(l Listener) {
	for i, existing := range ls.items {
		if existing == l {
			ls.items = append(ls.items[:i:i], ls.items[i+1:]...)
			return
		}
	}
}

func (ls *listeners) snapshot() []Listener {
	return append([]Listener(nil), ls.items...)
}
