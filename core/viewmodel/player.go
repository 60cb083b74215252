package viewmodel

import (
	"context"
	"time"

	"SpotiFM/core/player"
	"SpotiFM/core/state"
	"SpotiFM/logger"
	"SpotiFM/model"
)

// PlayerUiState 播放条状态
type PlayerUiState struct {
	Album      *model.Album
	Song       *model.Song
	IsPlaying  bool
	CurrentMs  int64
	DurationMs int64
	Err        error
}

// PlayerOptions configures the playback synchronizer.
type PlayerOptions struct {
	PollInterval time.Duration       // 默认 1s
	ResolveMedia func(string) string // 把 song.src 解析成播放器可用的地址
}

// PlayerViewModel 把播放器的回调和播放进度同步到可观察状态
type PlayerViewModel struct {
	*scope
	player  player.MediaPlayer
	resolve func(string) string
	uiState *state.Store[PlayerUiState]
}

var _ player.Listener = (*PlayerViewModel)(nil)

// NewPlayerViewModel 注册为播放器监听器，并在播放时每个周期发布一次进度
func NewPlayerViewModel(p player.MediaPlayer, opts PlayerOptions) *PlayerViewModel {
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.ResolveMedia == nil {
		opts.ResolveMedia = func(src string) string { return src }
	}
	vm := &PlayerViewModel{
		scope:   newScope(),
		player:  p,
		resolve: opts.ResolveMedia,
		uiState: state.New(PlayerUiState{}),
	}
	p.AddListener(vm)
	vm.launch(func(ctx context.Context) {
		vm.poll(ctx, opts.PollInterval)
	})
	return vm
}

// UiState returns the observable state.
func (vm *PlayerViewModel) UiState() state.Observable[PlayerUiState] {
	return vm.uiState
}

func (vm *PlayerViewModel) poll(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if !vm.player.IsPlaying() {
			continue
		}
		current, duration := vm.player.CurrentPosition(), vm.player.Duration()
		vm.uiState.Update(func(s PlayerUiState) PlayerUiState {
			s.CurrentMs = current
			s.DurationMs = duration
			return s
		})
		logger.Debug("playback progress", logger.Int64("current_ms", current), logger.Int64("duration_ms", duration))
	}
}

// Load 重置状态并让播放器加载歌曲，不会自动播放
func (vm *PlayerViewModel) Load(song model.Song, album model.Album) error {
	vm.uiState.Set(PlayerUiState{Album: &album, Song: &song, IsPlaying: false})
	if err := vm.player.SetMedia(vm.resolve(song.Src)); err != nil {
		return err
	}
	return vm.player.Prepare()
}

func (vm *PlayerViewModel) Play() error {
	return vm.player.Play()
}

func (vm *PlayerViewModel) Pause() error {
	return vm.player.Pause()
}

// SeekTo 先发布新位置再让播放器跳转，进度条不会回跳
func (vm *PlayerViewModel) SeekTo(positionMs int64) error {
	vm.uiState.Update(func(s PlayerUiState) PlayerUiState {
		s.CurrentMs = positionMs
		return s
	})
	return vm.player.SeekTo(positionMs)
}

// OnIsPlayingChanged implements player.Listener.
func (vm *PlayerViewModel) OnIsPlayingChanged(isPlaying bool) {
	logger.Debug("playing state changed", logger.Bool("is_playing", isPlaying))
	vm.uiState.Update(func(s PlayerUiState) PlayerUiState {
		s.IsPlaying = isPlaying
		return s
	})
}

// OnPlayerError implements player.Listener.
func (vm *PlayerViewModel) OnPlayerError(err error) {
	logger.Warn("player error", logger.ErrorField(err))
	vm.setErr(err)
	vm.uiState.Update(func(s PlayerUiState) PlayerUiState {
		s.Err = err
		return s
	})
}

// Close 注销监听器并停止轮询
func (vm *PlayerViewModel) Close() {
	vm.player.RemoveListener(vm)
	vm.scope.Close()
}
