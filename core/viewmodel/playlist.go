package viewmodel

import (
	"context"
	"sync"

	"SpotiFM/core/state"
	"SpotiFM/logger"
	"SpotiFM/model"
)

// PlaylistUiState 专辑详情页状态
type PlaylistUiState struct {
	Album      model.Album
	IsFavorite bool
	Playlist   []model.Song
	IsLoading  bool // 歌曲列表请求中，空专辑加载完成后也会变为 false
}

// PlaylistSource 提供播放列表
type PlaylistSource interface {
	GetPlaylist(ctx context.Context, id int) (*model.Playlist, error)
}

// FavoriteSource 收藏状态的读写
type FavoriteSource interface {
	IsFavoriteAlbum(ctx context.Context, id int) <-chan bool
	FavoriteAlbum(ctx context.Context, album model.Album) error
	UnfavoriteAlbum(ctx context.Context, album model.Album) error
	FetchFavoriteAlbums(ctx context.Context) <-chan []model.Album
}

// PlaylistViewModel 专辑详情页
type PlaylistViewModel struct {
	*scope
	playlists PlaylistSource
	favorites FavoriteSource
	uiState   *state.Store[PlaylistUiState]

	mu          sync.Mutex
	cancelFetch context.CancelFunc
}

// NewPlaylistViewModel 初始专辑为 EmptyAlbum
func NewPlaylistViewModel(playlists PlaylistSource, favorites FavoriteSource) *PlaylistViewModel {
	return &PlaylistViewModel{
		scope:     newScope(),
		playlists: playlists,
		favorites: favorites,
		uiState:   state.New(PlaylistUiState{Album: model.EmptyAlbum(), Playlist: []model.Song{}}),
	}
}

// UiState returns the observable state.
func (vm *PlaylistViewModel) UiState() state.Observable[PlaylistUiState] {
	return vm.uiState
}

// FetchPlaylist 立即发布专辑信息，后台拉取歌曲并持续观察收藏状态。
// 再次调用会取消上一张专辑的观察
func (vm *PlaylistViewModel) FetchPlaylist(album model.Album) {
	vm.uiState.Update(func(s PlaylistUiState) PlaylistUiState {
		s.Album = album
		s.IsLoading = true
		return s
	})

	ctx, cancel := context.WithCancel(vm.ctx)
	vm.mu.Lock()
	if vm.cancelFetch != nil {
		vm.cancelFetch()
	}
	vm.cancelFetch = cancel
	vm.mu.Unlock()

	vm.launchIn(ctx, func(ctx context.Context) {
		playlist, err := vm.playlists.GetPlaylist(ctx, album.ID)
		if err != nil {
			if ctx.Err() == nil {
				logger.Error("fetch playlist failed", logger.Int("album_id", album.ID), logger.ErrorField(err))
				vm.setErr(err)
			}
			return
		}
		vm.uiState.Update(func(s PlaylistUiState) PlaylistUiState {
			if s.Album.ID == album.ID {
				s.Playlist = playlist.Songs
				s.IsLoading = false
			}
			return s
		})
		logger.Debug("playlist loaded", logger.Int("album_id", album.ID), logger.Int("songs", len(playlist.Songs)))
	})

	vm.launchIn(ctx, func(ctx context.Context) {
		for fav := range vm.favorites.IsFavoriteAlbum(ctx, album.ID) {
			vm.uiState.Update(func(s PlaylistUiState) PlaylistUiState {
				if s.Album.ID == album.ID {
					s.IsFavorite = fav
				}
				return s
			})
		}
	})
}

// ToggleFavorite 收藏或取消收藏当前专辑
func (vm *PlaylistViewModel) ToggleFavorite(isFavorite bool) {
	album := vm.uiState.Value().Album
	vm.launch(func(ctx context.Context) {
		var err error
		if isFavorite {
			err = vm.favorites.FavoriteAlbum(ctx, album)
		} else {
			err = vm.favorites.UnfavoriteAlbum(ctx, album)
		}
		if err != nil {
			logger.Error("toggle favorite failed", logger.Int("album_id", album.ID), logger.ErrorField(err))
			vm.setErr(err)
		}
	})
}
