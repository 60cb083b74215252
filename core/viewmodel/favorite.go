package viewmodel

import (
	"context"

	"SpotiFM/core/state"
	"SpotiFM/model"
)

// FavoriteUiState 收藏页状态
type FavoriteUiState struct {
	Albums []model.Album
}

// FavoriteViewModel 从创建起就镜像收藏列表
type FavoriteViewModel struct {
	*scope
	uiState *state.Store[FavoriteUiState]
}

func NewFavoriteViewModel(favorites FavoriteSource) *FavoriteViewModel {
	vm := &FavoriteViewModel{
		scope:   newScope(),
		uiState: state.New(FavoriteUiState{Albums: []model.Album{}}),
	}
	vm.launch(func(ctx context.Context) {
		for albums := range favorites.FetchFavoriteAlbums(ctx) {
			vm.uiState.Set(FavoriteUiState{Albums: albums})
		}
	})
	return vm
}

// UiState returns the observable state.
func (vm *FavoriteViewModel) UiState() state.Observable[FavoriteUiState] {
	return vm.uiState
}
