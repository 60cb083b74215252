package viewmodel

import (
	"context"

	"SpotiFM/core/api"
	"SpotiFM/core/content"
	"SpotiFM/core/state"
	"SpotiFM/logger"
	"SpotiFM/model"
)

// HomeUiState 首页状态
type HomeUiState struct {
	Feed      []model.Section
	IsLoading bool
}

// HomeSource 提供首页分组
type HomeSource interface {
	GetHomeSections(ctx context.Context) ([]model.Section, error)
}

// ContentWatcher 订阅服务端资源变化
type ContentWatcher interface {
	WatchContent(ctx context.Context, fn func(api.ContentChange)) error
}

// HomeViewModel 首页
type HomeViewModel struct {
	*scope
	repo    HomeSource
	uiState *state.Store[HomeUiState]
}

// NewHomeViewModel 初始状态为加载中
func NewHomeViewModel(repo HomeSource) *HomeViewModel {
	return &HomeViewModel{
		scope:   newScope(),
		repo:    repo,
		uiState: state.New(HomeUiState{Feed: []model.Section{}, IsLoading: true}),
	}
}

// UiState returns the observable state.
func (vm *HomeViewModel) UiState() state.Observable[HomeUiState] {
	return vm.uiState
}

// FetchHomeScreen 在后台请求首页，成功后发布一次结果
func (vm *HomeViewModel) FetchHomeScreen() {
	vm.launch(vm.fetch)
}

func (vm *HomeViewModel) fetch(ctx context.Context) {
	sections, err := vm.repo.GetHomeSections(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logger.Error("fetch home feed failed", logger.ErrorField(err))
			vm.setErr(err)
		}
		return
	}
	vm.uiState.Set(HomeUiState{Feed: sections, IsLoading: false})
	logger.Debug("home feed loaded", logger.Int("sections", len(sections)))
}

// WatchForChanges feed.json 在服务端变化时重新拉取首页
func (vm *HomeViewModel) WatchForChanges(w ContentWatcher) {
	vm.launch(func(ctx context.Context) {
		err := w.WatchContent(ctx, func(change api.ContentChange) {
			if change.Resource == content.FeedFile {
				vm.fetch(ctx)
			}
		})
		if err != nil && ctx.Err() == nil {
			logger.Warn("content watch stopped", logger.ErrorField(err))
			vm.setErr(err)
		}
	})
}
