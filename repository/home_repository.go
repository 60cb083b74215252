package repository

import (
	"context"

	"SpotiFM/model"
)

// FeedAPI 首页数据的网络接口
type FeedAPI interface {
	GetHomeFeed(ctx context.Context) ([]model.Section, error)
}

// HomeRepository 获取首页分组
type HomeRepository struct {
	api FeedAPI
}

// NewHomeRepository 创建首页仓库
func NewHomeRepository(api FeedAPI) *HomeRepository {
	return &HomeRepository{api: api}
}

// GetHomeSections 阻塞地请求 /feed
func (r *HomeRepository) GetHomeSections(ctx context.Context) ([]model.Section, error) {
	return r.api.GetHomeFeed(ctx)
}
