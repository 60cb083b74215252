package repository

import (
	"context"

	"SpotiFM/model"
)

// PlaylistAPI 播放列表的网络接口
type PlaylistAPI interface {
	GetPlaylist(ctx context.Context, id int) (*model.Playlist, error)
}

// PlaylistRepository 按专辑ID获取播放列表
type PlaylistRepository struct {
	api PlaylistAPI
}

// NewPlaylistRepository 创建播放列表仓库
func NewPlaylistRepository(api PlaylistAPI) *PlaylistRepository {
	return &PlaylistRepository{api: api}
}

// GetPlaylist 请求 /playlist/{id}
func (r *PlaylistRepository) GetPlaylist(ctx context.Context, id int) (*model.Playlist, error) {
	return r.api.GetPlaylist(ctx, id)
}
