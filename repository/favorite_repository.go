package repository

import (
	"context"

	"SpotiFM/model"
)

// FavoriteDAO 定义本地收藏表的操作，由 db.FavoriteStore 实现
type FavoriteDAO interface {
	FavoriteAlbum(ctx context.Context, album model.Album) error
	UnfavoriteAlbum(ctx context.Context, album model.Album) error
	WatchIsFavorite(ctx context.Context, id int) <-chan bool
	WatchFavorites(ctx context.Context) <-chan []model.Album
}

// FavoriteAlbumRepository 收藏专辑仓库
type FavoriteAlbumRepository struct {
	dao FavoriteDAO
}

// NewFavoriteAlbumRepository 创建收藏仓库
func NewFavoriteAlbumRepository(dao FavoriteDAO) *FavoriteAlbumRepository {
	return &FavoriteAlbumRepository{dao: dao}
}

// IsFavoriteAlbum 返回收藏状态的变化流
func (r *FavoriteAlbumRepository) IsFavoriteAlbum(ctx context.Context, id int) <-chan bool {
	return r.dao.WatchIsFavorite(ctx, id)
}

// FavoriteAlbum 收藏专辑
func (r *FavoriteAlbumRepository) FavoriteAlbum(ctx context.Context, album model.Album) error {
	return r.dao.FavoriteAlbum(ctx, album)
}

// UnfavoriteAlbum 取消收藏
func (r *FavoriteAlbumRepository) UnfavoriteAlbum(ctx context.Context, album model.Album) error {
	return r.dao.UnfavoriteAlbum(ctx, album)
}

// FetchFavoriteAlbums 返回收藏列表的变化流
func (r *FavoriteAlbumRepository) FetchFavoriteAlbums(ctx context.Context) <-chan []model.Album {
	return r.dao.WatchFavorites(ctx)
}
