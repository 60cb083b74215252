package db

import (
	"context"
	"fmt"
	"sync"

	"SpotiFM/logger"
	"SpotiFM/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FavoriteStore 本地收藏专辑表。写操作提交后会让所有 Watch 查询重新执行
type FavoriteStore struct {
	db *gorm.DB

	mu       sync.Mutex
	nextID   int
	triggers map[int]chan struct{}
}

// NewFavoriteStore 迁移收藏表并返回存储
func NewFavoriteStore(gdb *gorm.DB) (*FavoriteStore, error) {
	if err := gdb.AutoMigrate(&model.Album{}); err != nil {
		return nil, fmt.Errorf("failed to migrate albums table: %w", err)
	}
	return &FavoriteStore{
		db:       gdb,
		triggers: make(map[int]chan struct{}),
	}, nil
}

// FavoriteAlbum 收藏专辑，已存在时整行替换
func (s *FavoriteStore) FavoriteAlbum(ctx context.Context, album model.Album) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&album).Error
	if err != nil {
		return fmt.Errorf("favorite album %d: %w", album.ID, err)
	}
	s.invalidate()
	return nil
}

// UnfavoriteAlbum 取消收藏
func (s *FavoriteStore) UnfavoriteAlbum(ctx context.Context, album model.Album) error {
	if err := s.db.WithContext(ctx).Delete(&model.Album{}, album.ID).Error; err != nil {
		return fmt.Errorf("unfavorite album %d: %w", album.ID, err)
	}
	s.invalidate()
	return nil
}

// IsFavoriteAlbum reports whether a row exists for id.
func (s *FavoriteStore) IsFavoriteAlbum(ctx context.Context, id int) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.Album{}).Where("id = ?", id).Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("query favorite %d: %w", id, err)
	}
	return n > 0, nil
}

// FetchFavoriteAlbums 返回所有收藏的专辑
func (s *FavoriteStore) FetchFavoriteAlbums(ctx context.Context) ([]model.Album, error) {
	albums := []model.Album{}
	if err := s.db.WithContext(ctx).Order("id").Find(&albums).Error; err != nil {
		return nil, fmt.Errorf("fetch favorite albums: %w", err)
	}
	return albums, nil
}

// WatchIsFavorite 先发送当前收藏状态，之后每次写入后重新发送。ctx 结束时关闭通道
func (s *FavoriteStore) WatchIsFavorite(ctx context.Context, id int) <-chan bool {
	return watchQuery(ctx, s, func(ctx context.Context) (bool, error) {
		return s.IsFavoriteAlbum(ctx, id)
	})
}

// WatchFavorites 同 WatchIsFavorite，但观察整个收藏列表
func (s *FavoriteStore) WatchFavorites(ctx context.Context) <-chan []model.Album {
	return watchQuery(ctx, s, s.FetchFavoriteAlbums)
}

func (s *FavoriteStore) register() (int, <-chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	ch := make(chan struct{}, 1)
	s.triggers[id] = ch
	return id, ch
}

func (s *FavoriteStore) unregister(id int) {
	s.mu.Lock()
	delete(s.triggers, id)
	s.mu.Unlock()
}

func (s *FavoriteStore) invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.triggers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// watchQuery 重新执行 query 并以“只保留最新值”的方式发送结果
func watchQuery[T any](ctx context.Context, s *FavoriteStore, query func(context.Context) (T, error)) <-chan T {
	out := make(chan T, 1)
	id, trigger := s.register()

	go func() {
		defer close(out)
		defer s.unregister(id)
		for {
			v, err := query(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Warn("favorite watch query failed", logger.ErrorField(err))
			} else {
				publishLatest(out, v)
			}

			select {
			case <-trigger:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func publishLatest[T any](out chan T, v T) {
	select {
	case out <- v:
	default:
		select {
		case <-out:
		default:
		}
		out <- v
	}
}
