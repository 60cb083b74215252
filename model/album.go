package model

// Album 表示一张专辑；只有被收藏时才会写入本地数据库
type Album struct {
	ID          int    `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Name        string `json:"album" gorm:"column:name"`
	Year        string `json:"year"`
	Cover       string `json:"cover"`
	Artists     string `json:"artists"`
	Description string `json:"description"`
}

// TableName 固定收藏表名
func (Album) TableName() string {
	return "albums"
}

// EmptyAlbum is the placeholder album shown before a playlist is opened.
func EmptyAlbum() Album {
	return Album{ID: -1}
}
