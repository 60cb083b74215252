package model

// Song 歌曲，只作为播放列表的一部分临时获取，不落库
type Song struct {
	Name   string `json:"name"`
	Lyric  string `json:"lyric"`
	Src    string `json:"src"`    // 可播放的媒体地址，通常是 songs/xxx.mp3
	Length string `json:"length"` // 展示用时长，例如 "3:45"
}

// Playlist 一张专辑对应的有序歌曲列表
type Playlist struct {
	ID    int64  `json:"id"`
	Songs []Song `json:"songs"`
}

// Section 首页上的一个专辑分组
type Section struct {
	SectionTitle string  `json:"section_title"`
	Albums       []Album `json:"albums"`
}
