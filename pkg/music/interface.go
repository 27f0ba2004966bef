package music

import (
	"context"
)

// MusicAPI 音乐API通用接口
type MusicAPI interface {
	// SearchSong 搜索歌曲，返回歌曲ID
	SearchSong(ctx context.Context, title, artist string) (string, error)

	// GetLyrics 根据歌曲ID获取歌词
	GetLyrics(ctx context.Context, songID string) (string, error)

	GetProviderName() string
}

// InfoLyricsAPI 可以直接按歌曲信息（含时长）查歌词的提供商，例如 LRCLib
type InfoLyricsAPI interface {
	MusicAPI
	GetLyricsByInfo(ctx context.Context, title, artist string, duration float64) (string, error)
}

// MusicManager 音乐管理器接口（扩展接口，包含组合操作）
type MusicManager interface {
	MusicAPI

	// GetLyricsByInfo 根据歌曲信息直接获取歌词（封装搜索+获取歌词）
	GetLyricsByInfo(ctx context.Context, title, artist string, duration float64) (string, error)
}
