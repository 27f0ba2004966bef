package song

import (
	"context"
	"errors"
	"time"

	"lyrics-viewer/internal/timeline"
)

var (
	ErrSongNotFound        = errors.New("song not found")
	ErrTranslationNotFound = errors.New("translation not found")
	ErrInvalidSong         = errors.New("invalid song")
)

// Song 歌曲及其歌词
type Song struct {
	ID           string                       `json:"id" yaml:"id"`
	Title        string                       `json:"title" yaml:"title"`
	Artist       string                       `json:"artist" yaml:"artist"`
	Album        string                       `json:"album,omitempty" yaml:"album,omitempty"`
	Year         int                          `json:"year,omitempty" yaml:"year,omitempty"`
	Duration     float64                      `json:"duration,omitempty" yaml:"duration,omitempty"` // 秒
	YoutubeID    string                       `json:"youtubeId,omitempty" yaml:"youtube_id,omitempty"`
	Lyrics       timeline.Timeline            `json:"lyrics" yaml:"lyrics"`
	Translations map[string]timeline.Timeline `json:"translations" yaml:"-"`
}

// Translation 某首歌某种语言的翻译，按 (SongID, Language) 唯一
type Translation struct {
	ID               string            `json:"id"`
	SongID           string            `json:"songId"`
	Language         string            `json:"language"`
	TranslatedLyrics timeline.Timeline `json:"translatedLyrics"`
	CreatedAt        time.Time         `json:"createdAt"`
}

// CreateRequest 新建歌曲。Lyrics 和 LRC 二选一。
type CreateRequest struct {
	ID        string            `json:"id,omitempty"`
	Title     string            `json:"title"`
	Artist    string            `json:"artist"`
	Album     string            `json:"album,omitempty"`
	Year      int               `json:"year,omitempty"`
	Duration  float64           `json:"duration,omitempty"`
	YoutubeID string            `json:"youtubeId,omitempty"`
	Lyrics    timeline.Timeline `json:"lyrics,omitempty"`
	LRC       string            `json:"lrc,omitempty"`
}

// Repository 歌曲与翻译存储
type Repository interface {
	GetSong(ctx context.Context, id string) (*Song, error)
	GetAllSongs(ctx context.Context) ([]*Song, error)
	SearchSongs(ctx context.Context, query string) ([]*Song, error)
	CreateSong(ctx context.Context, req CreateRequest) (*Song, error)

	GetTranslation(ctx context.Context, songID, language string) (*Translation, error)
	CreateTranslation(ctx context.Context, songID, language string, lyrics timeline.Timeline) (*Translation, error)
	GetTranslationsForSong(ctx context.Context, songID string) ([]*Translation, error)
}
