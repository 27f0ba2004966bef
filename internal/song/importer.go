package song

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"lyrics-viewer/internal/timeline"
)

var (
	ErrNoSyncedLyrics = errors.New("no synced lyrics found")
	// ErrLyricsUnavailable 所有在线歌词源都请求失败
	ErrLyricsUnavailable = errors.New("lyrics providers unavailable")
)

// LyricsFetcher 按歌曲信息获取 LRC 歌词，music.Manager 实现了它
type LyricsFetcher interface {
	GetLyricsByInfo(ctx context.Context, title, artist string, duration float64) (string, error)
}

// ImportRequest 从在线歌词库导入一首歌
type ImportRequest struct {
	Title     string  `json:"title"`
	Artist    string  `json:"artist"`
	Album     string  `json:"album,omitempty"`
	Duration  float64 `json:"duration,omitempty"`
	YoutubeID string  `json:"youtubeId,omitempty"`
}

type Importer struct {
	repo    Repository
	fetcher LyricsFetcher
}

func NewImporter(repo Repository, fetcher LyricsFetcher) *Importer {
	return &Importer{repo: repo, fetcher: fetcher}
}

// Import 拉取带时间轴的歌词并写入仓库
func (im *Importer) Import(ctx context.Context, req ImportRequest) (*Song, error) {
	if req.Title == "" || req.Artist == "" {
		return nil, fmt.Errorf("%w: title and artist are required", ErrInvalidSong)
	}

	logger := log.With().Str("component", "song-importer").Str("title", req.Title).Str("artist", req.Artist).Logger()

	lrc, err := im.fetcher.GetLyricsByInfo(ctx, req.Title, req.Artist, req.Duration)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to fetch lyrics")
		return nil, fmt.Errorf("%w: %w", ErrLyricsUnavailable, err)
	}

	lines := timeline.ParseLRC(lrc)
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w for '%s - %s'", ErrNoSyncedLyrics, req.Title, req.Artist)
	}

	song, err := im.repo.CreateSong(ctx, CreateRequest{
		Title:     req.Title,
		Artist:    req.Artist,
		Album:     req.Album,
		Duration:  req.Duration,
		YoutubeID: req.YoutubeID,
		Lyrics:    lines,
	})
	if err != nil {
		return nil, err
	}
	logger.Info().Str("song_id", song.ID).Int("lines", len(lines)).Msg("Song imported")
	return song, nil
}
