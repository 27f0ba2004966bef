// Package lyrics 把桌面播放器正在播放的曲目解析成歌曲仓库里的一首歌
package lyrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lyrics-viewer/internal/player"
	"lyrics-viewer/internal/song"
	"lyrics-viewer/pkg/ai"
	musiccache "lyrics-viewer/pkg/musicCache"
)

var ErrNotASong = errors.New("media is not a song")

const maxRetries = 3

// Importer 从在线歌词库导入歌曲，song.Importer 实现了它
type Importer interface {
	Import(ctx context.Context, req song.ImportRequest) (*song.Song, error)
}

// SongInfo AI 从媒体标题里提取的歌曲信息
type SongInfo struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	IsSong bool   `json:"is_song"`
}

func formatQuerySong(title string) string {
	return fmt.Sprintf(`请精确地按照以下JSON格式提取歌曲信息: {"is_song": true, "title": "歌曲标题", "artist": "演唱者"}。  输入是一个媒体标题，如果标题中包含歌曲信息，请返回符合格式的JSON；否则，返回{"is_song": false}。 请注意，"title" 和 "artist" 必须准确，否则将被视为错误，切记不要任何markdown格式，并将繁体中文转换为简体。 媒体标题是：%s`, title)
}

// Resolver 查找顺序：曲目映射 -> 仓库搜索 -> (AI 清洗标题) -> 在线导入
type Resolver struct {
	repo     song.Repository
	importer Importer         // 可为空
	tracks   *musiccache.Store // 可为空
	aiClient ai.AiInterface   // 可为空，为空时直接用播放器给的标题
	retryGap time.Duration
	logger   zerolog.Logger
}

func NewResolver(repo song.Repository, importer Importer, tracks *musiccache.Store, aiClient ai.AiInterface) *Resolver {
	return &Resolver{
		repo:     repo,
		importer: importer,
		tracks:   tracks,
		aiClient: aiClient,
		retryGap: time.Second,
		logger:   log.With().Str("component", "lyrics-resolver").Logger(),
	}
}

// TrackKey 曲目映射里使用的键
func TrackKey(t player.Track) string {
	if t.Artist == "" {
		return t.Title
	}
	return t.Artist + " - " + t.Title
}

func (r *Resolver) Resolve(ctx context.Context, track player.Track) (*song.Song, error) {
	key := TrackKey(track)
	logger := r.logger.With().Str("track", key).Logger()

	if r.tracks != nil {
		if id, err := r.tracks.Get(key); err == nil {
			sng, err := r.repo.GetSong(ctx, id)
			if err == nil {
				logger.Debug().Str("song_id", id).Msg("Track cache HIT")
				return sng, nil
			}
			logger.Warn().Err(err).Str("song_id", id).Msg("Cached song missing from repository")
		}
	}

	if sng := r.search(ctx, track.Title, track.Artist); sng != nil {
		r.remember(key, sng.ID)
		return sng, nil
	}

	info := SongInfo{Title: track.Title, Artist: track.Artist, IsSong: true}
	if r.aiClient != nil {
		parsed, err := r.parseTitle(ctx, key)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to parse media title, using player metadata")
		} else if !parsed.IsSong {
			return nil, fmt.Errorf("%w: %s", ErrNotASong, key)
		} else {
			info = parsed
			logger.Info().Str("title", info.Title).Str("artist", info.Artist).Msg("AI returned song info")
			if sng := r.search(ctx, info.Title, info.Artist); sng != nil {
				r.remember(key, sng.ID)
				return sng, nil
			}
		}
	}

	if r.importer == nil {
		return nil, fmt.Errorf("%w: %s", song.ErrSongNotFound, key)
	}
	sng, err := r.importer.Import(ctx, song.ImportRequest{
		Title:    info.Title,
		Artist:   info.Artist,
		Duration: track.Duration,
	})
	if err != nil {
		return nil, err
	}
	r.remember(key, sng.ID)
	return sng, nil
}

// search 标题相同且歌手相同（或未知）时命中
func (r *Resolver) search(ctx context.Context, title, artist string) *song.Song {
	if title == "" {
		return nil
	}
	found, err := r.repo.SearchSongs(ctx, title)
	if err != nil {
		return nil
	}
	for _, sng := range found {
		if !strings.EqualFold(sng.Title, title) {
			continue
		}
		if artist == "" || strings.EqualFold(sng.Artist, artist) {
			return sng
		}
	}
	return nil
}

func (r *Resolver) remember(key, songID string) {
	if r.tracks == nil {
		return
	}
	if err := r.tracks.Add(key, songID); err != nil {
		r.logger.Warn().Err(err).Str("track", key).Msg("Failed to save track cache")
	}
}

func (r *Resolver) parseTitle(ctx context.Context, mediaTitle string) (SongInfo, error) {
	var (
		raw string
		err error
	)
	for i := 0; i < maxRetries; i++ {
		raw, err = r.aiClient.HandleText(ctx, formatQuerySong(mediaTitle))
		if err == nil {
			break
		}
		r.logger.Warn().Err(err).Int("attempt", i+1).Int("max", maxRetries).Msgf("Failed to query %s", r.aiClient.Name())
		select {
		case <-ctx.Done():
			return SongInfo{}, ctx.Err()
		case <-time.After(r.retryGap):
		}
	}
	if err != nil {
		return SongInfo{}, fmt.Errorf("failed to query %s after %d attempts: %w", r.aiClient.Name(), maxRetries, err)
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return SongInfo{}, fmt.Errorf("no JSON object in response: %q", raw)
	}
	var info SongInfo
	if err := json.Unmarshal([]byte(raw[start:end+1]), &info); err != nil {
		return SongInfo{}, fmt.Errorf("failed to parse %s response: %w", r.aiClient.Name(), err)
	}
	if info.IsSong && info.Title == "" {
		return SongInfo{}, fmt.Errorf("empty title in response: %q", raw)
	}
	return info, nil
}
