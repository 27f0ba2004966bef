package translation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"lyrics-viewer/internal/offline"
	"lyrics-viewer/internal/song"
	"lyrics-viewer/internal/timeline"
)

var ErrEmptyText = errors.New("text is required")

// Service 翻译读取顺序：仓库 -> 离线缓存 -> 翻译后端。
// 后端成功后同时写入仓库和离线缓存。
type Service struct {
	repo        song.Repository
	cache       offline.Cache
	provider    Provider
	timeout     time.Duration
	defaultLang string
	group       singleflight.Group
	logger      zerolog.Logger
}

type ServiceOptions struct {
	Timeout         time.Duration
	DefaultLanguage string
}

func NewService(repo song.Repository, cache offline.Cache, provider Provider, opts ServiceOptions) *Service {
	if opts.DefaultLanguage == "" {
		opts.DefaultLanguage = "es"
	}
	return &Service{
		repo:        repo,
		cache:       cache,
		provider:    provider,
		timeout:     opts.Timeout,
		defaultLang: opts.DefaultLanguage,
		logger:      log.With().Str("component", "translation").Logger(),
	}
}

func (s *Service) DefaultLanguage() string {
	return s.defaultLang
}

func (s *Service) ProviderName() string {
	return s.provider.Name()
}

// Translate 返回某首歌的译文；同一 (歌曲, 语言) 的并发请求只调用一次后端。
// 共享的调用不跟随任何一个调用方的取消，只受 timeout 限制；调用方自己的 ctx 取消时提前返回。
func (s *Service) Translate(ctx context.Context, songID, lang string) (*song.Translation, error) {
	lang = s.normalize(lang)

	if tr, err := s.fromRepo(ctx, songID, lang); tr != nil || err != nil {
		return tr, err
	}

	ch := s.group.DoChan(songID+"\x00"+lang, func() (any, error) {
		return s.translate(context.WithoutCancel(ctx), songID, lang)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			s.logger.Debug().Str("song_id", songID).Str("language", lang).Msg("Joined in-flight translation")
		}
		return res.Val.(*song.Translation), nil
	}
}

// fromRepo 仓库里的译文时间轴与当前歌词对不上时视为未命中
func (s *Service) fromRepo(ctx context.Context, songID, lang string) (*song.Translation, error) {
	tr, err := s.repo.GetTranslation(ctx, songID, lang)
	if errors.Is(err, song.ErrTranslationNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sng, err := s.repo.GetSong(ctx, songID)
	if err != nil {
		return nil, err
	}
	if err := checkAligned(sng.Lyrics, tr.TranslatedLyrics); err != nil {
		s.logger.Warn().Err(err).Str("song_id", songID).Str("language", lang).Msg("Ignoring stale stored translation")
		return nil, nil
	}
	return tr, nil
}

func (s *Service) translate(ctx context.Context, songID, lang string) (*song.Translation, error) {
	l := s.logger.With().Str("song_id", songID).Str("language", lang).Logger()

	// 等待期间可能已有别的请求写入
	if tr, err := s.fromRepo(ctx, songID, lang); tr != nil || err != nil {
		return tr, err
	}

	sng, err := s.repo.GetSong(ctx, songID)
	if err != nil {
		return nil, err
	}

	if lines, ok := s.fromCache(ctx, sng, lang); ok {
		l.Info().Msg("Translation restored from offline cache")
		return s.repo.CreateTranslation(ctx, songID, lang, lines)
	}

	translated, err := s.callProvider(ctx, sng.Lyrics, lang)
	if err != nil {
		l.Warn().Err(err).Str("provider", s.provider.Name()).Msg("Translation failed")
		return nil, err
	}

	tr, err := s.repo.CreateTranslation(ctx, songID, lang, translated)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Put(ctx, offline.Entry{SongID: songID, Language: lang, Lyrics: translated}); err != nil {
		l.Warn().Err(err).Msg("Failed to write offline cache")
	}
	l.Info().Str("provider", s.provider.Name()).Int("lines", len(translated)).Msg("Song translated")
	return tr, nil
}

// fromCache 缓存条目的时间轴与当前歌词不一致时视为失效
func (s *Service) fromCache(ctx context.Context, sng *song.Song, lang string) (timeline.Timeline, bool) {
	entry, ok, err := s.cache.Get(ctx, sng.ID, lang)
	if err != nil {
		s.logger.Warn().Err(err).Str("song_id", sng.ID).Msg("Offline cache read failed")
		return nil, false
	}
	if !ok {
		return nil, false
	}
	if err := checkAligned(sng.Lyrics, entry.Lyrics); err != nil {
		s.logger.Warn().Err(err).Str("song_id", sng.ID).Str("language", lang).Msg("Ignoring stale offline translation")
		return nil, false
	}
	return entry.Lyrics, true
}

func (s *Service) callProvider(ctx context.Context, lines timeline.Timeline, lang string) (timeline.Timeline, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	translated, err := s.provider.TranslateLyrics(ctx, lines, lang)
	if err == nil {
		err = checkAligned(lines, translated)
	}
	if err != nil {
		if errors.Is(err, ErrUnavailable) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrUnavailable, s.provider.Name(), err)
	}
	return translated, nil
}

// TranslateText 任意文本翻译，不缓存
func (s *Service) TranslateText(ctx context.Context, text, lang string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.provider.TranslateText(ctx, text, s.normalize(lang))
}

// Lyrics 返回指定语言的歌词；lang 为空或为 "original" 时返回原歌词。
// 翻译失败时返回原歌词和错误，调用方可以据此降级显示。
func (s *Service) Lyrics(ctx context.Context, sng *song.Song, lang string) (timeline.Timeline, error) {
	if lang == "" || lang == "original" {
		return sng.Lyrics, nil
	}
	tr, err := s.Translate(ctx, sng.ID, lang)
	if err != nil {
		return sng.Lyrics, err
	}
	return tr.TranslatedLyrics, nil
}

func (s *Service) normalize(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return s.defaultLang
	}
	return lang
}

// Cache 离线缓存，供 HTTP 层查询统计
func (s *Service) Cache() offline.Cache {
	return s.cache
}
