package music

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Provider 音乐提供商类型
type Provider string

const (
	// ProviderLRCLib LRCLib歌词库
	ProviderLRCLib Provider = "lrclib"
	// ProviderNetEase 网易云音乐
	ProviderNetEase Provider = "netease"
)

var ErrNoProviders = errors.New("no music providers available")

var logger = log.With().Str("component", "music-manager").Logger()

// Manager 按顺序尝试多个提供商
type Manager struct {
	providers []MusicAPI
	primary   MusicAPI
}

func NewManager(providers []MusicAPI) *Manager {
	if len(providers) == 0 {
		logger.Warn().Msg("No music providers configured")
		return &Manager{}
	}

	primary := providers[0]
	logger.Info().
		Int("provider_count", len(providers)).
		Str("primary_provider", primary.GetProviderName()).
		Msg("Music API Manager initialized")

	return &Manager{
		providers: providers,
		primary:   primary,
	}
}

// each 依次调用 fn，第一个成功的结果返回
func (m *Manager) each(op string, fn func(MusicAPI) (string, error)) (string, error) {
	if len(m.providers) == 0 {
		return "", ErrNoProviders
	}

	var lastErr error
	for i, provider := range m.providers {
		l := logger.With().Str("provider", provider.GetProviderName()).Str("op", op).Logger()
		l.Debug().Int("attempt", i+1).Int("total_providers", len(m.providers)).Msg("Trying provider")

		result, err := fn(provider)
		if err == nil && result != "" {
			l.Info().Msg("Provider succeeded")
			return result, nil
		}
		if err == nil {
			err = fmt.Errorf("%s returned empty result", provider.GetProviderName())
		}
		l.Warn().Err(err).Msg("Provider failed")
		lastErr = err
	}
	return "", fmt.Errorf("all providers failed, last error: %w", lastErr)
}

func (m *Manager) SearchSong(ctx context.Context, title, artist string) (string, error) {
	return m.each("search", func(p MusicAPI) (string, error) {
		return p.SearchSong(ctx, title, artist)
	})
}

func (m *Manager) GetLyrics(ctx context.Context, songID string) (string, error) {
	return m.each("lyrics", func(p MusicAPI) (string, error) {
		return p.GetLyrics(ctx, songID)
	})
}

// GetLyricsByInfo 根据歌曲信息直接获取歌词（封装搜索+获取歌词）
func (m *Manager) GetLyricsByInfo(ctx context.Context, title, artist string, duration float64) (string, error) {
	lyrics, err := m.each("lyrics-by-info", func(p MusicAPI) (string, error) {
		if info, ok := p.(InfoLyricsAPI); ok {
			return info.GetLyricsByInfo(ctx, title, artist, duration)
		}
		songID, err := p.SearchSong(ctx, title, artist)
		if err != nil {
			return "", fmt.Errorf("search: %w", err)
		}
		if songID == "" {
			return "", fmt.Errorf("search returned no song id")
		}
		return p.GetLyrics(ctx, songID)
	})
	if err != nil {
		return "", fmt.Errorf("failed to get lyrics for '%s - %s': %w", title, artist, err)
	}
	return lyrics, nil
}

// GetProviderName 获取管理器名称（实现MusicAPI接口）
func (m *Manager) GetProviderName() string {
	if m.primary != nil {
		return fmt.Sprintf("Manager[Primary: %s]", m.primary.GetProviderName())
	}
	return "Manager[No Providers]"
}

func (m *Manager) GetProviderNames() []string {
	names := make([]string, len(m.providers))
	for i, provider := range m.providers {
		names[i] = provider.GetProviderName()
	}
	return names
}
