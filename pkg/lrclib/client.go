package lrclib

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const defaultBaseURL = "https://lrclib.net/api"

var ErrNotFound = errors.New("no synced lyrics on lrclib")

var logger = log.With().Str("component", "lrclib").Logger()

// Client LRCLib客户端
type Client struct {
	httpClient     *http.Client
	baseURL        string
	requestTimeout time.Duration
	maxRetries     int
	retryBackoff   time.Duration
}

// Track LRCLib API 返回的一条记录
type Track struct {
	ID           int     `json:"id"`
	TrackName    string  `json:"trackName"`
	ArtistName   string  `json:"artistName"`
	AlbumName    string  `json:"albumName"`
	Duration     float64 `json:"duration"`
	Instrumental bool    `json:"instrumental"`
	PlainLyrics  string  `json:"plainLyrics"`
	SyncedLyrics string  `json:"syncedLyrics"`
}

// NewClient 创建新的LRCLib客户端，baseURL 为空时使用官方地址
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		httpClient:     &http.Client{Timeout: 5 * time.Second},
		baseURL:        strings.TrimRight(baseURL, "/"),
		requestTimeout: 5 * time.Second,
		maxRetries:     2,
		retryBackoff:   500 * time.Millisecond,
	}
}

func (c *Client) GetProviderName() string {
	return "LRCLib"
}

// SearchSong LRCLib 没有独立的搜索步骤，直接把查询参数编码成"ID"
func (c *Client) SearchSong(ctx context.Context, title, artist string) (string, error) {
	return title + "|" + artist, nil
}

func (c *Client) GetLyrics(ctx context.Context, songID string) (string, error) {
	title, artist, ok := strings.Cut(songID, "|")
	if !ok {
		return "", fmt.Errorf("invalid song ID format: %s", songID)
	}
	return c.GetLyricsByInfo(ctx, title, artist, 0)
}

// GetLyricsByInfo 返回最匹配的同步歌词（LRC），duration 用于在同名结果中挑选版本
func (c *Client) GetLyricsByInfo(ctx context.Context, title, artist string, duration float64) (string, error) {
	params := url.Values{}
	params.Set("track_name", title)
	params.Set("artist_name", artist)
	searchURL := fmt.Sprintf("%s/search?%s", c.baseURL, params.Encode())

	tracks, err := c.search(ctx, searchURL)
	if err != nil {
		return "", err
	}
	logger.Info().Int("results", len(tracks)).Str("title", title).Str("artist", artist).Msg("Search finished")

	best := findBestMatch(tracks, title, artist, duration)
	if best == nil {
		return "", fmt.Errorf("%w for '%s - %s'", ErrNotFound, title, artist)
	}
	logger.Info().
		Str("track", best.TrackName).
		Str("artist", best.ArtistName).
		Float64("duration", best.Duration).
		Float64("target", duration).
		Msg("Selected synced lyrics")
	return best.SyncedLyrics, nil
}

func (c *Client) search(ctx context.Context, searchURL string) ([]Track, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			logger.Info().Int("attempt", attempt).Int("max_retries", c.maxRetries).Msg("Retrying request")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * c.retryBackoff):
			}
		}

		tracks, retry, err := c.searchOnce(ctx, searchURL)
		if err == nil {
			return tracks, nil
		}
		logger.Warn().Err(err).Int("attempt", attempt+1).Msg("Request failed")
		lastErr = err
		if !retry {
			break
		}
	}
	return nil, fmt.Errorf("lrclib request failed: %w", lastErr)
}

func (c *Client) searchOnce(ctx context.Context, searchURL string) ([]Track, bool, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "lyrics-viewer/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode >= 500, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var tracks []Track
	if err := json.NewDecoder(resp.Body).Decode(&tracks); err != nil {
		return nil, false, fmt.Errorf("failed to decode response: %w", err)
	}
	return tracks, false, nil
}

// findBestMatch 只考虑带同步歌词的结果：
// 标题+歌手都匹配优先，其次仅标题匹配，最后全部；同一档内取时长最接近的
func findBestMatch(tracks []Track, title, artist string, duration float64) *Track {
	var exact, titleOnly, rest []*Track
	for i := range tracks {
		t := &tracks[i]
		if t.Instrumental || t.SyncedLyrics == "" {
			continue
		}
		switch {
		case containsIgnoreCase(t.TrackName, title) && containsIgnoreCase(t.ArtistName, artist):
			exact = append(exact, t)
		case containsIgnoreCase(t.TrackName, title):
			titleOnly = append(titleOnly, t)
		default:
			rest = append(rest, t)
		}
	}

	for _, pool := range [][]*Track{exact, titleOnly, rest} {
		if len(pool) == 0 {
			continue
		}
		if duration <= 0 {
			return pool[0]
		}
		best := pool[0]
		for _, t := range pool[1:] {
			if absDiff(t.Duration, duration) < absDiff(best.Duration, duration) {
				best = t
			}
		}
		return best
	}
	return nil
}

func absDiff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}

func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
