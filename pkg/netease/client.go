package netease

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const defaultBaseURL = "https://music.163.com"

var logger = log.With().Str("component", "netease").Logger()

// searchResponse 网易云搜索API响应
type searchResponse struct {
	Result struct {
		Songs []struct {
			ID       int    `json:"id"`
			Name     string `json:"name"`
			Duration int    `json:"duration"` // 毫秒
			Artists  []struct {
				Name string `json:"name"`
			} `json:"artists"`
		} `json:"songs"`
	} `json:"result"`
}

// lyricResponse 网易云歌词API响应
type lyricResponse struct {
	Lrc struct {
		Lyric string `json:"lyric"`
	} `json:"lrc"`
	Tlyric struct {
		Lyric string `json:"lyric"`
	} `json:"tlyric"`
}

// Client 网易云音乐客户端
type Client struct {
	httpClient     *http.Client
	baseURL        string
	cookie         string
	maxRetries     int
	requestTimeout time.Duration
}

// NewClient baseURL 为空时使用官方地址，Cookie 取自 NETEASE_COOKIE
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		httpClient:     &http.Client{Timeout: 10 * time.Second},
		baseURL:        strings.TrimRight(baseURL, "/"),
		cookie:         os.Getenv("NETEASE_COOKIE"),
		maxRetries:     2,
		requestTimeout: 5 * time.Second,
	}
}

func (c *Client) GetProviderName() string {
	return "NetEase Cloud Music"
}

func (c *Client) SearchSong(ctx context.Context, title, artist string) (string, error) {
	params := url.Values{}
	params.Set("s", strings.TrimSpace(title+" "+artist))
	params.Set("type", "1")
	params.Set("limit", "30")
	searchURL := fmt.Sprintf("%s/api/search/get/web?%s", c.baseURL, params.Encode())

	var searchResp searchResponse
	if err := c.getJSON(ctx, searchURL, &searchResp); err != nil {
		return "", fmt.Errorf("search failed: %w", err)
	}
	if len(searchResp.Result.Songs) == 0 {
		return "", fmt.Errorf("no songs found for '%s'", title)
	}

	songID := findBestMatch(searchResp, title, artist)
	if songID == 0 {
		return "", fmt.Errorf("no matching song found for '%s' by '%s'", title, artist)
	}
	return strconv.Itoa(songID), nil
}

// GetLyrics 返回原文 LRC，翻译歌词(tlyric)不参与同步
func (c *Client) GetLyrics(ctx context.Context, songID string) (string, error) {
	lyricURL := fmt.Sprintf("%s/api/song/lyric?os=pc&id=%s&lv=-1&kv=-1&tv=-1", c.baseURL, url.QueryEscape(songID))

	var lyricResp lyricResponse
	if err := c.getJSON(ctx, lyricURL, &lyricResp); err != nil {
		return "", fmt.Errorf("lyric request failed: %w", err)
	}
	if strings.TrimSpace(lyricResp.Lrc.Lyric) == "" {
		return "", fmt.Errorf("song %s has no lyrics", songID)
	}
	return lyricResp.Lrc.Lyric, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}

	resp, err := c.doRequestWithRetry(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// doRequestWithRetry 对网络错误和 5xx 重试，最多 maxRetries 次；
// 每次尝试单独受 requestTimeout 限制，请求自身的 context 取消后立即返回
func (c *Client) doRequestWithRetry(req *http.Request) (*http.Response, error) {
	parent := req.Context()
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			logger.Info().Int("attempt", attempt).Int("max_retries", c.maxRetries).Str("url", req.URL.Path).Msg("Retrying request")
			select {
			case <-parent.Done():
				return nil, fmt.Errorf("request canceled: %w", parent.Err())
			case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
			}
		}

		ctx, cancel := context.WithTimeout(parent, c.requestTimeout)
		resp, err := c.httpClient.Do(req.Clone(ctx))
		if err == nil && resp.StatusCode == http.StatusOK {
			resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
			return resp, nil
		}

		if err != nil {
			lastErr = err
		} else {
			resp.Body.Close()
			lastErr = fmt.Errorf("unexpected status %d", resp.StatusCode)
			if resp.StatusCode < 500 {
				cancel()
				return nil, lastErr
			}
		}
		cancel()
		logger.Warn().Err(lastErr).Int("attempt", attempt+1).Msg("Request failed")

		if parent.Err() != nil {
			return nil, fmt.Errorf("request canceled: %w", parent.Err())
		}
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

// cancelOnClose 在响应体关闭时释放单次尝试的超时 context
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

// findBestMatch 标题包含且任一歌手包含的优先，否则退回第一个标题匹配的
func findBestMatch(resp searchResponse, targetTitle, targetArtist string) int {
	firstTitleMatch := 0
	for _, song := range resp.Result.Songs {
		if !containsIgnoreCase(song.Name, targetTitle) {
			continue
		}
		if firstTitleMatch == 0 {
			firstTitleMatch = song.ID
		}
		for _, artist := range song.Artists {
			if containsIgnoreCase(artist.Name, targetArtist) {
				logger.Info().Str("name", song.Name).Str("artist", artist.Name).Int("id", song.ID).Msg("Found matching song")
				return song.ID
			}
		}
	}
	if firstTitleMatch != 0 {
		logger.Info().Int("id", firstTitleMatch).Msg("Using first title match")
	}
	return firstTitleMatch
}

// normalizeString 转小写并去掉空格
func normalizeString(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), " ", "")
}

// containsIgnoreCase 忽略大小写和空格，任一方包含另一方即可
func containsIgnoreCase(s1, s2 string) bool {
	norm1, norm2 := normalizeString(s1), normalizeString(s2)
	if norm1 == "" || norm2 == "" {
		return false
	}
	return strings.Contains(norm1, norm2) || strings.Contains(norm2, norm1)
}
