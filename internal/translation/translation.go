package translation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lyrics-viewer/internal/timeline"
)

var (
	// ErrUnavailable 后端不可达、未配置或鉴权失败
	ErrUnavailable = errors.New("translation service unavailable")
	// ErrMisaligned 译文行数或时间戳与原文不一致
	ErrMisaligned = errors.New("translation misaligned with source lyrics")
)

// Provider 翻译后端
type Provider interface {
	Name() string
	// TranslateLyrics 返回与输入等长、时间戳一致的新序列，只替换文本
	TranslateLyrics(ctx context.Context, lines timeline.Timeline, lang string) (timeline.Timeline, error)
	TranslateText(ctx context.Context, text, lang string) (string, error)
}

// batcher 各后端只需实现批量文本翻译
type batcher interface {
	translateBatch(ctx context.Context, texts []string, lang string) ([]string, error)
}

// translateLines 只把非空行送去翻译，空行（间奏）原样保留；
// 某行译文为空时保留原文
func translateLines(ctx context.Context, b batcher, lines timeline.Timeline, lang string) (timeline.Timeline, error) {
	out := lines.Clone()

	var texts []string
	var idx []int
	for i, l := range lines {
		if strings.TrimSpace(l.Text) == "" {
			continue
		}
		texts = append(texts, l.Text)
		idx = append(idx, i)
	}
	if len(texts) == 0 {
		return out, nil
	}

	translated, err := b.translateBatch(ctx, texts, lang)
	if err != nil {
		return nil, err
	}
	if len(translated) != len(texts) {
		return nil, fmt.Errorf("%w: got %d lines for %d", ErrMisaligned, len(translated), len(texts))
	}
	for j, i := range idx {
		if t := strings.TrimSpace(translated[j]); t != "" {
			out[i].Text = t
		}
	}

	if err := checkAligned(lines, out); err != nil {
		return nil, err
	}
	return out, nil
}

func checkAligned(src, dst timeline.Timeline) error {
	if !timeline.SameTiming(src, dst) {
		return fmt.Errorf("%w: %d source lines, %d translated", ErrMisaligned, len(src), len(dst))
	}
	return nil
}

func unavailable(provider string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, provider, err)
}

// Disabled 未配置凭证时使用，所有请求立即失败
type Disabled struct {
	Reason string
}

func (d Disabled) Name() string {
	return "disabled"
}

func (d Disabled) TranslateLyrics(ctx context.Context, lines timeline.Timeline, lang string) (timeline.Timeline, error) {
	return nil, fmt.Errorf("%w: %s", ErrUnavailable, d.Reason)
}

func (d Disabled) TranslateText(ctx context.Context, text, lang string) (string, error) {
	return "", fmt.Errorf("%w: %s", ErrUnavailable, d.Reason)
}
