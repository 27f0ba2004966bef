package translation

import (
	"context"
	"errors"
	"fmt"
	"html"

	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
	translate "google.golang.org/api/translate/v2"

	"lyrics-viewer/internal/timeline"
)

// googleBatchLimit Cloud Translation v2 单次请求最多 128 段文本
const googleBatchLimit = 128

var _ Provider = (*Google)(nil)

// Google Cloud Translation v2，API key 鉴权
type Google struct {
	svc    *translate.Service
	source string
}

// NewGoogle apiKey 为空时直接报错；endpoint 为空时使用官方地址
func NewGoogle(ctx context.Context, apiKey, endpoint, source string) (*Google, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: google translate api key not configured", ErrUnavailable)
	}

	opts := []option.ClientOption{option.WithAPIKey(apiKey)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	svc, err := translate.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create google translate client: %w", err)
	}
	return &Google{svc: svc, source: source}, nil
}

func (g *Google) Name() string {
	return "google"
}

func (g *Google) TranslateLyrics(ctx context.Context, lines timeline.Timeline, lang string) (timeline.Timeline, error) {
	return translateLines(ctx, g, lines, lang)
}

func (g *Google) TranslateText(ctx context.Context, text, lang string) (string, error) {
	out, err := g.translateBatch(ctx, []string{text}, lang)
	if err != nil {
		return "", err
	}
	return out[0], nil
}

func (g *Google) translateBatch(ctx context.Context, texts []string, lang string) ([]string, error) {
	out := make([]string, 0, len(texts))
	for start := 0; start < len(texts); start += googleBatchLimit {
		end := min(start+googleBatchLimit, len(texts))

		call := g.svc.Translations.List(texts[start:end], lang).Format("text").Context(ctx)
		if g.source != "" {
			call = call.Source(g.source)
		}
		resp, err := call.Do()
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil, err
			}
			log.Error().Err(err).Str("target", lang).Msg("Google translate request failed")
			return nil, unavailable("google", err)
		}
		if len(resp.Translations) != end-start {
			return nil, fmt.Errorf("%w: google returned %d translations for %d lines", ErrMisaligned, len(resp.Translations), end-start)
		}
		for _, tr := range resp.Translations {
			out = append(out, html.UnescapeString(tr.TranslatedText))
		}
	}
	return out, nil
}
