package translation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"lyrics-viewer/internal/timeline"
	"lyrics-viewer/pkg/ai"
)

var _ Provider = (*AI)(nil)

const lyricsPrompt = `Translate each of the following song lyric lines into the language with code %q.
Keep the meaning and tone, one output line per input line.
Respond with ONLY a JSON array of %d strings in the same order, no commentary.

%s`

const textPrompt = `Translate the following text into the language with code %q. Respond with only the translation.

%s`

// AI 通过大模型翻译（Gemini 或 OpenAI 兼容接口）
type AI struct {
	model ai.AiInterface
}

func NewAI(model ai.AiInterface) *AI {
	return &AI{model: model}
}

func (a *AI) Name() string {
	return "ai:" + a.model.Name()
}

func (a *AI) TranslateLyrics(ctx context.Context, lines timeline.Timeline, lang string) (timeline.Timeline, error) {
	return translateLines(ctx, a, lines, lang)
}

func (a *AI) TranslateText(ctx context.Context, text, lang string) (string, error) {
	resp, err := a.model.HandleText(ctx, fmt.Sprintf(textPrompt, lang, text))
	if err != nil {
		return "", a.wrap(err)
	}
	return strings.TrimSpace(resp), nil
}

func (a *AI) translateBatch(ctx context.Context, texts []string, lang string) ([]string, error) {
	input, err := json.Marshal(texts)
	if err != nil {
		return nil, err
	}
	resp, err := a.model.HandleText(ctx, fmt.Sprintf(lyricsPrompt, lang, len(texts), input))
	if err != nil {
		return nil, a.wrap(err)
	}

	out, err := parseJSONArray(resp)
	if err != nil {
		log.Warn().Err(err).Str("model", a.model.Name()).Msg("AI returned unparseable translation")
		return nil, fmt.Errorf("%w: %v", ErrMisaligned, err)
	}
	return out, nil
}

func (a *AI) wrap(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return unavailable(a.Name(), err)
}

// parseJSONArray 取回复中第一个 '[' 到最后一个 ']' 之间的内容，兼容 markdown 代码块
func parseJSONArray(resp string) ([]string, error) {
	start := strings.Index(resp, "[")
	end := strings.LastIndex(resp, "]")
	if start < 0 || end <= start {
		return nil, errors.New("no JSON array in response")
	}
	var out []string
	if err := json.Unmarshal([]byte(resp[start:end+1]), &out); err != nil {
		return nil, err
	}
	return out, nil
}
