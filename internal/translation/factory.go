package translation

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"lyrics-viewer/internal/config"
	"lyrics-viewer/pkg/ai"
	"lyrics-viewer/pkg/ai/gemini"
	"lyrics-viewer/pkg/ai/openai"
)

// NewProvider 按配置选择后端；凭证缺失或初始化失败时返回 Disabled，服务照常启动
func NewProvider(ctx context.Context, cfg config.TranslationConfig) Provider {
	var (
		p   Provider
		err error
	)

	switch strings.ToLower(cfg.Provider) {
	case "google", "":
		p, err = NewGoogle(ctx, cfg.Google.APIKey, cfg.Google.Endpoint, cfg.SourceLanguage)
	case "tencent":
		p, err = NewTencent(cfg.Tencent.SecretID, cfg.Tencent.SecretKey, cfg.Tencent.Region, cfg.SourceLanguage)
	case "ai":
		var model ai.AiInterface
		model, err = NewAIModel(ctx, cfg.AI)
		if err == nil {
			p = NewAI(model)
		}
	default:
		return Disabled{Reason: "unknown translation provider " + cfg.Provider}
	}

	if err != nil {
		log.Warn().Err(err).Str("provider", cfg.Provider).Msg("Translation provider disabled")
		return Disabled{Reason: err.Error()}
	}
	log.Info().Str("provider", p.Name()).Msg("Translation provider ready")
	return p
}

// NewAIModel 按 module_name 创建 gemini 或 openai 客户端
func NewAIModel(ctx context.Context, cfg config.AIConfig) (ai.AiInterface, error) {
	switch strings.ToLower(cfg.ModuleName) {
	case "openai":
		// 本地 OpenAI 兼容服务可以不要 key
		if cfg.APIKey == "" && cfg.BaseURL == "" {
			return nil, fmt.Errorf("%w: openai api key not configured", ErrUnavailable)
		}
		return openai.NewOpenAI(cfg.APIKey, cfg.Model, cfg.BaseURL), nil
	default:
		g, err := gemini.NewGemini(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return g, nil
	}
}
