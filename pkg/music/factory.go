package music

import (
	"fmt"

	"lyrics-viewer/pkg/lrclib"
	"lyrics-viewer/pkg/netease"
)

// CreateProvider 创建音乐提供商客户端，baseURL 为空时使用官方地址
func CreateProvider(provider Provider, baseURL string) (MusicAPI, error) {
	switch provider {
	case ProviderLRCLib:
		logger.Info().Msg("Creating LRCLib client")
		return lrclib.NewClient(baseURL), nil
	case ProviderNetEase:
		logger.Info().Msg("Creating NetEase music client")
		return netease.NewClient(baseURL), nil
	default:
		return nil, fmt.Errorf("unknown music provider: %s", provider)
	}
}

// CreateManager 按给定顺序创建提供商，创建失败的跳过
func CreateManager(names []string) (*Manager, error) {
	var providers []MusicAPI
	for _, name := range names {
		providerType, err := GetProviderByName(name)
		if err != nil {
			logger.Warn().Err(err).Msg("Skipping provider")
			continue
		}
		provider, err := CreateProvider(providerType, "")
		if err != nil {
			logger.Warn().Err(err).Str("provider", name).Msg("Failed to create provider")
			continue
		}
		providers = append(providers, provider)
	}

	if len(providers) == 0 {
		return nil, fmt.Errorf("no music providers available")
	}
	return NewManager(providers), nil
}

// CreateDefaultManager LRCLib 优先（带时长匹配，只返回同步歌词），网易云兜底
func CreateDefaultManager() (*Manager, error) {
	return CreateManager([]string{string(ProviderLRCLib), string(ProviderNetEase)})
}

// GetProviderByName 根据名称获取提供商
func GetProviderByName(name string) (Provider, error) {
	switch name {
	case "lrclib":
		return ProviderLRCLib, nil
	case "netease", "网易云", "163":
		return ProviderNetEase, nil
	default:
		return "", fmt.Errorf("unknown provider name: %s", name)
	}
}
