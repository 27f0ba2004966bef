package ai

import "context"

// AiInterface 单轮文本生成，翻译只需要这一种能力
type AiInterface interface {
	Name() string
	HandleText(ctx context.Context, msg string) (string, error)
}
