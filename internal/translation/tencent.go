package translation

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/profile"
	tmt "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/tmt/v20180321"

	"lyrics-viewer/internal/timeline"
)

// tencentBatchLimit TextTranslateBatch 单次总长度有限制，按行数分批
const tencentBatchLimit = 50

var _ Provider = (*Tencent)(nil)

// tmtAPI *tmt.Client 中用到的方法
type tmtAPI interface {
	TextTranslateBatchWithContext(ctx context.Context, request *tmt.TextTranslateBatchRequest) (*tmt.TextTranslateBatchResponse, error)
	TextTranslateWithContext(ctx context.Context, request *tmt.TextTranslateRequest) (*tmt.TextTranslateResponse, error)
}

// Tencent 腾讯云机器翻译
type Tencent struct {
	client tmtAPI
	source string
}

func NewTencent(secretID, secretKey, region, source string) (*Tencent, error) {
	if secretID == "" || secretKey == "" {
		return nil, fmt.Errorf("%w: tencent cloud credentials not configured", ErrUnavailable)
	}
	credential := common.NewCredential(secretID, secretKey)

	cpf := profile.NewClientProfile()
	cpf.HttpProfile.ReqMethod = "POST"
	cpf.HttpProfile.ReqTimeout = 10
	cpf.HttpProfile.Endpoint = "tmt.tencentcloudapi.com"

	client, err := tmt.NewClient(credential, region, cpf)
	if err != nil {
		log.Error().Err(err).Msg("new tencent client error")
		return nil, fmt.Errorf("failed to create tencent tmt client: %w", err)
	}
	if source == "" {
		source = "auto"
	}
	return &Tencent{client: client, source: source}, nil
}

func (t *Tencent) Name() string {
	return "tencent"
}

func (t *Tencent) TranslateLyrics(ctx context.Context, lines timeline.Timeline, lang string) (timeline.Timeline, error) {
	return translateLines(ctx, t, lines, lang)
}

func (t *Tencent) TranslateText(ctx context.Context, text, lang string) (string, error) {
	request := tmt.NewTextTranslateRequest()
	request.SourceText = common.StringPtr(text)
	request.Source = common.StringPtr(t.source)
	request.Target = common.StringPtr(lang)
	request.ProjectId = common.Int64Ptr(0)

	response, err := t.client.TextTranslateWithContext(ctx, request)
	if err != nil {
		return "", t.wrap(err)
	}
	if response.Response == nil || response.Response.TargetText == nil {
		return "", unavailable("tencent", errors.New("empty response"))
	}
	return *response.Response.TargetText, nil
}

func (t *Tencent) translateBatch(ctx context.Context, texts []string, lang string) ([]string, error) {
	out := make([]string, 0, len(texts))
	for start := 0; start < len(texts); start += tencentBatchLimit {
		end := min(start+tencentBatchLimit, len(texts))

		request := tmt.NewTextTranslateBatchRequest()
		request.Source = common.StringPtr(t.source)
		request.Target = common.StringPtr(lang)
		request.ProjectId = common.Int64Ptr(0)
		request.SourceTextList = common.StringPtrs(texts[start:end])

		response, err := t.client.TextTranslateBatchWithContext(ctx, request)
		if err != nil {
			return nil, t.wrap(err)
		}
		if response.Response == nil || len(response.Response.TargetTextList) != end-start {
			return nil, fmt.Errorf("%w: tencent returned an incomplete batch", ErrMisaligned)
		}
		for _, s := range response.Response.TargetTextList {
			if s == nil {
				out = append(out, "")
				continue
			}
			out = append(out, *s)
		}
	}
	return out, nil
}

func (t *Tencent) wrap(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	log.Error().Err(err).Msg("failed to send request")
	return unavailable("tencent", err)
}
