package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/jinford/tubeseek/internal/core/catalog"
	"github.com/jinford/tubeseek/internal/core/ingest"
	"github.com/jinford/tubeseek/internal/core/search"
)

const (
	// DefaultEnhanceModel は補正・要約に使うデフォルトモデル
	DefaultEnhanceModel = "gpt-4o-mini"

	// DefaultTimeout はAPI呼び出しのデフォルトタイムアウト
	DefaultTimeout = 60 * time.Second

	// maxSegmentsPerRequest は1回の補正リクエストに載せるセグメント数の上限
	maxSegmentsPerRequest = 50
)

// Enhancer は OpenAI のチャット補完で字幕の補正と要点生成を行います
type Enhancer struct {
	client  openai.Client
	model   string
	timeout time.Duration
}

type enhancerOptions struct {
	model   string
	timeout time.Duration
}

// EnhancerOption は Enhancer のオプション設定
type EnhancerOption func(*enhancerOptions)

// WithEnhanceModel はモデル名を上書きします
func WithEnhanceModel(model string) EnhancerOption {
	return func(o *enhancerOptions) {
		if model != "" {
			o.model = model
		}
	}
}

// WithTimeout はAPI呼び出しのタイムアウトを上書きします
func WithTimeout(timeout time.Duration) EnhancerOption {
	return func(o *enhancerOptions) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}

// NewEnhancer は新しい Enhancer を作成します
func NewEnhancer(apiKey string, opts ...EnhancerOption) (*Enhancer, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	options := enhancerOptions{
		model:   DefaultEnhanceModel,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(&options)
	}

	return &Enhancer{
		client:  openai.NewClient(option.WithAPIKey(apiKey)),
		model:   options.model,
		timeout: options.timeout,
	}, nil
}

// enhanceResponse はモデルに要求するJSONレスポンスの形式です
type enhanceResponse struct {
	Segments []string `json:"segments"`
}

// Enhance は自動生成字幕の誤字・脱落を補正します。
// タイムスタンプは元のセグメントのものを保ちます。
func (e *Enhancer) Enhance(ctx context.Context, videoTitle string, segments []catalog.Segment) ([]catalog.Segment, string, error) {
	enhanced := make([]catalog.Segment, 0, len(segments))

	for start := 0; start < len(segments); start += maxSegmentsPerRequest {
		end := start + maxSegmentsPerRequest
		if end > len(segments) {
			end = len(segments)
		}
		window := segments[start:end]

		texts, err := e.enhanceWindow(ctx, videoTitle, window)
		if err != nil {
			return nil, "", err
		}
		if len(texts) != len(window) {
			return nil, "", fmt.Errorf("%w: segment count changed from %d to %d", ingest.ErrModelResponse, len(window), len(texts))
		}

		for i, seg := range window {
			seg.Text = strings.TrimSpace(texts[i])
			enhanced = append(enhanced, seg)
		}
	}

	return enhanced, e.model, nil
}

func (e *Enhancer) enhanceWindow(ctx context.Context, videoTitle string, segments []catalog.Segment) ([]string, error) {
	var prompt strings.Builder
	prompt.WriteString("以下はYouTube動画の自動生成字幕です。")
	if videoTitle != "" {
		fmt.Fprintf(&prompt, "動画タイトル: %s\n", videoTitle)
	}
	prompt.WriteString("誤認識・句読点の欠落・不自然な切れ目を修正してください。\n")
	prompt.WriteString("意味の追加や削除はせず、セグメント数と順序を維持してください。\n")
	prompt.WriteString(`JSONオブジェクト {"segments": ["...", ...]} の形式で返答してください。` + "\n\n")
	for i, seg := range segments {
		fmt.Fprintf(&prompt, "%d. %s\n", i+1, seg.Text)
	}

	content, err := e.complete(ctx, prompt.String(), true)
	if err != nil {
		return nil, err
	}

	var resp enhanceResponse
	if err := json.Unmarshal([]byte(content), &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ingest.ErrModelResponse, err)
	}
	return resp.Segments, nil
}

// Summarize は検索クエリの観点からヒット区間の要点を生成します
func (e *Enhancer) Summarize(ctx context.Context, query, content string) (string, error) {
	var prompt strings.Builder
	prompt.WriteString("以下はYouTube動画の字幕の一部です。\n")
	fmt.Fprintf(&prompt, "検索クエリ「%s」の観点から、この区間で語られている内容を2文以内で要約してください。\n\n", query)
	prompt.WriteString(content)

	summary, err := e.complete(ctx, prompt.String(), false)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(summary), nil
}

func (e *Enhancer) complete(ctx context.Context, prompt string, jsonResponse bool) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(e.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(0.2),
	}
	if jsonResponse {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{
				Type: "json_object",
			},
		}
	}

	completion, err := e.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("OpenAI API call failed: %w", classifyAPIError(err))
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("%w: no completion choices returned", ingest.ErrModelResponse)
	}
	return completion.Choices[0].Message.Content, nil
}

// Model はモデル名を返します
func (e *Enhancer) Model() string {
	return e.model
}

// インターフェース実装の確認
var (
	_ ingest.Enhancer   = (*Enhancer)(nil)
	_ search.Summarizer = (*Enhancer)(nil)
)
