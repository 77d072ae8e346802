package generator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shouni/gemini-headshot-kit/pkg/domain"
	"github.com/shouni/go-gemini-client/pkg/gemini"
	"google.golang.org/genai"
)

// ChatSystemPrompt はチャットで使うシステムプロンプトです。
const ChatSystemPrompt = "You are a friendly assistant inside an AI headshot studio. Answer questions about photography, styles and using the app concisely."

// GeminiGenerator は、ヘッドショット生成(GenerateHeadshot)と
// チャット応答(Reply)の両方を担当する統合ジェネレーターです。
type GeminiGenerator struct {
	imgCore    ImageExecutor
	aiClient   GenerativeModel
	imageModel string
	chatModel  string
}

// NewGeminiGenerator は GeminiGenerator を初期化します。
func NewGeminiGenerator(
	core ImageExecutor,
	aiClient GenerativeModel,
	imageModel string,
	chatModel string,
) (*GeminiGenerator, error) {
	if core == nil {
		return nil, fmt.Errorf("core (ImageExecutor) is required")
	}
	if aiClient == nil {
		return nil, fmt.Errorf("aiClient (GenerativeModel) is required")
	}
	if imageModel == "" || chatModel == "" {
		return nil, fmt.Errorf("model names are required")
	}

	return &GeminiGenerator{
		imgCore:    core,
		aiClient:   aiClient,
		imageModel: imageModel,
		chatModel:  chatModel,
	}, nil
}

// GenerateHeadshot は自撮り画像とプロンプトからヘッドショットを1回だけ生成します。
func (g *GeminiGenerator) GenerateHeadshot(ctx context.Context, req domain.HeadshotRequest) (*domain.ImageResponse, error) {
	imgPart, err := g.imgCore.PrepareImagePart(ctx, req.ImageBase64, req.MimeType)
	if err != nil {
		return nil, err
	}
	parts := []*genai.Part{imgPart, {Text: req.Prompt}}

	slog.InfoContext(ctx, "Geminiヘッドショット生成リクエスト送信", "model", g.imageModel, "prompt_len", len(req.Prompt))
	resp, err := g.imgCore.ExecuteRequest(ctx, g.imageModel, parts, gemini.GenerateOptions{
		AspectRatio: HeadshotAspectRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate headshot: %w", err)
	}
	return resp, nil
}

// Reply は会話ログ全体を1つのテキストとして送り、返答を返します。
func (g *GeminiGenerator) Reply(ctx context.Context, transcript string) (string, error) {
	if strings.TrimSpace(transcript) == "" {
		return "", fmt.Errorf("%w: transcript is empty", domain.ErrValidation)
	}

	resp, err := g.aiClient.GenerateWithParts(ctx, g.chatModel, []*genai.Part{{Text: transcript}}, gemini.GenerateOptions{
		SystemPrompt: ChatSystemPrompt,
	})
	if err != nil {
		return "", fmt.Errorf("failed to get chat response: %w", err)
	}

	candidate, err := firstCandidate(resp)
	if err != nil {
		return "", err
	}
	text := extractText(candidate)
	if text == "" {
		return "", fmt.Errorf("the model returned an empty reply")
	}
	return text, nil
}
