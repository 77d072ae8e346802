package generator

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shouni/gemini-headshot-kit/pkg/domain"
	"github.com/shouni/gemini-headshot-kit/pkg/imgutil"

	"github.com/shouni/go-gemini-client/pkg/gemini"
	"google.golang.org/genai"
)

// GeminiImageCore は画像パーツの準備と Gemini への画像生成リクエストを担う基盤クラスです。
type GeminiImageCore struct {
	aiClient             GenerativeModel
	compressionThreshold int
}

// NewGeminiImageCore は依存関係を注入して GeminiImageCore を初期化します。
func NewGeminiImageCore(aiClient GenerativeModel) (*GeminiImageCore, error) {
	if aiClient == nil {
		return nil, fmt.Errorf("aiClient is required")
	}
	return &GeminiImageCore{
		aiClient:             aiClient,
		compressionThreshold: CompressionThreshold,
	}, nil
}

// ExecuteRequest は画像生成リクエストを送信し、最初の画像を返します。
func (c *GeminiImageCore) ExecuteRequest(ctx context.Context, model string, parts []*genai.Part, opts gemini.GenerateOptions) (*domain.ImageResponse, error) {
	resp, err := c.aiClient.GenerateWithParts(ctx, model, parts, opts)
	if err != nil {
		return nil, err
	}

	out, err := c.parseToResponse(resp)
	if err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "画像を受信しました", "model", model, "mime_type", out.MimeType, "bytes", len(out.Data), "finish_reason", out.FinishReason)

	return &domain.ImageResponse{
		Data:     out.Data,
		MimeType: out.MimeType,
	}, nil
}

// PrepareImagePart は base64 ペイロードをインライン画像パーツに変換します。
// 閾値を超える画像は JPEG に再圧縮します。圧縮に失敗した場合は元のデータを使います。
func (c *GeminiImageCore) PrepareImagePart(ctx context.Context, imageBase64, mimeType string) (*genai.Part, error) {
	data, err := base64.StdEncoding.DecodeString(imageBase64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid image payload: %v", domain.ErrDecode, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: image payload is empty", domain.ErrDecode)
	}

	if UseImageCompression && len(data) > c.compressionThreshold {
		if compressed, err := imgutil.CompressToJPEG(data, ImageCompressionQuality); err == nil {
			slog.InfoContext(ctx, "入力画像を圧縮しました", "before", len(data), "after", len(compressed))
			data = compressed
			mimeType = "image/jpeg"
		} else {
			slog.WarnContext(ctx, "入力画像の圧縮に失敗したため元の画像を送信します", "error", err)
		}
	}

	return c.toPart(data, mimeType)
}

func (c *GeminiImageCore) toPart(data []byte, mimeType string) (*genai.Part, error) {
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, fmt.Errorf("%w: unsupported mime type %q", domain.ErrValidation, mimeType)
	}
	return &genai.Part{InlineData: &genai.Blob{MIMEType: mimeType, Data: data}}, nil
}
