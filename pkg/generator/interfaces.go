package generator

import (
	"context"

	"github.com/shouni/gemini-headshot-kit/pkg/domain"
	"github.com/shouni/go-gemini-client/pkg/gemini"
	"google.golang.org/genai"
)

// GenerativeModel は Gemini API との通信に必要な最小限のインターフェースです。
// gemini.GenerativeModel はこれを満たします。
type GenerativeModel interface {
	GenerateWithParts(ctx context.Context, model string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error)
}

// HeadshotGenerator は画像とプロンプトからヘッドショットを生成します。
type HeadshotGenerator interface {
	GenerateHeadshot(ctx context.Context, req domain.HeadshotRequest) (*domain.ImageResponse, error)
}

// ChatResponder は会話ログに対する返答を生成します。
type ChatResponder interface {
	Reply(ctx context.Context, transcript string) (string, error)
}

// ImageExecutor は、画像生成リクエストを処理し、画像関連データを準備するためのメソッドを定義するインターフェースです。
type ImageExecutor interface {
	// ExecuteRequest は、指定されたパラメータで画像生成リクエストを実行し、結果を返します。
	ExecuteRequest(ctx context.Context, model string, parts []*genai.Part, opts gemini.GenerateOptions) (*domain.ImageResponse, error)
	// PrepareImagePart は、base64 の画像ペイロードから後続処理で利用する画像パーツを作成します。
	PrepareImagePart(ctx context.Context, imageBase64, mimeType string) (*genai.Part, error)
}
