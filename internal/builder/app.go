package builder

import (
	"github.com/shouni/gemini-headshot-kit/internal/config"
	"github.com/shouni/gemini-headshot-kit/pkg/imagecodec"
	"github.com/shouni/gemini-headshot-kit/pkg/quota"

	"github.com/shouni/go-http-kit/pkg/httpkit"
)

// AppContext は各 Build 関数で共有する依存関係を保持します。
type AppContext struct {
	Config     *config.Config         // 環境変数と CLI フラグから組み立てた設定
	Options    config.GenerateOptions // コマンドラインから渡された実行時の設定
	Codec      *imagecodec.Codec      // 画像の正規化と表示用ハンドルの払い出し
	Throttle   *quota.Throttle        // 1日の利用回数
	httpClient httpkit.ClientInterface
}

// NewAppContext は API キーを必要としない共通部品を組み立てます。
func NewAppContext(cfg *config.Config) (*AppContext, error) {
	throttle, err := BuildThrottle(cfg.StateFile)
	if err != nil {
		return nil, err
	}
	return &AppContext{
		Config:     cfg,
		Options:    cfg.Options,
		Codec:      imagecodec.New(imagecodec.TempFileAllocator{}),
		Throttle:   throttle,
		httpClient: httpkit.New(cfg.HTTPTimeout),
	}, nil
}
