package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/shouni/go-utils/envutil"
)

// デフォルト値の定義です。
const (
	DefaultModel       = "gemini-2.5-flash"
	DefaultImageModel  = "gemini-2.5-flash-image"
	DefaultHTTPTimeout = 30 * time.Second
	DefaultOutputDir   = "output"
	stateFileName      = "state.json"
	appDirName         = "gemini-headshot-kit"
)

// Config は環境変数から読み込んだアプリケーション全体の設定です。
type Config struct {
	GeminiAPIKey     string
	GeminiModel      string
	GeminiImageModel string
	StateFile        string
	HTTPTimeout      time.Duration

	Options GenerateOptions
}

// GenerateOptions は CLI フラグから渡される実行時のパラメータです。
type GenerateOptions struct {
	ImagePath string // --image: ローカルパスまたは http(s) URL
	StyleID   string // --style
	UserText  string // --text
	Crop      bool   // --crop: 中央の正方形に切り抜いてから送る
	OutputDir string // --out
	CameraURL string // --camera-url: スナップショットを返すカメラのエンドポイント
}

// LoadDotEnv は .env ファイルを読み込みます。ファイルがなければ何もしません。
func LoadDotEnv(paths ...string) error {
	err := godotenv.Load(paths...)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// LoadConfig は環境変数から設定を読み込みます。
func LoadConfig() *Config {
	return &Config{
		GeminiAPIKey:     envutil.GetEnv("GEMINI_API_KEY", ""),
		GeminiModel:      envutil.GetEnv("GEMINI_MODEL", DefaultModel),
		GeminiImageModel: envutil.GetEnv("IMAGE_GEMINI_MODEL", DefaultImageModel),
		StateFile:        envutil.GetEnv("HEADSHOT_STATE_FILE", DefaultStateFile()),
		HTTPTimeout:      parseDuration(envutil.GetEnv("HTTP_TIMEOUT", ""), DefaultHTTPTimeout),
	}
}

// DefaultStateFile は利用回数を保存するファイルの既定パスです。
// ユーザー設定ディレクトリが取れない環境ではカレントディレクトリに置きます。
func DefaultStateFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", "."+appDirName, stateFileName)
	}
	return filepath.Join(dir, appDirName, stateFileName)
}

func parseDuration(v string, fallback time.Duration) time.Duration {
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		slog.Warn("HTTP_TIMEOUT の値が不正なため既定値を使います", "value", v, "default", fallback)
		return fallback
	}
	return d
}
