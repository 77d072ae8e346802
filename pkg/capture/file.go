package capture

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/shouni/gemini-headshot-kit/pkg/domain"
	"github.com/shouni/gemini-headshot-kit/pkg/imagecodec"
	"github.com/shouni/gemini-headshot-kit/pkg/imgutil"

	"golang.org/x/sync/singleflight"
)

const (
	// DefaultCacheTTL はリモート画像をキャッシュする期間です。
	DefaultCacheTTL = 30 * time.Minute
	cacheKeyRemote  = "remote_image:"
)

// AcceptedMimeTypes はアップロードを受け付ける画像形式です。
var AcceptedMimeTypes = []string{"image/png", "image/jpeg", "image/webp"}

// HTTPClient は URL からデータを取得するためのインターフェースです。
// httpkit.ClientInterface はこれを満たします。
type HTTPClient interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// InputReader はローカルや GCS (gs://) のファイルを開くためのインターフェースです。
// remoteio.InputReader はこれを満たします。
type InputReader interface {
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

// ImageCacher は取得済みの画像をキャッシュするためのインターフェースです。
type ImageCacher interface {
	Get(key string) (any, bool)
	Set(key string, value any, d time.Duration)
}

// FileSource はローカルファイル、GCS、またはリモート URL から画像を読み込みます。
type FileSource struct {
	codec      *imagecodec.Codec
	reader     InputReader
	httpClient HTTPClient
	cache      ImageCacher
	expiration time.Duration
	urlGuard   func(string) (bool, error)
	group      singleflight.Group
}

// NewFileSource は FileSource を生成します。
// httpClient が nil の場合、URL からの読み込みはエラーになります。cache は nil を許容します。
func NewFileSource(codec *imagecodec.Codec, reader InputReader, httpClient HTTPClient, cache ImageCacher, cacheTTL time.Duration) (*FileSource, error) {
	if codec == nil {
		return nil, fmt.Errorf("codec is required")
	}
	if reader == nil {
		return nil, fmt.Errorf("reader is required")
	}
	if cacheTTL <= 0 {
		cacheTTL = DefaultCacheTTL
	}
	return &FileSource{
		codec:      codec,
		reader:     reader,
		httpClient: httpClient,
		cache:      cache,
		expiration: cacheTTL,
		urlGuard:   IsSafeURL,
	}, nil
}

// Load は location (ローカルパス、gs:// または http(s) URL) の画像を読み込み、正規化します。
// 受け付けるのは png / jpeg / webp のみです。
func (s *FileSource) Load(ctx context.Context, location string) (*domain.NormalizedImage, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, domain.NewUserError(domain.ErrValidation, "Please choose an image file.")
	}

	var (
		data []byte
		err  error
	)
	if isRemote(location) {
		data, err = s.fetchRemote(ctx, location)
	} else {
		data, err = s.readFile(ctx, location)
	}
	if err != nil {
		return nil, err
	}

	mimeType := imagecodec.DetectMimeType(data)
	if !IsAcceptedMimeType(mimeType) {
		return nil, domain.NewUserError(domain.ErrValidation,
			"Unsupported file type %q. Please upload a PNG, JPEG or WEBP image.", mimeType)
	}

	cfg, _, err := imgutil.DecodeConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%w: 画像を解析できませんでした: %v", domain.ErrDecode, err)
	}

	img, err := s.codec.Encode(ctx, bytes.NewReader(data), mimeType)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "画像を読み込みました",
		"location", location, "mime_type", mimeType, "bytes", len(data),
		"width", cfg.Width, "height", cfg.Height)
	return img, nil
}

// readFile は InputReader 経由でローカルまたは GCS のファイルを読み込みます。
func (s *FileSource) readFile(ctx context.Context, path string) ([]byte, error) {
	rc, err := s.reader.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}
	return data, nil
}

// fetchRemote は URL の画像を取得します。同じ URL への同時取得は 1 回にまとめられます。
func (s *FileSource) fetchRemote(ctx context.Context, rawURL string) ([]byte, error) {
	cacheKey := cacheKeyRemote + rawURL
	if s.cache != nil {
		if val, ok := s.cache.Get(cacheKey); ok {
			if data, ok := val.([]byte); ok {
				slog.DebugContext(ctx, "キャッシュから画像を取得しました", "url", rawURL)
				return data, nil
			}
		}
	}

	if s.httpClient == nil {
		return nil, fmt.Errorf("%w: remote images are not supported without an HTTP client", domain.ErrValidation)
	}
	if safe, err := s.urlGuard(rawURL); err != nil || !safe {
		return nil, fmt.Errorf("%w: 安全ではないURLが指定されました: %v", domain.ErrValidation, err)
	}

	val, err, _ := s.group.Do(rawURL, func() (any, error) {
		data, err := s.httpClient.FetchBytes(ctx, rawURL)
		if err != nil {
			return nil, fmt.Errorf("%w: 画像の取得に失敗しました: %v", domain.ErrDecode, err)
		}
		if s.cache != nil {
			s.cache.Set(cacheKey, data, s.expiration)
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}

	data, ok := val.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected return type from singleflight: %T", val)
	}
	return data, nil
}

// IsAcceptedMimeType は mimeType がアップロード可能な形式かどうかを返します。
func IsAcceptedMimeType(mimeType string) bool {
	for _, m := range AcceptedMimeTypes {
		if m == mimeType {
			return true
		}
	}
	return false
}

func isRemote(location string) bool {
	lower := strings.ToLower(location)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
