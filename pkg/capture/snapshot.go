package capture

import (
	"context"
	"fmt"
	"image"
	"sync/atomic"

	"github.com/shouni/gemini-headshot-kit/pkg/imgutil"
)

// HTTPSnapshotDevice は JPEG スナップショットのエンドポイントを持つネットワークカメラです。
// 利用者が明示的に指定する LAN 内の機器を想定しているため、IsSafeURL による検証は行いません。
type HTTPSnapshotDevice struct {
	client HTTPClient
	url    string
}

// NewHTTPSnapshotDevice は HTTPSnapshotDevice を生成します。
func NewHTTPSnapshotDevice(client HTTPClient, snapshotURL string) (*HTTPSnapshotDevice, error) {
	if client == nil {
		return nil, fmt.Errorf("httpClient is required")
	}
	if snapshotURL == "" {
		return nil, fmt.Errorf("snapshot URL is required")
	}
	return &HTTPSnapshotDevice{client: client, url: snapshotURL}, nil
}

// Open はエンドポイントから 1 枚取得できることを確認してからストリームを返します。
func (d *HTTPSnapshotDevice) Open(ctx context.Context) (Stream, error) {
	s := &snapshotStream{device: d}
	if _, err := s.Frame(ctx); err != nil {
		return nil, fmt.Errorf("カメラに接続できませんでした (%s): %w", d.url, err)
	}
	return s, nil
}

type snapshotStream struct {
	device *HTTPSnapshotDevice
	closed atomic.Bool
}

func (s *snapshotStream) Frame(ctx context.Context) (image.Image, error) {
	if s.closed.Load() {
		return nil, fmt.Errorf("stream is closed")
	}
	data, err := s.device.client.FetchBytes(ctx, s.device.url)
	if err != nil {
		return nil, err
	}
	return imgutil.Decode(data)
}

func (s *snapshotStream) Close() error {
	s.closed.Store(true)
	return nil
}
