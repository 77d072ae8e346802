package capture

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/shouni/gemini-headshot-kit/pkg/domain"
	"github.com/shouni/gemini-headshot-kit/pkg/imagecodec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCamera_Open(t *testing.T) {
	ctx := context.Background()
	codec := imagecodec.New(nil)

	t.Run("許可されると Streaming になる", func(t *testing.T) {
		cam, err := NewCamera(&mockDevice{stream: &mockStream{}}, codec)
		require.NoError(t, err)

		require.NoError(t, cam.Open(ctx))
		assert.Equal(t, CameraStreaming, cam.State())
		assert.Empty(t, cam.LastError())
	})

	t.Run("拒否されると ErrCameraUnavailable で Closed のまま", func(t *testing.T) {
		cam, _ := NewCamera(&mockDevice{err: errors.New("NotAllowedError")}, codec)

		err := cam.Open(ctx)
		assert.ErrorIs(t, err, domain.ErrCameraUnavailable)
		assert.Equal(t, MsgCameraDenied, domain.UserMessage(err))
		assert.Equal(t, MsgCameraDenied, cam.LastError())
		assert.Equal(t, CameraClosed, cam.State())
	})

	t.Run("カメラがなければ非対応エラー", func(t *testing.T) {
		cam, _ := NewCamera(nil, codec)

		err := cam.Open(ctx)
		assert.ErrorIs(t, err, domain.ErrCameraUnavailable)
		assert.Equal(t, MsgCameraUnsupported, cam.LastError())
		assert.Equal(t, CameraClosed, cam.State())
	})

	t.Run("Streaming 中に再度開くことはできない", func(t *testing.T) {
		dev := &mockDevice{stream: &mockStream{}}
		cam, _ := NewCamera(dev, codec)
		require.NoError(t, cam.Open(ctx))

		assert.ErrorIs(t, cam.Open(ctx), domain.ErrValidation)
		assert.Equal(t, 1, dev.opened)
	})

	t.Run("要求中に Close されたらストリームを即座に解放する", func(t *testing.T) {
		stream := &mockStream{}
		dev := &mockDevice{stream: stream}
		cam, _ := NewCamera(dev, codec)
		dev.onOpen = func() {
			assert.Equal(t, CameraRequesting, cam.State())
			cam.Close()
		}

		err := cam.Open(ctx)
		assert.ErrorIs(t, err, domain.ErrCameraUnavailable)
		assert.Equal(t, int32(1), stream.closed.Load())
		assert.Equal(t, CameraClosed, cam.State())
	})

	t.Run("Close 後に始まった Open と重なっても古いストリームを解放する", func(t *testing.T) {
		dev := newGatedDevice()
		cam, _ := NewCamera(dev, codec)

		firstErr := make(chan error, 1)
		go func() { firstErr <- cam.Open(ctx) }()
		firstReply := <-dev.requests

		cam.Close()

		secondErr := make(chan error, 1)
		go func() { secondErr <- cam.Open(ctx) }()
		secondReply := <-dev.requests
		assert.Equal(t, CameraRequesting, cam.State())

		first := &mockStream{}
		firstReply <- first
		assert.ErrorIs(t, <-firstErr, domain.ErrCameraUnavailable)
		assert.Equal(t, int32(1), first.closed.Load(), "古い要求のストリームは解放される")
		assert.Equal(t, CameraRequesting, cam.State(), "後続の要求の状態は変えない")

		second := &mockStream{}
		secondReply <- second
		require.NoError(t, <-secondErr)
		assert.Equal(t, CameraStreaming, cam.State())
		assert.Equal(t, int32(0), second.closed.Load())

		cam.Close()
		assert.Equal(t, int32(1), second.closed.Load())
	})

	_, err := NewCamera(nil, nil)
	assert.Error(t, err)
}

func TestCamera_Capture(t *testing.T) {
	ctx := context.Background()
	codec := imagecodec.New(nil)

	t.Run("フレームを JPEG にしてストリームを解放する", func(t *testing.T) {
		stream := &mockStream{frame: solidImage(64, 48)}
		cam, _ := NewCamera(&mockDevice{stream: stream}, codec)
		require.NoError(t, cam.Open(ctx))

		img, err := cam.Capture(ctx)
		require.NoError(t, err)
		assert.Equal(t, imagecodec.MimeJPEG, img.MimeType)
		assert.Equal(t, int32(1), stream.closed.Load())
		assert.Equal(t, CameraClosed, cam.State())

		raster, err := imagecodec.Decode(img)
		require.NoError(t, err)
		assert.Equal(t, image.Pt(64, 48), raster.Bounds().Size(), "ネイティブ解像度のまま")
	})

	t.Run("フレーム取得に失敗してもストリームを解放する", func(t *testing.T) {
		stream := &mockStream{frameErr: errors.New("video not ready")}
		cam, _ := NewCamera(&mockDevice{stream: stream}, codec)
		require.NoError(t, cam.Open(ctx))

		_, err := cam.Capture(ctx)
		assert.ErrorIs(t, err, domain.ErrDecode)
		assert.Equal(t, MsgCaptureFailed, domain.UserMessage(err))
		assert.Equal(t, MsgCaptureFailed, cam.LastError())
		assert.Equal(t, int32(1), stream.closed.Load())
		assert.Equal(t, CameraClosed, cam.State())
	})

	t.Run("エンコードに失敗してもストリームを解放する", func(t *testing.T) {
		stream := &mockStream{frame: solidImage(8, 8)}
		cam, _ := NewCamera(&mockDevice{stream: stream}, failingEncoder{})
		require.NoError(t, cam.Open(ctx))

		_, err := cam.Capture(ctx)
		assert.Error(t, err)
		assert.Equal(t, int32(1), stream.closed.Load())
		assert.Equal(t, CameraClosed, cam.State())
	})

	t.Run("空のフレームは失敗", func(t *testing.T) {
		stream := &mockStream{frame: image.NewRGBA(image.Rect(0, 0, 0, 0))}
		cam, _ := NewCamera(&mockDevice{stream: stream}, codec)
		require.NoError(t, cam.Open(ctx))

		_, err := cam.Capture(ctx)
		assert.Error(t, err)
		assert.Equal(t, int32(1), stream.closed.Load())
	})

	t.Run("Streaming 以外では撮影できない", func(t *testing.T) {
		cam, _ := NewCamera(&mockDevice{stream: &mockStream{}}, codec)
		_, err := cam.Capture(ctx)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestCamera_Close(t *testing.T) {
	ctx := context.Background()
	stream := &mockStream{}
	cam, _ := NewCamera(&mockDevice{stream: stream}, imagecodec.New(nil))

	t.Run("Closed からでも呼べる", func(t *testing.T) {
		cam.Close()
		assert.Equal(t, CameraClosed, cam.State())
	})

	t.Run("何度呼んでもストリームの解放は一度だけ", func(t *testing.T) {
		require.NoError(t, cam.Open(ctx))
		cam.Close()
		cam.Close()

		assert.Equal(t, int32(1), stream.closed.Load())
		assert.Equal(t, CameraClosed, cam.State())
	})
}

func TestHTTPSnapshotDevice(t *testing.T) {
	ctx := context.Background()
	const url = "http://192.168.0.20/snapshot.jpg"

	t.Run("スナップショットを撮影できる", func(t *testing.T) {
		client := &mockHTTPClient{fetchFunc: func(ctx context.Context, u string) ([]byte, error) {
			assert.Equal(t, url, u)
			return solidPNG(32, 24), nil
		}}
		dev, err := NewHTTPSnapshotDevice(client, url)
		require.NoError(t, err)

		cam, _ := NewCamera(dev, imagecodec.New(nil))
		require.NoError(t, cam.Open(ctx))

		img, err := cam.Capture(ctx)
		require.NoError(t, err)
		assert.Equal(t, imagecodec.MimeJPEG, img.MimeType)
		assert.Equal(t, int32(2), client.calls.Load(), "接続確認と撮影で2回")
	})

	t.Run("接続できなければ Open は失敗する", func(t *testing.T) {
		client := &mockHTTPClient{fetchFunc: func(ctx context.Context, u string) ([]byte, error) {
			return nil, errors.New("connection refused")
		}}
		dev, _ := NewHTTPSnapshotDevice(client, url)
		cam, _ := NewCamera(dev, imagecodec.New(nil))

		assert.ErrorIs(t, cam.Open(ctx), domain.ErrCameraUnavailable)
	})

	t.Run("閉じたストリームからは取得できない", func(t *testing.T) {
		client := &mockHTTPClient{fetchFunc: func(ctx context.Context, u string) ([]byte, error) {
			return solidPNG(2, 2), nil
		}}
		dev, _ := NewHTTPSnapshotDevice(client, url)
		stream, err := dev.Open(ctx)
		require.NoError(t, err)
		require.NoError(t, stream.Close())

		_, err = stream.Frame(ctx)
		assert.Error(t, err)
	})

	_, err := NewHTTPSnapshotDevice(nil, url)
	assert.Error(t, err)
}
