package capture

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"github.com/shouni/gemini-headshot-kit/pkg/domain"
)

// カメラ関連のエラーメッセージです。
const (
	MsgCameraDenied      = "Could not access the camera. Please check permissions."
	MsgCameraUnsupported = "Your device does not support camera access."
	MsgCaptureFailed     = "Failed to process captured photo."
)

// CameraState はカメラの状態です。
type CameraState int

const (
	CameraClosed CameraState = iota
	CameraRequesting
	CameraStreaming
)

func (s CameraState) String() string {
	switch s {
	case CameraClosed:
		return "closed"
	case CameraRequesting:
		return "requesting"
	case CameraStreaming:
		return "streaming"
	default:
		return fmt.Sprintf("CameraState(%d)", int(s))
	}
}

// Device はライブ映像を提供するカメラです。
type Device interface {
	// Open はストリームを要求します。拒否された場合はエラーを返します。
	Open(ctx context.Context) (Stream, error)
}

// Stream は開いているカメラの映像です。Close で必ず解放する必要があります。
type Stream interface {
	// Frame は現在のフレームをネイティブ解像度で返します。
	Frame(ctx context.Context) (image.Image, error)
	Close() error
}

// RasterEncoder はラスタを NormalizedImage に変換します。
type RasterEncoder interface {
	EncodeRaster(ctx context.Context, img image.Image, quality int) (*domain.NormalizedImage, error)
}

// Camera はカメラからの撮影を管理します。
type Camera struct {
	device  Device
	encoder RasterEncoder

	mu      sync.Mutex
	state   CameraState
	stream  Stream
	lastErr string
	attempt uint64 // Open と Close のたびに進む。古い要求の結果を捨てるのに使う
}

// NewCamera は Camera を生成します。device が nil の場合はカメラ非対応として扱います。
func NewCamera(device Device, encoder RasterEncoder) (*Camera, error) {
	if encoder == nil {
		return nil, fmt.Errorf("encoder is required")
	}
	return &Camera{device: device, encoder: encoder}, nil
}

// State は現在の状態を返します。
func (c *Camera) State() CameraState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastError は直近の失敗の表示用メッセージを返します。
func (c *Camera) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Open はカメラのストリームを要求し、許可されれば Streaming に遷移します。
// 拒否または非対応の場合は ErrCameraUnavailable を返し、Closed のままです。
func (c *Camera) Open(ctx context.Context) error {
	c.mu.Lock()
	if c.state != CameraClosed {
		c.mu.Unlock()
		return fmt.Errorf("%w: camera is already %s", domain.ErrValidation, c.state)
	}
	if c.device == nil {
		c.lastErr = MsgCameraUnsupported
		c.mu.Unlock()
		return domain.NewUserError(domain.ErrCameraUnavailable, MsgCameraUnsupported)
	}
	c.state = CameraRequesting
	c.lastErr = ""
	c.attempt++
	attempt := c.attempt
	c.mu.Unlock()

	stream, err := c.device.Open(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if attempt != c.attempt {
		// 要求中に Close された。後続の Open が始まっていてもその状態には触れない
		if err == nil {
			closeStream(ctx, stream)
		}
		return fmt.Errorf("%w: camera was closed while opening", domain.ErrCameraUnavailable)
	}
	if err != nil {
		slog.WarnContext(ctx, "カメラを開けませんでした", "error", err)
		c.state = CameraClosed
		c.lastErr = MsgCameraDenied
		return domain.NewUserError(domain.ErrCameraUnavailable, MsgCameraDenied)
	}

	c.stream = stream
	c.state = CameraStreaming
	slog.InfoContext(ctx, "カメラを開きました")
	return nil
}

// Capture は現在のフレームを JPEG (既定品質) に変換して返します。
// 成否にかかわらずストリームは解放され、Closed に戻ります。
func (c *Camera) Capture(ctx context.Context) (*domain.NormalizedImage, error) {
	c.mu.Lock()
	if c.state != CameraStreaming || c.stream == nil {
		state := c.state
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: cannot capture while camera is %s", domain.ErrValidation, state)
	}
	stream := c.stream
	c.stream = nil
	c.mu.Unlock()

	defer func() {
		closeStream(ctx, stream)
		c.mu.Lock()
		c.state = CameraClosed
		c.mu.Unlock()
	}()

	img, err := c.capture(ctx, stream)
	if err != nil {
		slog.WarnContext(ctx, "撮影に失敗しました", "error", err)
		c.mu.Lock()
		c.lastErr = MsgCaptureFailed
		c.mu.Unlock()
		return nil, &domain.UserError{Kind: domain.ErrDecode, Message: MsgCaptureFailed}
	}
	return img, nil
}

func (c *Camera) capture(ctx context.Context, stream Stream) (*domain.NormalizedImage, error) {
	frame, err := stream.Frame(ctx)
	if err != nil {
		return nil, err
	}
	if frame == nil || frame.Bounds().Empty() {
		return nil, fmt.Errorf("frame is empty")
	}
	return c.encoder.EncodeRaster(ctx, frame, 0)
}

// Close はストリームを解放して Closed に遷移します。何度呼び出しても安全です。
func (c *Camera) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream != nil {
		closeStream(context.Background(), c.stream)
		c.stream = nil
	}
	c.attempt++
	c.state = CameraClosed
}

func closeStream(ctx context.Context, s Stream) {
	if err := s.Close(); err != nil {
		slog.WarnContext(ctx, "カメラストリームの解放に失敗しました", "error", err)
	}
}
