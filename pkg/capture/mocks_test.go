package capture

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"io/fs"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shouni/gemini-headshot-kit/pkg/domain"
)

// --- Mocks ---

type mockHTTPClient struct {
	fetchFunc func(ctx context.Context, url string) ([]byte, error)
	calls     atomic.Int32
}

func (m *mockHTTPClient) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	m.calls.Add(1)
	return m.fetchFunc(ctx, url)
}

// mockReader はパスごとの内容を返す InputReader なのだ。
type mockReader struct {
	files  map[string][]byte
	opened []string
}

func (m *mockReader) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	m.opened = append(m.opened, path)
	data, ok := m.files[path]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

type mockCache struct {
	mu   sync.Mutex
	data map[string]any
}

func (m *mockCache) Get(key string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *mockCache) Set(key string, value any, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = make(map[string]any)
	}
	m.data[key] = value
}

type mockStream struct {
	frame    image.Image
	frameErr error
	closed   atomic.Int32
}

func (s *mockStream) Frame(ctx context.Context) (image.Image, error) {
	return s.frame, s.frameErr
}

func (s *mockStream) Close() error {
	s.closed.Add(1)
	return nil
}

type mockDevice struct {
	stream *mockStream
	err    error
	onOpen func()
	opened int
}

func (d *mockDevice) Open(ctx context.Context) (Stream, error) {
	d.opened++
	if d.onOpen != nil {
		d.onOpen()
	}
	if d.err != nil {
		return nil, d.err
	}
	return d.stream, nil
}

// gatedDevice は Open のたびにテスト側からストリームを渡されるまで待つのだ。
type gatedDevice struct {
	requests chan chan Stream
}

func newGatedDevice() *gatedDevice {
	return &gatedDevice{requests: make(chan chan Stream)}
}

func (d *gatedDevice) Open(ctx context.Context) (Stream, error) {
	reply := make(chan Stream)
	d.requests <- reply
	return <-reply, nil
}

type failingEncoder struct{}

func (failingEncoder) EncodeRaster(ctx context.Context, img image.Image, quality int) (*domain.NormalizedImage, error) {
	return nil, errors.New("encode failed")
}

// solidPNG は単色の PNG を生成するのだ。
func solidPNG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 120, B: 40, A: 255})
		}
	}
	buf := new(bytes.Buffer)
	_ = png.Encode(buf, img)
	return buf.Bytes()
}

func solidImage(w, h int) image.Image {
	img, _ := png.Decode(bytes.NewReader(solidPNG(w, h)))
	return img
}
