package studio

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"sync/atomic"

	"github.com/shouni/gemini-headshot-kit/pkg/domain"
)

// countingRef は Release の回数を数える表示用ハンドルなのだ。
type countingRef struct {
	name     string
	released atomic.Int32
}

func (r *countingRef) URI() string    { return "mem://" + r.name }
func (r *countingRef) Release() error { r.released.Add(1); return nil }

// countingAllocator は払い出したハンドルを記録するのだ。
type countingAllocator struct {
	refs []*countingRef
}

func (a *countingAllocator) Allocate(data []byte, mimeType string) (domain.DisplayRef, error) {
	ref := &countingRef{name: mimeType}
	a.refs = append(a.refs, ref)
	return ref, nil
}

type fakeLoader struct {
	images map[string][]byte
	refs   map[string]*countingRef
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{images: map[string][]byte{}, refs: map[string]*countingRef{}}
}

func (l *fakeLoader) add(name string, w, h int) {
	l.images[name] = testPNG(w, h)
}

func (l *fakeLoader) Load(ctx context.Context, location string) (*domain.NormalizedImage, error) {
	data, ok := l.images[location]
	if !ok {
		return nil, domain.NewUserError(domain.ErrDecode, "cannot read %s", location)
	}
	ref := &countingRef{name: location}
	l.refs[location] = ref
	return domain.NewNormalizedImage(data, "image/png", ref), nil
}

type fakeCamera struct {
	open    bool
	closed  int
	ref     *countingRef
	failing bool
}

func (c *fakeCamera) Open(ctx context.Context) error {
	c.open = true
	return nil
}

func (c *fakeCamera) Capture(ctx context.Context) (*domain.NormalizedImage, error) {
	c.open = false
	if c.failing {
		return nil, &domain.UserError{Kind: domain.ErrDecode, Message: "Failed to process captured photo."}
	}
	c.ref = &countingRef{name: "camera"}
	return domain.NewNormalizedImage(testPNG(40, 30), "image/jpeg", c.ref), nil
}

func (c *fakeCamera) Close() {
	c.open = false
	c.closed++
}

type fakeGenerator struct {
	err   error
	data  []byte
	calls int
	last  struct {
		image *domain.NormalizedImage
		style *domain.StylePreset
		text  string
	}
}

func (g *fakeGenerator) Generate(ctx context.Context, img *domain.NormalizedImage, style *domain.StylePreset, text string) (*domain.ImageResponse, error) {
	g.calls++
	g.last.image, g.last.style, g.last.text = img, style, text
	if g.err != nil {
		return nil, g.err
	}
	if img == nil || style == nil {
		return nil, domain.NewUserError(domain.ErrValidation, "Please upload a selfie and select a style.")
	}
	data := g.data
	if data == nil {
		data = []byte("generated-png")
	}
	return &domain.ImageResponse{Data: data, MimeType: "image/png"}, nil
}

// memoryWriter は書き込まれた内容をパスごとに保持するのだ。
type memoryWriter struct {
	files        map[string][]byte
	contentTypes map[string]string
	err          error
}

func newMemoryWriter() *memoryWriter {
	return &memoryWriter{files: map[string][]byte{}, contentTypes: map[string]string{}}
}

func (m *memoryWriter) Write(ctx context.Context, path string, r io.Reader, contentType string) error {
	if m.err != nil {
		return m.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.files[path] = data
	m.contentTypes[path] = contentType
	return nil
}

type fakeStyles map[string]domain.StylePreset

func (s fakeStyles) Lookup(id string) (*domain.StylePreset, bool) {
	p, ok := s[id]
	if !ok {
		return nil, false
	}
	return &p, true
}

var errBoom = errors.New("boom")

func testPNG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 90, 255})
		}
	}
	buf := new(bytes.Buffer)
	_ = png.Encode(buf, img)
	return buf.Bytes()
}
