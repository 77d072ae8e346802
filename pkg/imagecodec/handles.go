package imagecodec

import (
	"fmt"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/shouni/gemini-headshot-kit/pkg/domain"
)

// TempFileAllocator はペイロードを一時ファイルに書き出し、その file:// URI をハンドルとします。
// Release で一時ファイルは削除されます。
type TempFileAllocator struct {
	Dir string // 空の場合は os.TempDir()
}

// Allocate は一時ファイルを作成します。
func (a TempFileAllocator) Allocate(data []byte, mimeType string) (domain.DisplayRef, error) {
	ext := ".img"
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		ext = exts[0]
	}

	f, err := os.CreateTemp(a.Dir, "headshot-*"+ext)
	if err != nil {
		return nil, fmt.Errorf("一時ファイルの作成に失敗しました: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("一時ファイルへの書き込みに失敗しました: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return nil, err
	}

	abs, err := filepath.Abs(f.Name())
	if err != nil {
		abs = f.Name()
	}
	return &tempFileRef{path: abs}, nil
}

type tempFileRef struct {
	path string
	once sync.Once
	err  error
}

func (r *tempFileRef) URI() string {
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(r.path)}).String()
}

func (r *tempFileRef) Release() error {
	r.once.Do(func() {
		if err := os.Remove(r.path); err != nil && !os.IsNotExist(err) {
			r.err = err
		}
	})
	return r.err
}

// NopAllocator はファイルを作らず、data URI をハンドルとして返します。
type NopAllocator struct{}

// Allocate はメモリ上のハンドルを返します。
func (NopAllocator) Allocate(data []byte, mimeType string) (domain.DisplayRef, error) {
	return memoryRef{uri: domain.NewNormalizedImage(data, mimeType, nil).DataURI()}, nil
}

type memoryRef struct {
	uri string
}

func (r memoryRef) URI() string    { return r.uri }
func (r memoryRef) Release() error { return nil }
