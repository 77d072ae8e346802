package quota

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store は永続化されたキーバリューストアを抽象化するインターフェースです。
// ブラウザの localStorage に相当し、テストでは差し替えて使います。
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// FileStore は JSON オブジェクト1つをファイルに保存する Store 実装です。
// プロセス内の排他のみ行い、プロセス間では後勝ちとなります。
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore は path をバックエンドとする FileStore を生成します。
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}
	return &FileStore{path: path}, nil
}

// Path は保存先ファイルのパスを返します。
func (s *FileStore) Path() string {
	return s.path
}

// Get はキーに対応する値を返します。ファイルが存在しない場合は未設定扱いです。
func (s *FileStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return "", false, err
	}
	v, ok := entries[key]
	return v, ok, nil
}

// Set はキーに値を書き込みます。書き込みは一時ファイル経由のリネームで行います。
func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		// 壊れたファイルは作り直す
		entries = make(map[string]string)
	}
	entries[key] = value

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("状態のエンコードに失敗しました: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("状態ディレクトリの作成に失敗しました: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".state-*")
	if err != nil {
		return fmt.Errorf("一時ファイルの作成に失敗しました: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("状態の書き込みに失敗しました: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("状態ファイルの置き換えに失敗しました: %w", err)
	}
	return nil
}

func (s *FileStore) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("状態ファイルの読み込みに失敗しました: %w", err)
	}

	entries := make(map[string]string)
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("状態ファイルのデコードに失敗しました: %w", err)
	}
	return entries, nil
}

// MemoryStore はメモリ上の Store 実装です。
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]string
}

// NewMemoryStore は空の MemoryStore を生成します。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]string)}
}

func (s *MemoryStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.entries[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = value
	return nil
}
