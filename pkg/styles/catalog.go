package styles

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/shouni/gemini-headshot-kit/pkg/domain"
)

//go:embed styles.json
var defaultStylesJSON []byte

var (
	once     sync.Once
	builtin  *Catalog
	buildErr error
)

// Catalog は読み取り専用のスタイル一覧です。
type Catalog struct {
	presets []domain.StylePreset
	index   map[string]int
}

// Default は組み込みのスタイル一覧を返します。
func Default() (*Catalog, error) {
	once.Do(func() {
		builtin, buildErr = Parse(defaultStylesJSON)
	})
	return builtin, buildErr
}

// LoadFile は JSON ファイルからスタイル一覧を読み込みます。
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("スタイルファイルの読み込みに失敗しました: %w", err)
	}
	return Parse(data)
}

// Parse は JSON 配列からスタイル一覧を作成します。ID の重複や必須項目の欠落はエラーです。
func Parse(data []byte) (*Catalog, error) {
	var presets []domain.StylePreset
	if err := json.Unmarshal(data, &presets); err != nil {
		return nil, fmt.Errorf("スタイル定義のデコードに失敗しました: %w", err)
	}

	c := &Catalog{index: make(map[string]int, len(presets))}
	for _, p := range presets {
		if p.ID == "" || strings.TrimSpace(p.Prompt) == "" {
			return nil, fmt.Errorf("スタイル定義に id または prompt がありません: %+v", p)
		}
		if _, dup := c.index[p.ID]; dup {
			return nil, fmt.Errorf("スタイル ID が重複しています: %s", p.ID)
		}
		if p.UserInput != nil && !strings.Contains(p.Prompt, domain.UsernamePlaceholder) {
			return nil, fmt.Errorf("スタイル %s は入力欄を持ちますが %s がありません", p.ID, domain.UsernamePlaceholder)
		}
		c.index[p.ID] = len(c.presets)
		c.presets = append(c.presets, p)
	}
	return c, nil
}

// All は定義順のスタイル一覧のコピーを返します。
func (c *Catalog) All() []domain.StylePreset {
	out := make([]domain.StylePreset, len(c.presets))
	for i, p := range c.presets {
		out[i] = clonePreset(p)
	}
	return out
}

// Lookup は ID でスタイルを探します。
func (c *Catalog) Lookup(id string) (*domain.StylePreset, bool) {
	i, ok := c.index[id]
	if !ok {
		return nil, false
	}
	p := clonePreset(c.presets[i])
	return &p, true
}

// Len はスタイルの数を返します。
func (c *Catalog) Len() int {
	return len(c.presets)
}

func clonePreset(p domain.StylePreset) domain.StylePreset {
	if p.UserInput != nil {
		in := *p.UserInput
		p.UserInput = &in
	}
	return p
}
