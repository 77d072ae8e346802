package domain

// UsernamePlaceholder はプロンプトテンプレート内でユーザー入力に置換されるトークンです。
const UsernamePlaceholder = "{{username}}"

// UserInputSpec はスタイルが要求する自由入力欄の定義です。
type UserInputSpec struct {
	Label       string `json:"label"`
	Placeholder string `json:"placeholder"`
}

// StylePreset はヘッドショットの画風プリセットです。読み取り専用として扱います。
type StylePreset struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Prompt     string         `json:"prompt"`
	PreviewURL string         `json:"preview_url"`
	UserInput  *UserInputSpec `json:"user_input,omitempty"`
}

// RequiresUserInput はスタイルが自由入力を必要とするかを返します。
func (s StylePreset) RequiresUserInput() bool {
	return s.UserInput != nil
}
