package domain

// Role は会話の発言者です。
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model" // アシスタント側。Gemini の呼称に合わせています
)

// ChatMessage は会話ログの1エントリです。
type ChatMessage struct {
	ID   int64  `json:"id"`
	Role Role   `json:"role"`
	Text string `json:"text"`
}
