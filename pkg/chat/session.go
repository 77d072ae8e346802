package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/shouni/gemini-headshot-kit/pkg/domain"
)

// ApologyMessage は返答の取得に失敗したときに会話へ追加する文言です。
const ApologyMessage = "Sorry, I encountered an error. Please try again."

// Responder は会話ログに対する返答を生成します。
type Responder interface {
	Reply(ctx context.Context, transcript string) (string, error)
}

// Session は追記のみの会話ログを保持します。永続化はしません。
type Session struct {
	responder Responder

	mu       sync.Mutex
	messages []domain.ChatMessage
	nextID   int64
	sending  bool
}

// NewSession は Session を生成します。
func NewSession(responder Responder) (*Session, error) {
	if responder == nil {
		return nil, fmt.Errorf("responder is required")
	}
	return &Session{responder: responder, nextID: 1}, nil
}

// Send はユーザーの発言を追加し、会話ログ全体を送って返答を追加します。
// 返答の取得に失敗した場合は固定の謝罪文を返答として追加し、エラーは返しません。
func (s *Session) Send(ctx context.Context, text string) (domain.ChatMessage, error) {
	s.mu.Lock()
	if strings.TrimSpace(text) == "" {
		s.mu.Unlock()
		return domain.ChatMessage{}, fmt.Errorf("%w: message is empty", domain.ErrValidation)
	}
	if s.sending {
		s.mu.Unlock()
		return domain.ChatMessage{}, fmt.Errorf("%w: waiting for the previous reply", domain.ErrValidation)
	}
	s.sending = true
	s.appendLocked(domain.RoleUser, text)
	transcript := Transcript(s.messages)
	s.mu.Unlock()

	reply, err := s.responder.Reply(ctx, transcript)
	if err != nil {
		slog.WarnContext(ctx, "チャットの返答取得に失敗しました", "error", err)
		reply = ApologyMessage
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sending = false
	return s.appendLocked(domain.RoleModel, reply), nil
}

func (s *Session) appendLocked(role domain.Role, text string) domain.ChatMessage {
	msg := domain.ChatMessage{ID: s.nextID, Role: role, Text: text}
	s.nextID++
	s.messages = append(s.messages, msg)
	return msg
}

// Messages は会話ログのコピーを返します。
func (s *Session) Messages() []domain.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// Transcript は会話ログを "role: text" 形式の行に変換して改行で連結します。
func Transcript(messages []domain.ChatMessage) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		lines = append(lines, fmt.Sprintf("%s: %s", m.Role, m.Text))
	}
	return strings.Join(lines, "\n")
}
