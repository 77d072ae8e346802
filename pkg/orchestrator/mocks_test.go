package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/shouni/gemini-headshot-kit/pkg/domain"
)

type mockGenerator struct {
	generateFunc func(ctx context.Context, req domain.HeadshotRequest) (*domain.ImageResponse, error)
	requests     []domain.HeadshotRequest
}

func (m *mockGenerator) GenerateHeadshot(ctx context.Context, req domain.HeadshotRequest) (*domain.ImageResponse, error) {
	m.requests = append(m.requests, req)
	if m.generateFunc != nil {
		return m.generateFunc(ctx, req)
	}
	return &domain.ImageResponse{Data: []byte("png"), MimeType: "image/png"}, nil
}

// fakeClock はテスト用の時計なのだ。
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
