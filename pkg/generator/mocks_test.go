package generator

import (
	"context"

	"github.com/shouni/gemini-headshot-kit/pkg/domain"
	"github.com/shouni/go-gemini-client/pkg/gemini"
	"google.golang.org/genai"
)

// --- Mocks ---

type mockAIClient struct {
	generateWithPartsFunc func(ctx context.Context, model string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error)
	calls                 int
}

func (m *mockAIClient) GenerateWithParts(ctx context.Context, model string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error) {
	m.calls++
	if m.generateWithPartsFunc != nil {
		return m.generateWithPartsFunc(ctx, model, parts, opts)
	}
	return imageResponse("image/png", []byte("fake")), nil
}

type mockImageCore struct {
	prepareFunc func(ctx context.Context, imageBase64, mimeType string) (*genai.Part, error)
	executeFunc func(ctx context.Context, model string, parts []*genai.Part, opts gemini.GenerateOptions) (*domain.ImageResponse, error)
}

func (m *mockImageCore) PrepareImagePart(ctx context.Context, imageBase64, mimeType string) (*genai.Part, error) {
	if m.prepareFunc != nil {
		return m.prepareFunc(ctx, imageBase64, mimeType)
	}
	return &genai.Part{InlineData: &genai.Blob{MIMEType: mimeType}}, nil
}

func (m *mockImageCore) ExecuteRequest(ctx context.Context, model string, parts []*genai.Part, opts gemini.GenerateOptions) (*domain.ImageResponse, error) {
	if m.executeFunc != nil {
		return m.executeFunc(ctx, model, parts, opts)
	}
	return &domain.ImageResponse{Data: []byte("png"), MimeType: "image/png"}, nil
}

// --- Response builders ---

func candidateResponse(c *genai.Candidate) *gemini.Response {
	return &gemini.Response{
		RawResponse: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{c}},
	}
}

func imageResponse(mimeType string, data []byte) *gemini.Response {
	return candidateResponse(&genai.Candidate{
		FinishReason: genai.FinishReasonStop,
		Content: &genai.Content{
			Parts: []*genai.Part{{InlineData: &genai.Blob{MIMEType: mimeType, Data: data}}},
		},
	})
}

func textResponse(texts ...string) *gemini.Response {
	parts := make([]*genai.Part, 0, len(texts))
	for _, t := range texts {
		parts = append(parts, &genai.Part{Text: t})
	}
	return candidateResponse(&genai.Candidate{
		FinishReason: genai.FinishReasonStop,
		Content:      &genai.Content{Parts: parts},
	})
}
