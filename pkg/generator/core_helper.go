package generator

import (
	"fmt"
	"strings"

	"github.com/shouni/go-gemini-client/pkg/gemini"
	"google.golang.org/genai"
)

// firstCandidate はレスポンスの検証を行い、最初の候補を返します。
func firstCandidate(resp *gemini.Response) (*genai.Candidate, error) {
	if resp == nil || resp.RawResponse == nil {
		return nil, fmt.Errorf("invalid response")
	}
	if fb := resp.RawResponse.PromptFeedback; fb != nil && fb.BlockReason != "" {
		msg := fb.BlockReasonMessage
		if msg == "" {
			msg = string(fb.BlockReason)
		}
		return nil, fmt.Errorf("the request was blocked: %s", msg)
	}
	if len(resp.RawResponse.Candidates) == 0 || resp.RawResponse.Candidates[0] == nil {
		return nil, fmt.Errorf("the model returned no candidates")
	}

	candidate := resp.RawResponse.Candidates[0]
	switch candidate.FinishReason {
	case "", genai.FinishReasonStop, genai.FinishReasonUnspecified, genai.FinishReasonMaxTokens:
	default:
		return nil, fmt.Errorf("generation stopped: %s", candidate.FinishReason)
	}
	if candidate.Content == nil {
		return nil, fmt.Errorf("the model returned an empty candidate")
	}
	return candidate, nil
}

func (c *GeminiImageCore) parseToResponse(resp *gemini.Response) (*ImageOutput, error) {
	candidate, err := firstCandidate(resp)
	if err != nil {
		return nil, err
	}
	for _, part := range candidate.Content.Parts {
		if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return &ImageOutput{
				Data:         part.InlineData.Data,
				MimeType:     part.InlineData.MIMEType,
				FinishReason: string(candidate.FinishReason),
			}, nil
		}
	}

	// 画像の代わりに説明文が返ることがあるので、メッセージに含める
	if text := extractText(candidate); text != "" {
		return nil, fmt.Errorf("no image data: %s", text)
	}
	return nil, fmt.Errorf("no image data")
}

// extractText は候補のテキストパーツを連結します。思考パーツは除きます。
func extractText(candidate *genai.Candidate) string {
	if candidate == nil || candidate.Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part == nil || part.Thought || part.Text == "" {
			continue
		}
		sb.WriteString(part.Text)
	}
	return strings.TrimSpace(sb.String())
}
