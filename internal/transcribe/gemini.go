package transcribe

import (
	"context"

	"github.com/meetscribe/meetscribe/internal/llm"
)

// geminiProvider implements the alternate single-call method: upload
// one segment, ask for the conversations JSON in one generateContent
// call.
type geminiProvider struct {
	client *llm.GeminiClient
	prompt string
}

func (p *geminiProvider) Method() Method { return MethodSingleCallAlternate }

func (p *geminiProvider) Transcribe(ctx context.Context, audioPath string) (string, error) {
	return p.client.TranscribeFile(ctx, audioPath, p.prompt)
}
