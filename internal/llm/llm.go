// Package llm wraps the remote model APIs the pipeline depends on.
// Every response is treated as an opaque UTF-8 string; interpreting it
// is the caller's job.
package llm

import (
	"context"
	"errors"

	"github.com/meetscribe/meetscribe/internal/config"
)

// ErrEmptyResponse signals that a remote call succeeded at the HTTP
// level but carried no usable text. Distinct from degenerate-but-nonempty
// output, which the quality filter handles.
var ErrEmptyResponse = errors.New("model returned an empty response")

// Chatter is the minimal text-in/text-out surface shared by the speaker
// remap and minutes stages. The concrete client matches the active
// transcription method's provider family.
type Chatter interface {
	Chat(ctx context.Context, systemPrompt, userText string) (string, error)
}

// NewChatter picks the chat backend matching the configured
// transcription method: Gemini for the alternate method, OpenAI
// otherwise.
func NewChatter(cfg *config.Config) (Chatter, error) {
	if cfg.Transcription.Method == config.MethodGemini {
		return NewGeminiClient(cfg)
	}
	return NewOpenAIClient(cfg)
}
