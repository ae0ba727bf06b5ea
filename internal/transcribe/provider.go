// Package transcribe turns one long meeting recording into one ordered,
// speaker-consistent transcript, tolerating unreliable remote model
// output.
package transcribe

import (
	"context"
	"fmt"

	"github.com/meetscribe/meetscribe/internal/config"
	"github.com/meetscribe/meetscribe/internal/llm"
	"github.com/meetscribe/meetscribe/internal/prompts"
)

// Method is the closed set of transcription strategies. Parsed once
// from configuration; the pipeline never compares method strings.
type Method int

const (
	// MethodTwoStage runs speech-to-text over the whole file, then a
	// separate chat call formats the literal transcript.
	MethodTwoStage Method = iota
	// MethodSingleCallPrimary sends each audio segment to an
	// audio-capable chat model in one call.
	MethodSingleCallPrimary
	// MethodSingleCallAlternate does the same against the alternate
	// provider's upload+prompt protocol.
	MethodSingleCallAlternate
)

// ParseMethod maps a configured method identifier onto the enum.
func ParseMethod(name string) (Method, error) {
	switch name {
	case config.MethodOpenAI:
		return MethodTwoStage, nil
	case config.MethodOpenAIAudio:
		return MethodSingleCallPrimary, nil
	case config.MethodGemini:
		return MethodSingleCallAlternate, nil
	default:
		return 0, fmt.Errorf("unknown transcription method: %q", name)
	}
}

func (m Method) String() string {
	switch m {
	case MethodTwoStage:
		return config.MethodOpenAI
	case MethodSingleCallPrimary:
		return config.MethodOpenAIAudio
	case MethodSingleCallAlternate:
		return config.MethodGemini
	default:
		return fmt.Sprintf("method(%d)", int(m))
	}
}

// Segmented reports whether the method transcribes fixed-duration
// segments rather than the whole file in one pass.
func (m Method) Segmented() bool { return m != MethodTwoStage }

// Provider transcribes one audio segment (or, for the two-stage
// method, the whole file) into raw text via a remote call.
type Provider interface {
	// Transcribe returns the formatted transcript text for one audio
	// file. An empty remote response is an error, never an empty
	// string.
	Transcribe(ctx context.Context, audioPath string) (string, error)
	// Method identifies the strategy this provider implements.
	Method() Method
}

// wholeFileTranscriber is the extra surface of the two-stage provider:
// it exposes the stage-A literal transcript next to the formatted text.
type wholeFileTranscriber interface {
	TranscribeWhole(ctx context.Context, audioPath string) (raw, formatted string, err error)
}

// NewProvider selects and constructs the provider for the configured
// method. Called once at pipeline construction.
func NewProvider(cfg *config.Config) (Provider, error) {
	method, err := ParseMethod(cfg.Transcription.Method)
	if err != nil {
		return nil, err
	}

	switch method {
	case MethodTwoStage:
		client, err := llm.NewOpenAIClient(cfg)
		if err != nil {
			return nil, err
		}
		return &twoStageProvider{client: client, systemPrompt: prompts.Transcription()}, nil
	case MethodSingleCallPrimary:
		client, err := llm.NewOpenAIClient(cfg)
		if err != nil {
			return nil, err
		}
		return &audioChatProvider{client: client, systemPrompt: prompts.AudioChat()}, nil
	case MethodSingleCallAlternate:
		client, err := llm.NewGeminiClient(cfg)
		if err != nil {
			return nil, err
		}
		return &geminiProvider{client: client, prompt: prompts.AudioChat()}, nil
	default:
		return nil, fmt.Errorf("unhandled transcription method %v", method)
	}
}
