package transcribe

import (
	"context"
	"fmt"
	"log"

	"github.com/meetscribe/meetscribe/internal/llm"
)

// twoStageProvider implements the two-stage method: stage A sends the
// whole audio file to speech-to-text, stage B formats the literal
// transcript into the conversations JSON via a schema-constrained chat
// call. No segmentation applies in this mode.
type twoStageProvider struct {
	client       *llm.OpenAIClient
	systemPrompt string
}

func (p *twoStageProvider) Method() Method { return MethodTwoStage }

func (p *twoStageProvider) Transcribe(ctx context.Context, audioPath string) (string, error) {
	_, formatted, err := p.TranscribeWhole(ctx, audioPath)
	return formatted, err
}

func (p *twoStageProvider) TranscribeWhole(ctx context.Context, audioPath string) (string, string, error) {
	raw, err := p.client.TranscribeAudio(ctx, audioPath)
	if err != nil {
		return "", "", fmt.Errorf("speech-to-text stage: %w", err)
	}
	log.Printf("Speech-to-text complete (%d chars), formatting", len(raw))

	formatted, err := p.client.StructuredChat(ctx, p.systemPrompt, raw, "meeting_transcript", llm.MeetingTranscriptSchema)
	if err != nil {
		return "", "", fmt.Errorf("formatting stage: %w", err)
	}
	return raw, formatted, nil
}

// audioChatProvider implements the primary single-call method: one
// audio segment plus a fixed system prompt, one audio-chat call,
// free-form text out.
type audioChatProvider struct {
	client       *llm.OpenAIClient
	systemPrompt string
}

func (p *audioChatProvider) Method() Method { return MethodSingleCallPrimary }

func (p *audioChatProvider) Transcribe(ctx context.Context, audioPath string) (string, error) {
	return p.client.AudioChat(ctx, p.systemPrompt, audioPath)
}
