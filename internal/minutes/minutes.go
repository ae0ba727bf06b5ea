// Package minutes turns a finished transcript into meeting minutes, a
// facilitation reflection and a short title. These are enrichment
// stages: each one reads text and calls a chat model, nothing more.
package minutes

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/meetscribe/meetscribe/internal/llm"
	"github.com/meetscribe/meetscribe/internal/prompts"
)

// titleChatter is implemented by clients that route title generation to
// a dedicated cheap model with a structured response. Chatters without
// it fall back to the plain chat surface.
type titleChatter interface {
	TitleChat(ctx context.Context, systemPrompt, userText string) (string, error)
}

type Service struct {
	chatter   llm.Chatter
	outputDir string
}

func NewService(chatter llm.Chatter, outputDir string) *Service {
	return &Service{chatter: chatter, outputDir: outputDir}
}

// GenerateMinutes produces markdown minutes for the transcript at
// transcriptPath and stores them as <stem>_minutes.md in the output
// directory.
func (s *Service) GenerateMinutes(ctx context.Context, transcriptPath string) (string, error) {
	data, err := os.ReadFile(transcriptPath)
	if err != nil {
		return "", fmt.Errorf("read transcript: %w", err)
	}

	text, err := s.chatter.Chat(ctx, prompts.Minutes(), string(data))
	if err != nil {
		return "", fmt.Errorf("minutes generation: %w", err)
	}

	outPath := s.derivedPath(transcriptPath, "_minutes.md")
	if err := os.WriteFile(outPath, []byte(text), 0644); err != nil {
		return "", fmt.Errorf("save minutes: %w", err)
	}
	log.Printf("Minutes saved to %s (%d chars)", outPath, len(text))
	return outPath, nil
}

// GenerateReflection reviews the minutes at minutesPath from a
// facilitation standpoint and stores the result as <stem>_reflection.md.
func (s *Service) GenerateReflection(ctx context.Context, minutesPath string) (string, error) {
	data, err := os.ReadFile(minutesPath)
	if err != nil {
		return "", fmt.Errorf("read minutes: %w", err)
	}

	text, err := s.chatter.Chat(ctx, prompts.Reflection(), string(data))
	if err != nil {
		return "", fmt.Errorf("reflection generation: %w", err)
	}

	outPath := s.derivedPath(minutesPath, "_reflection.md")
	if err := os.WriteFile(outPath, []byte(text), 0644); err != nil {
		return "", fmt.Errorf("save reflection: %w", err)
	}
	return outPath, nil
}

var titleFieldRe = regexp.MustCompile(`"title"\s*:\s*"([^"]+)"`)

// GenerateTitle names the meeting from its transcript text. The model
// is asked for {"title": "..."}; replies that are not valid JSON fall
// back to a field regex and finally to the trimmed reply itself.
func (s *Service) GenerateTitle(ctx context.Context, transcriptText string) (string, error) {
	var reply string
	var err error
	if tc, ok := s.chatter.(titleChatter); ok {
		reply, err = tc.TitleChat(ctx, prompts.Title(), transcriptText)
	} else {
		reply, err = s.chatter.Chat(ctx, prompts.Title(), transcriptText)
	}
	if err != nil {
		return "", fmt.Errorf("title generation: %w", err)
	}
	return extractTitle(reply), nil
}

func extractTitle(reply string) string {
	trimmed := strings.TrimSpace(reply)

	var doc struct {
		Title string `json:"title"`
	}
	if err := json.Unmarshal([]byte(trimmed), &doc); err == nil && doc.Title != "" {
		return doc.Title
	}
	if m := titleFieldRe.FindStringSubmatch(trimmed); m != nil {
		return m[1]
	}
	return strings.Trim(trimmed, "\"`")
}

func (s *Service) derivedPath(srcPath, suffix string) string {
	base := filepath.Base(srcPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(s.outputDir, stem+suffix)
}
