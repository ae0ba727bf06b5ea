package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/meetscribe/meetscribe/internal/config"
)

const defaultTemperature = 0.1

// MeetingTranscriptSchema constrains the formatting stage to a
// conversations list of speaker/utterance pairs.
var MeetingTranscriptSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "conversations": {
      "type": "array",
      "description": "会議での発言のリスト",
      "items": {
        "type": "object",
        "properties": {
          "speaker": {"type": "string", "description": "発言者名"},
          "utterance": {"type": "string", "description": "発言内容"}
        },
        "required": ["speaker", "utterance"],
        "additionalProperties": false
      }
    }
  },
  "required": ["conversations"],
  "additionalProperties": false
}`)

// MeetingTitleSchema constrains title generation to a single field.
var MeetingTitleSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "title": {"type": "string", "description": "The title of the meeting."}
  },
  "required": ["title"],
  "additionalProperties": false
}`)

// OpenAIClient serves the two-stage method (whisper then chat
// formatting), the single-call audio chat method, and the chat surface
// for the downstream stages.
type OpenAIClient struct {
	client          *openai.Client
	chatModel       string
	transcribeModel string
	audioChatModel  string
	titleModel      string
}

// NewOpenAIClient builds a client from the configuration; the API key
// is required.
func NewOpenAIClient(cfg *config.Config) (*OpenAIClient, error) {
	if cfg.OpenAI.APIKey == "" {
		return nil, fmt.Errorf("openai api key is not configured (set openai.api_key or OPENAI_API_KEY)")
	}
	return &OpenAIClient{
		client:          openai.NewClient(cfg.OpenAI.APIKey),
		chatModel:       cfg.OpenAI.ChatModel,
		transcribeModel: cfg.OpenAI.TranscribeModel,
		audioChatModel:  cfg.OpenAI.AudioChatModel,
		titleModel:      cfg.OpenAI.TitleModel,
	}, nil
}

// TranscribeAudio runs speech-to-text over a whole audio file and
// returns the literal transcript.
func (c *OpenAIClient) TranscribeAudio(ctx context.Context, audioPath string) (string, error) {
	log.Printf("Requesting transcription: model=%s file=%s", c.transcribeModel, filepath.Base(audioPath))

	resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.transcribeModel,
		FilePath: audioPath,
		Language: "ja",
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", fmt.Errorf("openai transcription: %w", err)
	}
	if resp.Text == "" {
		return "", ErrEmptyResponse
	}
	return resp.Text, nil
}

// Chat sends a plain system+user exchange and returns the assistant
// text.
func (c *OpenAIClient) Chat(ctx context.Context, systemPrompt, userText string) (string, error) {
	return c.chat(ctx, c.chatModel, systemPrompt, userText, nil)
}

// StructuredChat is Chat constrained to a strict JSON schema.
func (c *OpenAIClient) StructuredChat(ctx context.Context, systemPrompt, userText, schemaName string, schema json.RawMessage) (string, error) {
	format := &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
		JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
			Name:   schemaName,
			Schema: schema,
			Strict: true,
		},
	}
	return c.chat(ctx, c.chatModel, systemPrompt, userText, format)
}

// TitleChat is StructuredChat against the cheaper title model.
func (c *OpenAIClient) TitleChat(ctx context.Context, systemPrompt, userText string) (string, error) {
	format := &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
		JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
			Name:   "meeting_title",
			Schema: MeetingTitleSchema,
			Strict: true,
		},
	}
	return c.chat(ctx, c.titleModel, systemPrompt, userText, format)
}

func (c *OpenAIClient) chat(ctx context.Context, model, systemPrompt, userText string, format *openai.ChatCompletionResponseFormat) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userText,
	})

	log.Printf("Sending chat request: model=%s", model)
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:          model,
		Temperature:    defaultTemperature,
		Messages:       messages,
		ResponseFormat: format,
	})
	if err != nil {
		return "", fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

// AudioChat sends one audio file plus a system prompt to the
// audio-capable chat model in a single call and returns the free-form
// answer.
func (c *OpenAIClient) AudioChat(ctx context.Context, systemPrompt, audioPath string) (string, error) {
	data, err := os.ReadFile(audioPath)
	if err != nil {
		return "", fmt.Errorf("read audio segment: %w", err)
	}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(audioPath)), ".")

	log.Printf("Sending audio chat request: model=%s file=%s (%d bytes)", c.audioChatModel, filepath.Base(audioPath), len(data))
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.audioChatModel,
		Temperature: defaultTemperature,
		MaxTokens:   2048,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeInputAudio,
						InputAudio: &openai.ChatMessageInputAudio{
							Data:   base64.StdEncoding.EncodeToString(data),
							Format: format,
						},
					},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai audio chat: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}
