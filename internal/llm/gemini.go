package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/meetscribe/meetscribe/internal/config"
)

// Gemini file + generateContent API.
// Upload:   POST {base}/upload/v1beta/files (resumable, two steps)
// Generate: POST {base}/v1beta/models/{model}:generateContent
// Delete:   DELETE {base}/v1beta/{file name}
// All authenticated with the key query parameter.
const geminiBaseURL = "https://generativelanguage.googleapis.com"

// The provider enforces a hard request timeout instead of streaming;
// matches the observed upstream behavior of the transcription endpoint.
const geminiTimeout = 120 * time.Second

// GeminiClient serves the alternate single-call transcription method
// and its chat surface for minutes/remap.
type GeminiClient struct {
	apiKey             string
	httpClient         *http.Client
	baseURL            string
	transcriptionModel string
	minutesModel       string
	titleModel         string
	maxFileSizeMB      int
}

// NewGeminiClient builds a client from the configuration; the API key
// is required.
func NewGeminiClient(cfg *config.Config) (*GeminiClient, error) {
	if cfg.Gemini.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is not configured (set gemini.api_key or GEMINI_API_KEY)")
	}
	return &GeminiClient{
		apiKey:             cfg.Gemini.APIKey,
		httpClient:         &http.Client{Timeout: geminiTimeout},
		baseURL:            geminiBaseURL,
		transcriptionModel: cfg.Gemini.TranscriptionModel,
		minutesModel:       cfg.Gemini.MinutesModel,
		titleModel:         cfg.Gemini.TitleModel,
		maxFileSizeMB:      cfg.Gemini.MaxFileSizeMB,
	}, nil
}

// geminiFile is the uploaded-file handle returned by the file API.
type geminiFile struct {
	Name     string `json:"name"`
	URI      string `json:"uri"`
	MimeType string `json:"mimeType"`
}

type geminiUploadResponse struct {
	File geminiFile `json:"file"`
}

type geminiPart struct {
	Text     string          `json:"text,omitempty"`
	FileData *geminiFileData `json:"fileData,omitempty"`
}

type geminiFileData struct {
	FileURI  string `json:"fileUri"`
	MimeType string `json:"mimeType"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature      float64 `json:"temperature"`
	TopP             float64 `json:"topP"`
	TopK             int     `json:"topK"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
	ResponseMimeType string  `json:"responseMimeType"`
}

type generateContentRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// TranscribeFile uploads one audio segment, asks the transcription
// model to produce the conversations JSON in a single call, then
// deletes the uploaded file best-effort.
func (c *GeminiClient) TranscribeFile(ctx context.Context, audioPath, prompt string) (string, error) {
	file, err := c.uploadFile(ctx, audioPath)
	if err != nil {
		return "", err
	}
	defer func() {
		if delErr := c.deleteFile(context.Background(), file.Name); delErr != nil {
			log.Printf("WARNING: failed to delete uploaded file %s: %v", file.Name, delErr)
		}
	}()

	req := generateContentRequest{
		Contents: []geminiContent{
			{
				Role:  "user",
				Parts: []geminiPart{{FileData: &geminiFileData{FileURI: file.URI, MimeType: file.MimeType}}},
			},
			{
				Role:  "user",
				Parts: []geminiPart{{Text: prompt}},
			},
		},
		GenerationConfig: &geminiGenerationConfig{
			Temperature:      0.1,
			TopP:             0.95,
			TopK:             40,
			MaxOutputTokens:  8192,
			ResponseMimeType: "application/json",
		},
	}
	return c.generate(ctx, c.transcriptionModel, req)
}

// Chat sends a system+user exchange to the minutes model and returns
// plain text.
func (c *GeminiClient) Chat(ctx context.Context, systemPrompt, userText string) (string, error) {
	req := generateContentRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: userText}}},
		},
		GenerationConfig: &geminiGenerationConfig{
			Temperature:      1.0,
			TopP:             0.95,
			TopK:             64,
			MaxOutputTokens:  8192,
			ResponseMimeType: "text/plain",
		},
	}
	if systemPrompt != "" {
		req.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: systemPrompt}}}
	}
	return c.generate(ctx, c.minutesModel, req)
}

func (c *GeminiClient) generate(ctx context.Context, model string, body generateContentRequest) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("gemini request encode: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	log.Printf("Sending Gemini request: model=%s", model)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini generateContent: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("gemini http %d: %s", resp.StatusCode, string(b))
	}

	var decoded generateContentResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("gemini response decode: %w", err)
	}

	var sb strings.Builder
	for _, cand := range decoded.Candidates {
		for _, part := range cand.Content.Parts {
			sb.WriteString(part.Text)
		}
		break // only the first candidate is requested
	}
	text := sb.String()
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// uploadFile pushes a local file through the resumable upload protocol
// and returns its remote handle.
func (c *GeminiClient) uploadFile(ctx context.Context, path string) (*geminiFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat upload file: %w", err)
	}
	if sizeMB := float64(info.Size()) / (1024 * 1024); sizeMB > float64(c.maxFileSizeMB) {
		return nil, fmt.Errorf("file size (%.1fMB) exceeds the %dMB limit", sizeMB, c.maxFileSizeMB)
	}
	mimeType := mimeTypeFor(path)

	// Step 1: start a resumable session.
	meta, _ := json.Marshal(map[string]any{
		"file": map[string]any{"display_name": filepath.Base(path)},
	})
	startURL := fmt.Sprintf("%s/upload/v1beta/files?key=%s", c.baseURL, c.apiKey)
	startReq, err := http.NewRequestWithContext(ctx, http.MethodPost, startURL, bytes.NewReader(meta))
	if err != nil {
		return nil, err
	}
	startReq.Header.Set("X-Goog-Upload-Protocol", "resumable")
	startReq.Header.Set("X-Goog-Upload-Command", "start")
	startReq.Header.Set("X-Goog-Upload-Header-Content-Length", fmt.Sprintf("%d", info.Size()))
	startReq.Header.Set("X-Goog-Upload-Header-Content-Type", mimeType)
	startReq.Header.Set("Content-Type", "application/json")

	startResp, err := c.httpClient.Do(startReq)
	if err != nil {
		return nil, fmt.Errorf("gemini upload start: %w", err)
	}
	io.Copy(io.Discard, startResp.Body)
	startResp.Body.Close()
	if startResp.StatusCode >= 300 {
		return nil, fmt.Errorf("gemini upload start http %d", startResp.StatusCode)
	}
	uploadURL := startResp.Header.Get("X-Goog-Upload-URL")
	if uploadURL == "" {
		return nil, fmt.Errorf("gemini upload start returned no upload URL")
	}

	// Step 2: send the bytes and finalize.
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dataReq, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, f)
	if err != nil {
		return nil, err
	}
	dataReq.ContentLength = info.Size()
	dataReq.Header.Set("X-Goog-Upload-Offset", "0")
	dataReq.Header.Set("X-Goog-Upload-Command", "upload, finalize")

	dataResp, err := c.httpClient.Do(dataReq)
	if err != nil {
		return nil, fmt.Errorf("gemini upload: %w", err)
	}
	defer dataResp.Body.Close()
	if dataResp.StatusCode >= 300 {
		b, _ := io.ReadAll(dataResp.Body)
		return nil, fmt.Errorf("gemini upload http %d: %s", dataResp.StatusCode, string(b))
	}

	var decoded geminiUploadResponse
	if err := json.NewDecoder(dataResp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("gemini upload response decode: %w", err)
	}
	if decoded.File.URI == "" {
		return nil, fmt.Errorf("gemini upload returned no file URI")
	}
	log.Printf("Uploaded file %s as %s", filepath.Base(path), decoded.File.Name)
	return &decoded.File, nil
}

func (c *GeminiClient) deleteFile(ctx context.Context, name string) error {
	url := fmt.Sprintf("%s/v1beta/%s?key=%s", c.baseURL, name, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("gemini delete http %d", resp.StatusCode)
	}
	return nil
}

func mimeTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return "audio/wav"
	case ".ogg":
		return "audio/ogg"
	case ".flac":
		return "audio/flac"
	case ".m4a", ".aac":
		return "audio/aac"
	default:
		return "audio/mpeg"
	}
}
