package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Recognized transcription method identifiers.
const (
	MethodOpenAI      = "openai"       // two-stage: whisper then chat formatting
	MethodOpenAIAudio = "openai_audio" // single-call audio chat, per segment
	MethodGemini      = "gemini"       // single-call Gemini, per segment
)

// Config represents the application configuration. It is loaded once at
// startup and passed by value into constructors; nothing reads it from a
// global afterwards.
type Config struct {
	Server struct {
		Port int    `yaml:"port"`
		Host string `yaml:"host"`
	} `yaml:"server"`

	Transcription TranscriptionConfig `yaml:"transcription"`

	OpenAI struct {
		APIKey          string `yaml:"api_key"`
		ChatModel       string `yaml:"chat_model"`
		TranscribeModel string `yaml:"transcribe_model"`
		AudioChatModel  string `yaml:"audio_chat_model"`
		TitleModel      string `yaml:"title_model"`
	} `yaml:"openai"`

	Gemini struct {
		APIKey             string `yaml:"api_key"`
		TranscriptionModel string `yaml:"transcription_model"`
		MinutesModel       string `yaml:"minutes_model"`
		TitleModel         string `yaml:"title_model"`
		MaxFileSizeMB      int    `yaml:"max_file_size_mb"`
	} `yaml:"gemini"`

	Workers struct {
		Count int `yaml:"count"`
	} `yaml:"workers"`

	Storage struct {
		TempDir   string `yaml:"temp_dir"`
		OutputDir string `yaml:"output_dir"`
		Database  string `yaml:"database"`
	} `yaml:"storage"`

	Cleanup struct {
		IntervalMinutes int `yaml:"interval_minutes"`
		MaxAgeHours     int `yaml:"max_age_hours"`
	} `yaml:"cleanup"`

	GoogleDrive struct {
		CredentialsFile string `yaml:"credentials_file"`
		TokenFile       string `yaml:"token_file"`
		FolderName      string `yaml:"folder_name"`
	} `yaml:"google_drive"`

	Limits struct {
		MaxFileSizeMB int `yaml:"max_file_size_mb"`
	} `yaml:"limits"`
}

// TranscriptionConfig controls the core pipeline behavior.
type TranscriptionConfig struct {
	Method                 string `yaml:"method"`
	SegmentLengthSeconds   int    `yaml:"segment_length_seconds"`
	MaxRetries             int    `yaml:"max_retries"`
	EnableSpeakerRemapping bool   `yaml:"enable_speaker_remapping"`
	GenerateMinutes        bool   `yaml:"generate_minutes"`
	GenerateReflection     bool   `yaml:"generate_reflection"`
}

// Load reads, defaults and validates the configuration file. API keys
// fall back to the OPENAI_API_KEY / GEMINI_API_KEY environment variables
// when the file leaves them empty.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.OpenAI.APIKey == "" {
		cfg.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Gemini.APIKey == "" {
		cfg.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	cfg := &Config{}
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 8080

	cfg.Transcription.Method = MethodGemini
	cfg.Transcription.SegmentLengthSeconds = 450
	cfg.Transcription.MaxRetries = 2
	cfg.Transcription.EnableSpeakerRemapping = true
	cfg.Transcription.GenerateMinutes = true

	cfg.OpenAI.ChatModel = "gpt-4o"
	cfg.OpenAI.TranscribeModel = "whisper-1"
	cfg.OpenAI.AudioChatModel = "gpt-4o-audio-preview"
	cfg.OpenAI.TitleModel = "gpt-4o-mini"

	cfg.Gemini.TranscriptionModel = "gemini-2.0-flash"
	cfg.Gemini.MinutesModel = "gemini-2.0-pro-exp-02-05"
	cfg.Gemini.TitleModel = "gemini-2.0-flash"
	cfg.Gemini.MaxFileSizeMB = 100

	cfg.Workers.Count = 2

	cfg.Storage.TempDir = "temp"
	cfg.Storage.OutputDir = "output"
	cfg.Storage.Database = "output/transcripts.db"

	cfg.Cleanup.IntervalMinutes = 60
	cfg.Cleanup.MaxAgeHours = 24

	cfg.Limits.MaxFileSizeMB = 1024
	return cfg
}

func (c *Config) validate() error {
	switch c.Transcription.Method {
	case MethodOpenAI, MethodOpenAIAudio, MethodGemini:
	default:
		return fmt.Errorf("unknown transcription method: %q", c.Transcription.Method)
	}
	if c.Transcription.SegmentLengthSeconds <= 0 {
		return fmt.Errorf("segment_length_seconds must be positive, got %d", c.Transcription.SegmentLengthSeconds)
	}
	if c.Transcription.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative, got %d", c.Transcription.MaxRetries)
	}
	if c.Workers.Count <= 0 {
		c.Workers.Count = 1
	}
	return nil
}
