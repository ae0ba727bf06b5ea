// Package prompts carries the instruction texts sent to the language
// models. They are embedded so a deployed binary never depends on a
// relative prompt directory.
package prompts

import (
	_ "embed"
	"strings"
)

//go:embed assets/transcription.txt
var transcription string

//go:embed assets/audio_chat.txt
var audioChat string

//go:embed assets/speakerremap.txt
var speakerRemap string

//go:embed assets/minutes.txt
var minutes string

//go:embed assets/reflection.txt
var reflection string

//go:embed assets/title.txt
var title string

// Transcription is the system prompt for the chat formatting stage of
// the two-stage method.
func Transcription() string { return strings.TrimSpace(transcription) }

// AudioChat is the system prompt for the single-call audio methods.
func AudioChat() string { return strings.TrimSpace(audioChat) }

// SpeakerRemap instructs the model to produce an old-label to new-label
// mapping as JSON.
func SpeakerRemap() string { return strings.TrimSpace(speakerRemap) }

// Minutes instructs the model to summarize a transcript into minutes.
func Minutes() string { return strings.TrimSpace(minutes) }

// Reflection instructs the model to extract retrospective points.
func Reflection() string { return strings.TrimSpace(reflection) }

// Title instructs the model to name the meeting's main topic.
func Title() string { return strings.TrimSpace(title) }
