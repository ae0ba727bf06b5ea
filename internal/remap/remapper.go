// Package remap re-identifies speakers across segment boundaries. The
// segment suffix pass guarantees labels never collide; this pass asks a
// chat model which suffixed labels belong to the same person and
// rewrites them to a canonical name.
package remap

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

var (
	fencedJSONRe = regexp.MustCompile("(?s)```json\\s*(.*?)```")
	braceRe      = regexp.MustCompile(`(?s)\{.*\}`)
)

// Remapper rewrites per-segment speaker labels to stable identities.
// Every failure mode is non-fatal: the worst case is a remapped file
// with the original content.
type Remapper struct {
	chatter llm.Chatter
}

func NewRemapper(chatter llm.Chatter) *Remapper {
	return &Remapper{chatter: chatter}
}

// Remap reads the transcript at transcriptPath, asks the model for a
// label mapping and writes the rewritten text next to the input as
// <stem>_remapped<ext>. The sidecar is always written, unchanged when
// the model call or mapping extraction fails.
func (r *Remapper) Remap(ctx context.Context, transcriptPath string) (string, error) {
	data, err := os.ReadFile(transcriptPath)
	if err != nil {
		return "", fmt.Errorf("read transcript: %w", err)
	}
	content := string(data)

	mapping := r.requestMapping(ctx, content)
	if len(mapping) == 0 {
		log.Printf("Speaker remapping produced no mapping, keeping original labels")
	} else {
		content = applySpeakerMapping(content, mapping)
	}

	ext := filepath.Ext(transcriptPath)
	outPath := strings.TrimSuffix(transcriptPath, ext) + "_remapped" + ext
	if err := os.WriteFile(outPath, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("save remapped transcript: %w", err)
	}
	return outPath, nil
}

func (r *Remapper) requestMapping(ctx context.Context, transcript string) map[string]string {
	reply, err := r.chatter.Chat(ctx, prompts.SpeakerRemap(), transcript)
	if err != nil {
		log.Printf("Speaker remapping call failed: %v", err)
		return nil
	}
	return parseMapping(reply)
}

// parseMapping digs a {"old label": "new label"} object out of a model
// reply. Tries, in order: a fenced ```json block, the outermost {...}
// substring, the whole reply. Returns an empty map when nothing parses.
func parseMapping(reply string) map[string]string {
	candidates := make([]string, 0, 3)
	if m := fencedJSONRe.FindStringSubmatch(reply); m != nil {
		candidates = append(candidates, m[1])
	}
	if m := braceRe.FindString(reply); m != "" {
		candidates = append(candidates, m)
	}
	candidates = append(candidates, reply)

	for _, candidate := range candidates {
		var mapping map[string]string
		if err := json.Unmarshal([]byte(strings.TrimSpace(candidate)), &mapping); err == nil && len(mapping) > 0 {
			return mapping
		}
	}
	log.Printf("Could not extract a speaker mapping from the model reply (%d chars)", len(reply))
	return nil
}

// applySpeakerMapping rewrites "speaker" fields over the serialized
// text. Substitution is per-entry and exact, so labels absent from the
// mapping are untouched.
func applySpeakerMapping(content string, mapping map[string]string) string {
	for old, renamed := range mapping {
		if old == "" || renamed == "" || old == renamed {
			continue
		}
		re, err := regexp.Compile(`"speaker"\s*:\s*"` + regexp.QuoteMeta(old) + `"`)
		if err != nil {
			continue
		}
		content = re.ReplaceAllString(content, `"speaker": "`+renamed+`"`)
	}
	return content
}
