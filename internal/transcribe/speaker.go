package transcribe

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
)

// Speaker labels assigned by the models are only unique within one
// segment: "話者1" in segment 1 and "話者1" in segment 3 are usually
// different people. AddSpeakerIdentifier suffixes every label with a
// segment-scoped identifier so labels never collide after
// concatenation. Re-identifying the same person across segments is the
// remap pass's job, not this one's.

var (
	// Label conventions produced by the prompts: 話者N / 発言者N /
	// Speaker N, each immediately followed by a colon.
	speakerLabelRe = regexp.MustCompile(`(話者[0-9０-９]+|発言者[0-9０-９]+|Speaker ?[0-9]+)([:：])`)

	// Loose fallback for almost-JSON text that failed a strict parse.
	speakerFieldRe = regexp.MustCompile(`"speaker"\s*:\s*"([^"]*)"`)
)

// AddSpeakerIdentifier rewrites every speaker label in text to
// "<label>_<identifier>". JSON input takes the parse-mutate-reserialize
// path; anything else falls back to regex substitution over the label
// conventions and over literal "speaker" key-value substrings. Callers
// must apply this exactly once per segment: a second call with a
// different identifier stacks suffixes.
func AddSpeakerIdentifier(text, identifier string) string {
	if out, ok := suffixJSONSpeakers(text, identifier); ok {
		return out
	}
	out := speakerLabelRe.ReplaceAllString(text, "${1}_"+identifier+"${2}")
	out = speakerFieldRe.ReplaceAllString(out, `"speaker": "${1}_`+identifier+`"`)
	return out
}

// suffixJSONSpeakers handles well-formed JSON: it parses, rewrites
// every "speaker" string field (directly or anywhere nested, which
// covers the conversations list), and reserializes. Returns ok=false
// when the text is not valid JSON.
func suffixJSONSpeakers(text, identifier string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "{") && !strings.HasPrefix(trimmed, "[") {
		return "", false
	}

	var root any
	if err := json.Unmarshal([]byte(trimmed), &root); err != nil {
		return "", false
	}

	if !rewriteSpeakerFields(root, identifier) {
		// Valid JSON without speaker fields: nothing to disambiguate.
		return text, true
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(root); err != nil {
		return "", false
	}
	return strings.TrimRight(buf.String(), "\n"), true
}

func rewriteSpeakerFields(node any, identifier string) bool {
	changed := false
	switch v := node.(type) {
	case map[string]any:
		if s, ok := v["speaker"].(string); ok {
			v["speaker"] = s + "_" + identifier
			changed = true
		}
		for key, child := range v {
			if key == "speaker" {
				continue
			}
			if rewriteSpeakerFields(child, identifier) {
				changed = true
			}
		}
	case []any:
		for _, child := range v {
			if rewriteSpeakerFields(child, identifier) {
				changed = true
			}
		}
	}
	return changed
}
