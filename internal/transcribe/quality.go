package transcribe

import (
	"log"
	"regexp"
	"strings"
)

// Remote audio models occasionally degrade into runaway repetition or
// leak their own instructions into the output. IsProblematic is the
// cheap, language-agnostic gate that catches those before a segment is
// accepted. It is pure: same text, same verdict.

const (
	// repetitionThreshold is the occurrence count at which repetition
	// is considered pathological rather than a verbal tic.
	repetitionThreshold = 100
	// ngramLookahead bounds how far ahead the n-gram scan looks for a
	// repetition run.
	ngramLookahead = 150
)

// leakedInstruction is the tail line of the formatting prompt; a model
// echoing its instructions will reproduce it verbatim.
const leakedInstruction = "入力された音声の書き起こしテキストを上記の形式に変換してください"

var (
	// Speaker-label conventions: a label word (話者/発言者/Speaker)
	// followed by a number and a colon. Such tokens legitimately repeat
	// hundreds of times in a long meeting.
	speakerTokenRe = regexp.MustCompile(`(話者|発言者|Speaker ?)[0-9０-９]+[:：]`)

	// Short phrases: up to five characters terminated by punctuation or
	// whitespace.
	phraseRe = regexp.MustCompile(`([^\s、。．，,.!！?？]{1,5})[、。．，,.!！?？\s]`)

	// Pure bracket/quote runs carry no content and repeat naturally in
	// JSON-shaped output.
	bracketOnlyRe = regexp.MustCompile(`^[「」『』（）()\[\]【】{}"'：:、。\s]+$`)
)

// IsProblematic reports whether transcription output is degenerate:
// leaked instructions, runaway token/phrase repetition, or n-gram
// repetition runs. Rules are checked in order and short-circuit.
func IsProblematic(text string) bool {
	if strings.Contains(text, leakedInstruction) {
		log.Printf("Problematic transcription: prompt instruction leaked into output")
		return true
	}
	if tok := repeatedToken(text); tok != "" {
		log.Printf("Problematic transcription: token %q repeated %d+ times consecutively", tok, repetitionThreshold)
		return true
	}
	if ph := repeatedPhrase(text); ph != "" {
		log.Printf("Problematic transcription: phrase %q occurs %d+ times", ph, repetitionThreshold)
		return true
	}
	if g := repeatedNGram(text); g != "" {
		log.Printf("Problematic transcription: n-gram %q repeats in a run of %d+", g, repetitionThreshold)
		return true
	}
	return false
}

// repeatedToken scans whitespace-separated tokens, skipping speaker
// labels, and returns the first token repeating consecutively at least
// repetitionThreshold times.
func repeatedToken(text string) string {
	var (
		prev string
		run  int
	)
	for _, tok := range strings.Fields(text) {
		if speakerTokenRe.MatchString(tok) {
			continue
		}
		if tok == prev {
			run++
			if run >= repetitionThreshold {
				return tok
			}
		} else {
			prev = tok
			run = 1
		}
	}
	return ""
}

// repeatedPhrase counts global (non-consecutive) occurrences of short
// phrases and returns the first phrase reaching repetitionThreshold.
func repeatedPhrase(text string) string {
	counts := make(map[string]int)
	for _, m := range phraseRe.FindAllStringSubmatch(text, -1) {
		phrase := m[1]
		if bracketOnlyRe.MatchString(phrase) || speakerTokenRe.MatchString(phrase) {
			continue
		}
		counts[phrase]++
		if counts[phrase] >= repetitionThreshold {
			return phrase
		}
	}
	return ""
}

// repeatedNGram slides rune-level n-grams (n in 2..4) over the text.
// For each position it counts how many of the next ngramLookahead
// grams equal the current one, resetting the run whenever a different
// gram appears; a run of repetitionThreshold is degenerate.
func repeatedNGram(text string) string {
	runes := []rune(text)
	for n := 2; n <= 4; n++ {
		if len(runes) <= n {
			continue
		}
		grams := make([]string, len(runes)-n+1)
		for i := range grams {
			grams[i] = string(runes[i : i+n])
		}
		for i := range grams {
			if bracketOnlyRe.MatchString(grams[i]) {
				continue
			}
			end := i + ngramLookahead
			if end > len(grams)-1 {
				end = len(grams) - 1
			}
			run := 0
			for j := i + 1; j <= end; j++ {
				if grams[j] == grams[i] {
					run++
					if run >= repetitionThreshold {
						return grams[i]
					}
				} else {
					run = 0
				}
			}
		}
	}
	return ""
}
