// Package score computes deterministic quality metrics over rendered text.
// Same text in, same scores out; regression tests compare literal fixtures.
package score

import (
	"math"
	"strings"
	"unicode"

	"github.com/yungbote/contentforge-backend/internal/render"
)

const (
	wordsPerMinute = 200

	// Length-appropriateness plateau. Shorter or longer than this band
	// degrades the fit linearly.
	idealMinWords = 40
	idealMaxWords = 900
)

type Scores struct {
	Quality        float64 `json:"quality_score"`     // [0,1]
	Readability    float64 `json:"readability_score"` // [0,1]
	WordCount      int     `json:"word_count"`
	CharCount      int     `json:"char_count"`
	ReadingTimeSec int     `json:"reading_time_sec"`
}

// Score evaluates rendered text. declared and used come from the template and
// the render result; their ratio feeds the variable-coverage component.
func Score(text string, declared, used []string) Scores {
	words := strings.Fields(text)
	wordCount := len(words)
	charCount := len(text)

	if wordCount == 0 {
		return Scores{CharCount: charCount}
	}

	residue := len(render.Placeholders(text))

	base := 0.1 +
		0.45*lengthFit(wordCount) +
		0.25*coverage(declared, used) +
		0.2*readability(text, words)

	// Unresolved placeholders in final text are the strongest negative
	// signal: divide rather than subtract so the penalty can never be
	// clamped away and each residue strictly lowers the score.
	quality := base / float64(1+residue)

	return Scores{
		Quality:        round3(clamp01(quality)),
		Readability:    round3(readability(text, words)),
		WordCount:      wordCount,
		CharCount:      charCount,
		ReadingTimeSec: readingTimeSec(wordCount),
	}
}

func lengthFit(wordCount int) float64 {
	switch {
	case wordCount == 0:
		return 0
	case wordCount >= idealMinWords && wordCount <= idealMaxWords:
		return 1
	case wordCount < idealMinWords:
		return float64(wordCount) / float64(idealMinWords)
	default:
		over := float64(wordCount-idealMaxWords) / float64(idealMaxWords)
		return clamp01(1 - over)
	}
}

func coverage(declared, used []string) float64 {
	if len(declared) == 0 {
		return 1
	}
	usedSet := make(map[string]bool, len(used))
	for _, u := range used {
		usedSet[u] = true
	}
	n := 0
	for _, d := range declared {
		if usedSet[d] {
			n++
		}
	}
	return float64(n) / float64(len(declared))
}

// readability approximates ease of reading from mean sentence length and mean
// word length. Ideal bands: 8-22 words per sentence, 3-7 chars per word.
func readability(text string, words []string) float64 {
	if len(words) == 0 {
		return 0
	}
	sentences := countSentences(text)
	if sentences == 0 {
		sentences = 1
	}
	meanSentence := float64(len(words)) / float64(sentences)
	letters := 0
	for _, w := range words {
		letters += len(w)
	}
	meanWord := float64(letters) / float64(len(words))

	return round3(0.6*bandFit(meanSentence, 8, 22) + 0.4*bandFit(meanWord, 3, 7))
}

func bandFit(v, lo, hi float64) float64 {
	switch {
	case v >= lo && v <= hi:
		return 1
	case v < lo:
		return clamp01(v / lo)
	default:
		return clamp01(1 - (v-hi)/hi)
	}
}

func countSentences(text string) int {
	n := 0
	for _, r := range text {
		if r == '.' || r == '!' || r == '?' {
			n++
		}
	}
	if n == 0 && strings.IndexFunc(text, func(r rune) bool { return !unicode.IsSpace(r) }) >= 0 {
		return 1
	}
	return n
}

func readingTimeSec(wordCount int) int {
	if wordCount == 0 {
		return 0
	}
	return int(math.Ceil(float64(wordCount) / wordsPerMinute * 60))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
