// Package moderation masks censored words in chat content before it is
// persisted or delivered. Matching runs over a normalized view of the text
// (lowercased, punctuation and spacing stripped, common leet substitutions
// undone) while masking is applied to the original runes, so spacing and
// unrelated characters survive untouched.
package moderation

import (
	"bufio"
	"embed"
	"strings"
	"unicode"

	"chat-gateway/errors"

	"github.com/abadojack/whatlanggo"
	goahocorasick "github.com/anknown/ahocorasick"
)

//go:embed wordlist.txt
var wordlistFS embed.FS

type Moderator struct {
	matcher *goahocorasick.Machine
	mask    rune
}

// LoadWordlist reads the embedded censored words, one per line; blank lines
// and '#' comments are skipped.
func LoadWordlist() ([]string, error) {
	f, err := wordlistFS.Open("wordlist.txt")
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var words []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(words) == 0 {
		return nil, errors.ErrEmptyWords
	}
	return words, nil
}

// NewModerator builds the Aho-Corasick automaton over the normalized form of
// the censored words.
func NewModerator(censoredWords []string, mask rune) (*Moderator, error) {
	patterns := make([][]rune, len(censoredWords))
	for i, word := range censoredWords {
		patterns[i] = normalize([]rune(word), nil)
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	return &Moderator{matcher: m, mask: mask}, nil
}

// Censor replaces the original characters of every forbidden match with the
// mask rune. Input without matches is returned unchanged.
func (m *Moderator) Censor(original string) string {
	origRunes := []rune(original)
	var origIdx []int
	normalized := normalize(origRunes, &origIdx)
	if len(normalized) == 0 {
		return original
	}

	spans := m.matcher.MultiPatternSearch(normalized, false)
	if len(spans) == 0 {
		return original
	}

	for _, span := range spans {
		normStart := span.Pos
		normEnd := normStart + len(span.Word)
		if normStart < 0 || normEnd > len(origIdx) {
			continue
		}
		for i := origIdx[normStart]; i <= origIdx[normEnd-1]; i++ {
			origRunes[i] = m.mask
		}
	}
	return string(origRunes)
}

// DetectLanguage returns the most likely language of the content, or an
// empty string when detection is unreliable.
func (m *Moderator) DetectLanguage(content string) string {
	info := whatlanggo.Detect(content)
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.String()
}

// normalize lowercases, undoes leet substitutions and drops noise runes.
// When origIdx is non-nil it records, for every kept rune, the index of the
// original rune it came from.
func normalize(input []rune, origIdx *[]int) []rune {
	out := make([]rune, 0, len(input))
	for i, r := range input {
		clean := unleet(r)
		if unicode.IsPunct(clean) || unicode.IsSpace(clean) || unicode.IsSymbol(clean) {
			continue
		}
		out = append(out, unicode.ToLower(clean))
		if origIdx != nil {
			*origIdx = append(*origIdx, i)
		}
	}
	return out
}

// unleet maps common leet speak characters back to their standard letters.
func unleet(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}
