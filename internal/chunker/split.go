package chunker

import (
	"regexp"
	"strings"
	"unicode"
)

var paragraphRe = regexp.MustCompile(`\n\s*\n`)

// splitAtNaturalBoundaries breaks text into pieces of at most maxWords
// words, preferring paragraph boundaries and falling back to sentence
// boundaries for oversize paragraphs.
func splitAtNaturalBoundaries(text string, maxWords int) []string {
	paragraphs := paragraphRe.Split(text, -1)

	var chunks []string
	current := ""

	for _, paragraph := range paragraphs {
		paragraphWords := countWords(paragraph)
		currentWords := countWords(current)

		if currentWords+paragraphWords <= maxWords {
			if current != "" {
				current += "\n\n" + paragraph
			} else {
				current = paragraph
			}
			continue
		}

		if current != "" {
			chunks = append(chunks, strings.TrimSpace(current))
		}

		if paragraphWords > maxWords {
			// A single paragraph past the limit splits at sentence
			// boundaries; the final sentence run carries over as the
			// accumulator for the next paragraph.
			sentenceChunk := ""
			for _, sentence := range splitSentences(paragraph) {
				if countWords(sentenceChunk)+countWords(sentence) <= maxWords {
					if sentenceChunk != "" {
						sentenceChunk += " " + sentence
					} else {
						sentenceChunk = sentence
					}
					continue
				}
				if sentenceChunk != "" {
					chunks = append(chunks, strings.TrimSpace(sentenceChunk))
				}
				sentenceChunk = sentence
			}
			current = sentenceChunk
		} else {
			current = paragraph
		}
	}

	if current != "" {
		chunks = append(chunks, strings.TrimSpace(current))
	}

	out := chunks[:0]
	for _, c := range chunks {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

// splitSentences cuts text after `.`, `!` or `?` followed by whitespace.
// The terminating punctuation stays with its sentence; the separating
// whitespace run is dropped.
func splitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	begin := 0

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if (r == '.' || r == '!' || r == '?') && i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
			sentences = append(sentences, string(runes[begin:i+1]))
			i++
			for i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
				i++
			}
			begin = i + 1
		}
	}
	if begin < len(runes) {
		sentences = append(sentences, string(runes[begin:]))
	}
	return sentences
}

// tailWords returns the last n whitespace-delimited words of text.
func tailWords(text string, n int) string {
	words := strings.Fields(text)
	if len(words) > n {
		words = words[len(words)-n:]
	}
	return strings.Join(words, " ")
}

// headWords returns the first n whitespace-delimited words of text.
func headWords(text string, n int) string {
	words := strings.Fields(text)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}
